package client

import "testing"

func TestNewPagination_FirstPageAlwaysValid(t *testing.T) {
	p, err := NewPagination[int](1, 0, nil)
	if err != nil {
		t.Fatalf("NewPagination() error = %v, want nil", err)
	}
	if p.HasNextPage() || p.HasPreviousPage() {
		t.Error("single empty page should have neither next nor previous")
	}
}

func TestNewPagination_PastLastPage_Errors(t *testing.T) {
	if _, err := NewPagination[int](3, 2, nil); err == nil {
		t.Error("NewPagination() error = nil, want error for page past the end")
	}
}

func TestPagination_NextPreviousPage(t *testing.T) {
	p, err := NewPagination(2, 3, []int{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if next, ok := p.NextPage(); !ok || next != 3 {
		t.Errorf("NextPage() = %d, %v, want 3, true", next, ok)
	}
	if prev, ok := p.PreviousPage(); !ok || prev != 1 {
		t.Errorf("PreviousPage() = %d, %v, want 1, true", prev, ok)
	}
}

func TestPagination_LastPage_NoNext(t *testing.T) {
	p, err := NewPagination(3, 3, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	if p.HasNextPage() {
		t.Error("HasNextPage() = true on the last page")
	}
}
