package client

import "fmt"

// EmailsPerPage bounds how many stored emails a single GetEmails call
// returns.
const EmailsPerPage = 4

// Pagination wraps a single page of items alongside enough bookkeeping to
// walk forward and backward through the full result set.
type Pagination[T any] struct {
	CurrentPage uint64
	Pages       uint64
	Items       []T
}

// NewPagination builds a Pagination, rejecting a currentPage past the end
// of the result set. Page 1 is always valid, even when pages is 0 (an
// empty result set).
func NewPagination[T any](currentPage, pages uint64, items []T) (*Pagination[T], error) {
	if currentPage != 1 && currentPage > pages {
		return nil, fmt.Errorf("client: page %d is past the last page (%d): %w", currentPage, pages, ErrPageOutOfRange)
	}
	return &Pagination[T]{CurrentPage: currentPage, Pages: pages, Items: items}, nil
}

// HasNextPage reports whether NextPage would return a valid page number.
func (p *Pagination[T]) HasNextPage() bool { return p.CurrentPage < p.Pages }

// HasPreviousPage reports whether PreviousPage would return a valid page
// number.
func (p *Pagination[T]) HasPreviousPage() bool { return p.CurrentPage > 1 }

// NextPage returns the following page number, or ok=false at the end.
func (p *Pagination[T]) NextPage() (uint64, bool) {
	if !p.HasNextPage() {
		return 0, false
	}
	return p.CurrentPage + 1, true
}

// PreviousPage returns the preceding page number, or ok=false on page 1.
func (p *Pagination[T]) PreviousPage() (uint64, bool) {
	if !p.HasPreviousPage() {
		return 0, false
	}
	return p.CurrentPage - 1, true
}
