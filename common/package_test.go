package common

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"
)

func TestPackage_SendReceive_RoundTrip(t *testing.T) {
	password := "s3cret"
	pkg := NewPackage(&password, ActionSendEmail, []byte("payload"))

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- pkg.Send(client)
	}()

	got, err := Receive(context.Background(), server, &password, ActionSet(ActionSendEmail))
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got.Action != ActionSendEmail {
		t.Errorf("Action = %v, want %v", got.Action, ActionSendEmail)
	}
	if !bytes.Equal(got.Data, []byte("payload")) {
		t.Errorf("Data = %q, want %q", got.Data, "payload")
	}
	if !got.CheckPassword(&password) {
		t.Error("CheckPassword() = false, want true")
	}
}

func TestPackage_Receive_WrongPassword_SendsInvalidPasswordResponse(t *testing.T) {
	expected := "correct"
	wrong := "wrong"
	pkg := NewPackage(&wrong, ActionSendEmail, []byte("payload"))

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go pkg.Send(client) //nolint:errcheck

	_, err := Receive(context.Background(), server, &expected, nil)
	if err != ErrInvalidPassword {
		t.Fatalf("Receive() error = %v, want ErrInvalidPassword", err)
	}

	resp, err := Receive(context.Background(), client, nil, nil)
	if err != nil {
		t.Fatalf("reading invalid-password response: %v", err)
	}
	if resp.Action != ActionInvalidPassword {
		t.Errorf("response Action = %v, want ActionInvalidPassword", resp.Action)
	}
}

func TestPackage_Receive_ActionNotAccepted(t *testing.T) {
	pkg := NewPackage(nil, ActionGetEmail, nil)

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go pkg.Send(client) //nolint:errcheck

	_, err := Receive(context.Background(), server, nil, ActionSet(ActionSendEmail))
	if err != ErrInvalidAction {
		t.Fatalf("Receive() error = %v, want ErrInvalidAction", err)
	}
}

// fakeConn adapts a buffer into the deadlineConn Receive needs, so the
// PACKAGE_MAX_SIZE boundary can be checked without a real socket.
type fakeConn struct {
	r *bytes.Reader
	w bytes.Buffer
}

func (f *fakeConn) Read(p []byte) (int, error)  { return f.r.Read(p) }
func (f *fakeConn) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *fakeConn) SetDeadline(time.Time) error { return nil }

func TestPackage_Receive_TooBig(t *testing.T) {
	var sizeBuf [8]byte
	oversized := uint64(PackageMaxSize + 1)
	for i := 0; i < 8; i++ {
		sizeBuf[7-i] = byte(oversized >> (8 * i))
	}
	conn := &fakeConn{r: bytes.NewReader(sizeBuf[:])}

	_, err := Receive(context.Background(), conn, nil, nil)
	if err != ErrTooBig {
		t.Fatalf("Receive() error = %v, want ErrTooBig", err)
	}
}

func TestPackage_Send_TooBig(t *testing.T) {
	pkg := NewPackage(nil, ActionSendEmail, make([]byte, PackageMaxSize+1))
	var buf bytes.Buffer
	if err := pkg.Send(&buf); err != ErrTooBig {
		t.Fatalf("Send() error = %v, want ErrTooBig", err)
	}
}

func TestPackage_SetPassword_Nil_ClearsHash(t *testing.T) {
	password := "x"
	pkg := NewPackage(&password, ActionCheckConnection, nil)
	pkg.SetPassword(nil)
	if pkg.PasswordHash != nil {
		t.Error("PasswordHash != nil after SetPassword(nil)")
	}
	if !pkg.CheckPassword(nil) {
		t.Error("CheckPassword(nil) = false after clearing password")
	}
}

func TestAction_String(t *testing.T) {
	if got := ActionSendEmail.String(); got != "SendEmail" {
		t.Errorf("String() = %q, want %q", got, "SendEmail")
	}
}
