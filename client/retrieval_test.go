package client

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net"
	"testing"

	"go.uber.org/zap"

	"github.com/rylenko/emaild/common"
)

func mustTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, common.RSAKeySize)
	if err != nil {
		t.Fatal(err)
	}
	return priv
}

// pipeDialer hands out one end of a net.Pipe and runs serve on the other
// end in its own goroutine, simulating a single node.
type pipeDialer struct {
	serve func(net.Conn)
}

func (d pipeDialer) Dial(network, address string) (net.Conn, error) {
	client, server := net.Pipe()
	go d.serve(server)
	return client, nil
}

func TestEngine_CheckConnection_Success(t *testing.T) {
	d := pipeDialer{serve: func(conn net.Conn) {
		defer conn.Close()
		if _, err := common.Receive(context.Background(), conn, nil, nil); err != nil {
			return
		}
		common.NewPackage(nil, common.ActionCheckConnectionSuccess, nil).Send(conn) //nolint:errcheck
	}}
	e := NewEngine(nil, d, zap.NewNop())

	if err := e.CheckConnection(context.Background(), Node{Address: "node:8000"}); err != nil {
		t.Errorf("CheckConnection() error = %v, want nil", err)
	}
}

func TestEngine_CheckConnection_InvalidPassword(t *testing.T) {
	d := pipeDialer{serve: func(conn net.Conn) {
		defer conn.Close()
		common.Receive(context.Background(), conn, nil, nil)                    //nolint:errcheck
		common.NewPackage(nil, common.ActionInvalidPassword, nil).Send(conn) //nolint:errcheck
	}}
	e := NewEngine(nil, d, zap.NewNop())

	err := e.CheckConnection(context.Background(), Node{Address: "node:8000"})
	if err != common.ErrInvalidPassword {
		t.Errorf("CheckConnection() error = %v, want ErrInvalidPassword", err)
	}
}

func TestEngine_RequestEmailsCount(t *testing.T) {
	d := pipeDialer{serve: func(conn net.Conn) {
		defer conn.Close()
		common.Receive(context.Background(), conn, nil, nil) //nolint:errcheck
		countBytes, err := gobEncodeFrom(int64(3))
		if err != nil {
			t.Error(err)
			return
		}
		common.NewPackage(nil, common.ActionGetEmailsCountSuccess, countBytes).Send(conn) //nolint:errcheck
	}}
	e := NewEngine(nil, d, zap.NewNop())

	count, err := e.requestEmailsCount(context.Background(), Node{Address: "node:8000"}, [32]byte{})
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("requestEmailsCount() = %d, want 3", count)
	}
}

func TestEngine_RequestEmail_RoundTrip(t *testing.T) {
	recipient := mustTestKey(t)
	sender := mustTestKey(t)
	data := common.NewData("alice", "hi", "body", nil)

	email, err := common.NewEmail(&recipient.PublicKey, data)
	if err != nil {
		t.Fatal(err)
	}
	email.GenerateProofOfWork()
	if err := email.Sign(sender); err != nil {
		t.Fatal(err)
	}
	emailBytes, err := email.GobEncode()
	if err != nil {
		t.Fatal(err)
	}

	d := pipeDialer{serve: func(conn net.Conn) {
		defer conn.Close()
		common.Receive(context.Background(), conn, nil, nil)                                //nolint:errcheck
		common.NewPackage(nil, common.ActionGetEmailSuccess, emailBytes).Send(conn) //nolint:errcheck
	}}
	e := NewEngine(nil, d, zap.NewNop())

	got, err := e.requestEmail(context.Background(), Node{Address: "node:8000"}, 0, [32]byte{})
	if err != nil {
		t.Fatal(err)
	}
	if !got.CheckEncryptedIntegrity() {
		t.Error("requestEmail() returned an envelope that fails CheckEncryptedIntegrity")
	}
}
