//go:build integration

package integration

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rylenko/emaild/client"
	"github.com/rylenko/emaild/common"
	"github.com/rylenko/emaild/node"
)

// TestEndToEnd_SendThenRetrieve spins up a real relay over TCP backed by
// the same database, registers it as the recipient's only node, and
// drives one full Send -> relay store -> Retrieve cycle.
func TestEndToEnd_SendThenRetrieve(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer listener.Close()

	logger := zap.NewNop()
	nodeStore := node.NewStore(pool)
	if err := nodeStore.Migrate(ctx); err != nil {
		t.Fatalf("node Migrate() error = %v", err)
	}
	dialer := &net.Dialer{}
	relay := node.NewRelay(&node.Config{}, nodeStore, dialer, logger)

	go relay.Serve(ctx, listener) //nolint:errcheck

	clientStore := newClientStore(t)
	sender := mustClientUser(t, clientStore)
	recipient := mustClientUser(t, clientStore)

	if err := clientStore.AddNode(ctx, sender, listener.Addr().String(), nil); err != nil {
		t.Fatalf("AddNode(sender) error = %v", err)
	}
	if err := clientStore.AddNode(ctx, recipient, listener.Addr().String(), nil); err != nil {
		t.Fatalf("AddNode(recipient) error = %v", err)
	}

	recipientPriv, err := clientStore.GetUserPrivateKey(ctx, recipient)
	if err != nil {
		t.Fatalf("GetUserPrivateKey(recipient) error = %v", err)
	}

	engine := client.NewEngine(clientStore, dialer, logger)

	data := common.NewData(sender.Username, "end to end", "delivered via relay", nil)
	sentTo, err := engine.Send(ctx, sender, &recipientPriv.PublicKey, data)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if sentTo != 1 {
		t.Fatalf("Send() delivered to %d nodes, want 1", sentTo)
	}

	var got int
	for attempt := 0; attempt < 10; attempt++ {
		got, err = engine.Retrieve(ctx, recipient)
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if got > 0 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if got != 1 {
		t.Fatalf("Retrieve() returned %d new emails, want 1", got)
	}

	page, err := clientStore.GetEmails(ctx, recipient, 1)
	if err != nil {
		t.Fatalf("GetEmails() error = %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("GetEmails() returned %d items, want 1", len(page.Items))
	}
	if page.Items[0].Data.Title != "end to end" {
		t.Errorf("retrieved email title = %q, want %q", page.Items[0].Data.Title, "end to end")
	}

	second, err := engine.Retrieve(ctx, recipient)
	if err != nil {
		t.Fatalf("second Retrieve() error = %v", err)
	}
	if second != 0 {
		t.Errorf("second Retrieve() returned %d new emails, want 0 (already delivered)", second)
	}
}

func TestEndToEnd_F2FFiltersUnknownSender(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer listener.Close()

	logger := zap.NewNop()
	nodeStore := node.NewStore(pool)
	if err := nodeStore.Migrate(ctx); err != nil {
		t.Fatalf("node Migrate() error = %v", err)
	}
	dialer := &net.Dialer{}
	relay := node.NewRelay(&node.Config{}, nodeStore, dialer, logger)
	go relay.Serve(ctx, listener) //nolint:errcheck

	clientStore := newClientStore(t)
	sender := mustClientUser(t, clientStore)
	recipient := mustClientUser(t, clientStore)

	if _, err := clientStore.SwitchUserF2F(ctx, recipient); err != nil {
		t.Fatalf("SwitchUserF2F() error = %v", err)
	}

	if err := clientStore.AddNode(ctx, sender, listener.Addr().String(), nil); err != nil {
		t.Fatalf("AddNode(sender) error = %v", err)
	}
	if err := clientStore.AddNode(ctx, recipient, listener.Addr().String(), nil); err != nil {
		t.Fatalf("AddNode(recipient) error = %v", err)
	}

	recipientPriv, err := clientStore.GetUserPrivateKey(ctx, recipient)
	if err != nil {
		t.Fatalf("GetUserPrivateKey(recipient) error = %v", err)
	}

	engine := client.NewEngine(clientStore, dialer, logger)
	data := common.NewData(sender.Username, "blocked", "should be filtered", nil)
	if _, err := engine.Send(ctx, sender, &recipientPriv.PublicKey, data); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var got int
	for attempt := 0; attempt < 5; attempt++ {
		got, err = engine.Retrieve(ctx, recipient)
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if got != 0 {
		t.Fatalf("Retrieve() returned %d new emails for a non-friend sender under F2F, want 0", got)
	}
}
