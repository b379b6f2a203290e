package node

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/rylenko/emaild/common"
)

func TestNewEmailRow_RejectsUnsignedEmail(t *testing.T) {
	recipient, err := rsa.GenerateKey(rand.Reader, common.RSAKeySize)
	if err != nil {
		t.Fatal(err)
	}
	email, err := common.NewEmail(&recipient.PublicKey, common.NewData("alice", "hi", "body", nil))
	if err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := newEmailRow(email); err == nil {
		t.Error("newEmailRow() on an unsigned, no-PoW email should fail")
	}
}

func TestNewEmailRow_SerializesIndexedColumns(t *testing.T) {
	recipient, err := rsa.GenerateKey(rand.Reader, common.RSAKeySize)
	if err != nil {
		t.Fatal(err)
	}
	sender, err := rsa.GenerateKey(rand.Reader, common.RSAKeySize)
	if err != nil {
		t.Fatal(err)
	}
	email, err := common.NewEmail(&recipient.PublicKey, common.NewData("alice", "hi", "body", nil))
	if err != nil {
		t.Fatal(err)
	}
	email.GenerateProofOfWork()
	if err := email.Sign(sender); err != nil {
		t.Fatal(err)
	}

	emailBytes, recipientHash, powHex, err := newEmailRow(email)
	if err != nil {
		t.Fatalf("newEmailRow() error = %v", err)
	}
	if len(emailBytes) == 0 {
		t.Error("newEmailRow() returned empty serialized bytes")
	}
	if !bytes.Equal(recipientHash, email.RecipientPublicKeyPEMHash[:]) {
		t.Error("newEmailRow() recipient hash mismatch")
	}
	if powHex != email.ComputeHash() {
		t.Error("newEmailRow() proof of work hash mismatch")
	}
}
