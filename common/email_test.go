package common

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
)

func mustKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, RSAKeySize)
	if err != nil {
		t.Fatal(err)
	}
	return priv
}

func TestEmail_FreshEnvelope_EncryptedIntegrityFalse(t *testing.T) {
	recipient := mustKey(t)
	data := NewData("alice", "hi", "body", nil)

	email, err := NewEmail(&recipient.PublicKey, data)
	if err != nil {
		t.Fatal(err)
	}

	if email.CheckEncryptedIntegrity() {
		t.Error("CheckEncryptedIntegrity() = true on a fresh, unsigned envelope")
	}
}

func TestEmail_ProofOfWorkAndSign_EncryptedIntegrityTrue(t *testing.T) {
	recipient := mustKey(t)
	sender := mustKey(t)
	data := NewData("alice", "hi", "body", nil)

	email, err := NewEmail(&recipient.PublicKey, data)
	if err != nil {
		t.Fatal(err)
	}

	email.GenerateProofOfWork()
	if err := email.Sign(sender); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if !email.CheckEncryptedIntegrity() {
		t.Error("CheckEncryptedIntegrity() = false after GenerateProofOfWork + Sign")
	}
}

func TestEmail_FullRoundTrip_DecryptAndVerify(t *testing.T) {
	recipient := mustKey(t)
	sender := mustKey(t)
	data := NewData("alice", "subject", "hello there", []File{NewFile("note.txt", []byte("contents"))})

	email, err := NewEmail(&recipient.PublicKey, data)
	if err != nil {
		t.Fatal(err)
	}
	email.GenerateProofOfWork()
	if err := email.Sign(sender); err != nil {
		t.Fatal(err)
	}

	// Simulate the wire: re-decode through gob so only serialized fields
	// survive to the recipient side.
	encoded, err := email.GobEncode()
	if err != nil {
		t.Fatal(err)
	}
	var received Email
	if err := received.GobDecode(encoded); err != nil {
		t.Fatal(err)
	}

	if !received.CheckEncryptedIntegrity() {
		t.Fatal("CheckEncryptedIntegrity() = false on received envelope")
	}

	if err := received.Decrypt(recipient); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}

	ok, err := received.CheckDecryptedIntegrity()
	if err != nil {
		t.Fatalf("CheckDecryptedIntegrity() error = %v", err)
	}
	if !ok {
		t.Error("CheckDecryptedIntegrity() = false, want true")
	}

	gotData, err := received.Data()
	if err != nil {
		t.Fatal(err)
	}
	if gotData.Title != "subject" || gotData.Text != "hello there" {
		t.Errorf("Data() = %+v, want title/text round-tripped", gotData)
	}
	if len(gotData.Files) != 1 || gotData.Files[0].Name != "note.txt" {
		t.Errorf("Data().Files = %+v, want one file named note.txt", gotData.Files)
	}

	senderPEM, err := received.SenderPublicKeyPEM()
	if err != nil {
		t.Fatal(err)
	}
	wantPEM, err := PublicKeyToPEM(&sender.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if string(senderPEM) != string(wantPEM) {
		t.Error("SenderPublicKeyPEM() did not round-trip to the signer's key")
	}
}

func TestEmail_TamperedDataBytes_BreaksProofOfWork(t *testing.T) {
	recipient := mustKey(t)
	sender := mustKey(t)
	data := NewData("alice", "hi", "body", nil)

	email, err := NewEmail(&recipient.PublicKey, data)
	if err != nil {
		t.Fatal(err)
	}
	email.GenerateProofOfWork()
	if err := email.Sign(sender); err != nil {
		t.Fatal(err)
	}

	email.EDataBytes[0] ^= 0xff

	if email.CheckEncryptedIntegrity() {
		t.Error("CheckEncryptedIntegrity() = true after tampering with EDataBytes")
	}
}

func TestEmail_TamperedSignature_FailsDecryptedVerify(t *testing.T) {
	recipient := mustKey(t)
	sender := mustKey(t)
	data := NewData("alice", "hi", "body", nil)

	email, err := NewEmail(&recipient.PublicKey, data)
	if err != nil {
		t.Fatal(err)
	}
	email.GenerateProofOfWork()
	if err := email.Sign(sender); err != nil {
		t.Fatal(err)
	}
	if err := email.Decrypt(recipient); err != nil {
		t.Fatal(err)
	}

	email.signature[0] ^= 0xff

	ok, err := email.CheckDecryptedIntegrity()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("CheckDecryptedIntegrity() = true after tampering with the decrypted signature")
	}
}

func TestEmail_Sign_BeforeSession_ReturnsErrNotSigned(t *testing.T) {
	recipient := mustKey(t)
	sender := mustKey(t)

	var email Email
	if err := email.Sign(sender); err != ErrNotSigned {
		t.Errorf("Sign() error = %v, want ErrNotSigned", err)
	}
	_ = recipient
}

func TestEmail_Data_BeforeDecrypt_ReturnsErrNotDecrypted(t *testing.T) {
	var email Email
	if _, err := email.Data(); err != ErrNotDecrypted {
		t.Errorf("Data() error = %v, want ErrNotDecrypted", err)
	}
	if _, err := email.SenderPublicKeyPEM(); err != ErrNotDecrypted {
		t.Errorf("SenderPublicKeyPEM() error = %v, want ErrNotDecrypted", err)
	}
}

func TestEmail_ComputeHash_Deterministic(t *testing.T) {
	recipient := mustKey(t)
	data := NewData("alice", "hi", "body", nil)

	email, err := NewEmail(&recipient.PublicKey, data)
	if err != nil {
		t.Fatal(err)
	}

	h1 := email.ComputeHash()
	h2 := email.ComputeHash()
	if h1 != h2 {
		t.Errorf("ComputeHash() not deterministic: %q != %q", h1, h2)
	}

	email.Nonce++
	if email.ComputeHash() == h1 {
		t.Error("ComputeHash() unchanged after incrementing Nonce")
	}
}
