package common

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strings"
	"time"
)

// File is an attachment carried in Data. Data is base64-encoded so Data
// itself can round-trip through gob/JSON without surprises.
type File struct {
	Name string
	Data string // base64
}

// NewFile base64-encodes data under name.
func NewFile(name string, data []byte) File {
	return File{Name: name, Data: base64.StdEncoding.EncodeToString(data)}
}

// Decode returns f's decoded attachment bytes.
func (f File) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// Data is the plaintext payload shown to the recipient once decrypted.
type Data struct {
	SenderUsername string
	Title          string
	Text           string
	Files          []File // nil means "no attachments"
	SentAt         time.Time
}

// NewData builds a Data stamped with the current time.
func NewData(senderUsername, title, text string, files []File) Data {
	return Data{
		SenderUsername: senderUsername,
		Title:          title,
		Text:           text,
		Files:          files,
		SentAt:         time.Now().UTC(),
	}
}

// Email is a self-contained, hybrid-encrypted envelope.
//
// Its lifecycle is a small state machine encoded by which fields are
// populated:
//
//	New -> GenerateProofOfWork -> Sign -> wire form
//	wire form -> Decrypt -> decrypted fields available
//
// Calling Sign before GenerateProofOfWork, or reading a decrypted field
// before Decrypt, is a programmer error and returns ErrNotSigned /
// ErrNotDecrypted.
type Email struct {
	RecipientPublicKeyPEMHash [32]byte
	Nonce                     uint64
	ESession                  []byte
	EDataBytes                []byte
	ESenderPublicKeyPEM       []byte // nil until Sign
	ESignature                []byte // nil until Sign

	// Transient fields: never serialized (see GobEncode/GobDecode below).
	session            []byte
	data               *Data
	senderPublicKeyPEM []byte
	signature          []byte
}

// wireEmail is the exact subset of Email that travels over the wire; gob
// encodes/decodes through it so the transient fields never leak and a
// decoded Email always starts in the "not decrypted" state.
type wireEmail struct {
	RecipientPublicKeyPEMHash [32]byte
	Nonce                     uint64
	ESession                  []byte
	EDataBytes                []byte
	ESenderPublicKeyPEM       []byte
	ESignature                []byte
}

// GobEncode implements gob.GobEncoder, restricting the wire form to the
// fields that are meant to be serialized.
func (e *Email) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	w := wireEmail{
		RecipientPublicKeyPEMHash: e.RecipientPublicKeyPEMHash,
		Nonce:                     e.Nonce,
		ESession:                  e.ESession,
		EDataBytes:                e.EDataBytes,
		ESenderPublicKeyPEM:       e.ESenderPublicKeyPEM,
		ESignature:                e.ESignature,
	}
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (e *Email) GobDecode(data []byte) error {
	var w wireEmail
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	e.RecipientPublicKeyPEMHash = w.RecipientPublicKeyPEMHash
	e.Nonce = w.Nonce
	e.ESession = w.ESession
	e.EDataBytes = w.EDataBytes
	e.ESenderPublicKeyPEM = w.ESenderPublicKeyPEM
	e.ESignature = w.ESignature
	return nil
}

// NewEmail builds an unsigned, no-PoW Email addressed to recipientPub,
// carrying data.
func NewEmail(recipientPub *rsa.PublicKey, data Data) (*Email, error) {
	recipientPEM, err := PublicKeyToPEM(recipientPub)
	if err != nil {
		return nil, fmt.Errorf("common: recipient public key to pem: %w", err)
	}
	recipientHash := Hash(recipientPEM)

	session, err := Random(DefaultRandomBytesLength)
	if err != nil {
		return nil, fmt.Errorf("common: generate session: %w", err)
	}
	eSession, err := RSAWrap(recipientPub, session)
	if err != nil {
		return nil, fmt.Errorf("common: wrap session: %w", err)
	}

	dataBytes, err := gobEncode(data)
	if err != nil {
		return nil, fmt.Errorf("common: encode data: %w", err)
	}
	eDataBytes, err := NewAESCipher(session).Encrypt(dataBytes)
	if err != nil {
		return nil, fmt.Errorf("common: encrypt data: %w", err)
	}

	return &Email{
		RecipientPublicKeyPEMHash: recipientHash,
		ESession:                  eSession,
		EDataBytes:                eDataBytes,
		session:                   session,
		data:                      &data,
	}, nil
}

// GenerateProofOfWork increments Nonce until ComputeHash begins with
// ProofOfWorkDifficulty hex zeros. Long-running: callers should run this
// off any latency-sensitive goroutine/worker pool.
func (e *Email) GenerateProofOfWork() {
	for !e.checkProofOfWork() {
		e.Nonce++
	}
}

// Sign computes the envelope hash, PSS-signs it with senderPriv, and
// AES-encrypts both the signature and the sender's public key PEM under
// the session key established by NewEmail/Decrypt.
func (e *Email) Sign(senderPriv *rsa.PrivateKey) error {
	cipher, err := e.makeAESCipher()
	if err != nil {
		return err
	}
	if !e.checkProofOfWork() {
		return ErrNotSigned
	}

	hashHex := e.ComputeHash()
	sig, err := RSASignPSS(senderPriv, []byte(hashHex))
	if err != nil {
		return fmt.Errorf("common: sign email: %w", err)
	}
	senderPEM, err := PublicKeyToPEM(&senderPriv.PublicKey)
	if err != nil {
		return fmt.Errorf("common: sender public key to pem: %w", err)
	}

	eSig, err := cipher.Encrypt(sig)
	if err != nil {
		return fmt.Errorf("common: encrypt signature: %w", err)
	}
	eSenderPEM, err := cipher.Encrypt(senderPEM)
	if err != nil {
		return fmt.Errorf("common: encrypt sender public key: %w", err)
	}

	e.ESignature = eSig
	e.signature = sig
	e.ESenderPublicKeyPEM = eSenderPEM
	e.senderPublicKeyPEM = senderPEM
	return nil
}

// CheckEncryptedIntegrity reports whether e's proof-of-work is satisfied
// and it carries both an encrypted signature and an encrypted sender
// public key — everything a node can check without decrypting anything.
func (e *Email) CheckEncryptedIntegrity() bool {
	return e.checkProofOfWork() && e.checkIsSigned()
}

// Decrypt RSA-unwraps the session key with recipientPriv, then
// AES-decrypts the data, sender public key, and signature fields.
func (e *Email) Decrypt(recipientPriv *rsa.PrivateKey) error {
	unwrapped, err := RSAUnwrap(recipientPriv, e.ESession)
	if err != nil {
		return fmt.Errorf("common: unwrap session: %w", err)
	}
	session := SessionFromUnwrapped(unwrapped)
	cipher := NewAESCipher(session)

	dataBytes, err := cipher.Decrypt(e.EDataBytes)
	if err != nil {
		return fmt.Errorf("common: decrypt data: %w", err)
	}
	senderPEM, err := cipher.Decrypt(e.ESenderPublicKeyPEM)
	if err != nil {
		return fmt.Errorf("common: decrypt sender public key: %w", err)
	}
	sig, err := cipher.Decrypt(e.ESignature)
	if err != nil {
		return fmt.Errorf("common: decrypt signature: %w", err)
	}

	var data Data
	if err := gobDecode(dataBytes, &data); err != nil {
		return fmt.Errorf("common: decode data: %w", err)
	}

	e.session = session
	e.data = &data
	e.senderPublicKeyPEM = senderPEM
	e.signature = sig
	return nil
}

// CheckDecryptedIntegrity PSS-verifies the signature over ComputeHash
// under the sender's decrypted public key. Must be called after Decrypt.
func (e *Email) CheckDecryptedIntegrity() (bool, error) {
	if !e.checkIsSigned() || e.senderPublicKeyPEM == nil || e.signature == nil {
		return false, nil
	}
	pub, err := PublicKeyFromPEM(e.senderPublicKeyPEM)
	if err != nil {
		return false, fmt.Errorf("common: sender public key from pem: %w", err)
	}
	if err := RSAVerifyPSS(pub, []byte(e.ComputeHash()), e.signature); err != nil {
		return false, nil
	}
	return true, nil
}

// ComputeHash returns the lowercase-hex envelope hash H_e, computed over
// the PoW-bound subset of fields. Pure; safe to call any number of times.
func (e *Email) ComputeHash() string {
	var nonceBE [8]byte
	binary.BigEndian.PutUint64(nonceBE[:], e.Nonce)

	parts := make([]byte, 0, 8+len(e.ESession)+32+len(e.EDataBytes))
	parts = append(parts, nonceBE[:]...)
	parts = append(parts, e.ESession...)
	parts = append(parts, e.RecipientPublicKeyPEMHash[:]...)
	parts = append(parts, e.EDataBytes...)

	h := Hash(parts)
	return hex.EncodeToString(h[:])
}

// Data returns the decrypted payload. Valid only after Decrypt (recipient
// side) or immediately after NewEmail (sender side).
func (e *Email) Data() (*Data, error) {
	if e.data == nil {
		return nil, ErrNotDecrypted
	}
	return e.data, nil
}

// SenderPublicKeyPEM returns the decrypted sender public key PEM. Valid
// only after Decrypt or Sign.
func (e *Email) SenderPublicKeyPEM() ([]byte, error) {
	if e.senderPublicKeyPEM == nil {
		return nil, ErrNotDecrypted
	}
	return e.senderPublicKeyPEM, nil
}

func (e *Email) checkIsSigned() bool {
	return e.ESignature != nil && e.ESenderPublicKeyPEM != nil
}

func (e *Email) checkProofOfWork() bool {
	return strings.HasPrefix(e.ComputeHash(), proofOfWorkPrefix)
}

func (e *Email) makeAESCipher() (*AESCipher, error) {
	if e.session == nil {
		return nil, ErrNotSigned
	}
	return NewAESCipher(e.session), nil
}

func PublicKeyToPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func PublicKeyFromPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("common: invalid public key pem")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("common: public key is not rsa")
	}
	return pub, nil
}

func PrivateKeyToPEM(priv *rsa.PrivateKey) []byte {
	der := x509.MarshalPKCS1PrivateKey(priv)
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})
}

func PrivateKeyFromPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("common: invalid private key pem")
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

func gobEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
