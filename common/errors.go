package common

import "errors"

// Crypto errors.
var (
	// ErrAESCiphertextShort is returned when AES-GCM ciphertext is too
	// short to contain an IV and a tag.
	ErrAESCiphertextShort = errors.New("common: aes ciphertext too short")
)

// Package framing errors.
var (
	// ErrTooBig is returned by Send/Receive when a Package's serialized
	// size exceeds PackageMaxSize.
	ErrTooBig = errors.New("common: package too big")

	// ErrInvalidPassword is returned by Receive when the received
	// password hash does not match the expected one. The receiver has
	// already sent an InvalidPassword response by the time this is
	// returned.
	ErrInvalidPassword = errors.New("common: invalid password")

	// ErrInvalidAction is returned by Receive when the package's action
	// is not in the caller-supplied accept set.
	ErrInvalidAction = errors.New("common: invalid action")
)

// Email object errors.
var (
	// ErrNotSigned is a programmer error: Sign was called before
	// GenerateProofOfWork, or on an Email with no session key (one not
	// built by NewEmail or opened by Decrypt).
	ErrNotSigned = errors.New("common: email not signed")

	// ErrNotDecrypted is a programmer error: a decrypted accessor was
	// called before Decrypt succeeded.
	ErrNotDecrypted = errors.New("common: email not decrypted")
)
