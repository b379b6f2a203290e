// Package common holds the pieces shared by both the node and the client:
// cryptographic primitives, the wire Package envelope, and the Email
// object itself.
package common

import "time"

const (
	// PackageMaxSize bounds both a sent and a received Package at 10 MiB.
	PackageMaxSize = 10 * 1024 * 1024

	// PackageReceiveTimeout bounds a single Receive call.
	PackageReceiveTimeout = 5 * time.Second

	// ProofOfWorkDifficulty is the number of leading hex zeros an Email's
	// envelope hash must have before it is considered signed-ready.
	ProofOfWorkDifficulty = 5

	// DefaultRandomBytesLength is the size, in bytes, of a freshly
	// generated session key (and the default for Random).
	DefaultRandomBytesLength = 32

	// EmailsMaxAge is how long a relayed envelope, or a client's decrypted
	// received row, is kept before the reaper deletes it.
	EmailsMaxAge = 2 * 24 * time.Hour

	// CheckOldEmailsInterval is how often the reaper task runs.
	CheckOldEmailsInterval = 24 * time.Hour

	// PasswordSalt salts a node's configured connection password before
	// it is ever compared or transmitted.
	PasswordSalt = "password-salt"

	// RSAKeySize is the modulus size, in bits, of every user/node RSA key.
	RSAKeySize = 2048
)

// proofOfWorkPrefix is the lowercase-hex string an Email's envelope hash
// must start with; computed once since ProofOfWorkDifficulty is constant.
var proofOfWorkPrefix = func() string {
	b := make([]byte, ProofOfWorkDifficulty)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}()
