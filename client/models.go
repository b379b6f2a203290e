// Package client implements the local encrypted store and the
// retrieval/send engines that talk to configured nodes over the wire
// protocol defined in common.
package client

import (
	"time"

	"github.com/rylenko/emaild/common"
)

// User is the decrypted row form of a logged-in account: everything the
// rest of the package needs to address it and derive its AES cipher.
type User struct {
	ID       int32
	Username string
	Password string
}

// userRow is User's at-rest form: hash-indexed, password hashed with a
// per-user salt, private key encrypted under the key User.makeAESCipher
// derives from Username and Password.
//
// aes key = sha256(password, username)
// username_hash = sha256(username)
// password_hash = sha256(password, salt)
// encrypted_private_key_pem = aes[aes key](private key pem)
type userRow struct {
	ID                     int32
	UsernameHash           []byte
	PasswordHash           []byte
	EncryptedPrivateKeyPEM []byte
	Salt                   []byte
	F2FEnabled             bool
	CreatedAt              time.Time
}

// Friend is the decrypted row form of an address-book entry.
type Friend struct {
	ID        int32
	Username  string
	PublicKey string // base64(public key PEM)
}

// friendRow is Friend's at-rest form, salted and encrypted under the
// owning user's AES cipher.
//
// username_hash = sha256(friend username, user salt)
// public_key_pem_base64_hash = sha256(base64(friend public key pem), user salt)
// encrypted_username = aes[key](friend username)
// encrypted_public_key_pem_base64 = aes[key](base64(friend public key pem))
type friendRow struct {
	ID                          int32
	UserID                      int32
	UsernameHash                []byte
	PublicKeyPEMBase64Hash      []byte
	EncryptedUsername           []byte
	EncryptedPublicKeyPEMBase64 []byte
	CreatedAt                   time.Time
}

// Node is the decrypted row form of a configured relay peer.
type Node struct {
	ID       int32
	Address  string
	Password *string
}

func (n Node) into() (string, *string) { return n.Address, n.Password }

// nodeRow is Node's at-rest form.
//
// address_hash = sha256(address, user salt)
// encrypted_address = aes[key](address)
// encrypted_password = aes[key](password), if any
type nodeRow struct {
	ID                 int32
	UserID             int32
	AddressHash        []byte
	EncryptedAddress   []byte
	EncryptedPassword  []byte // nil when the node has no password
	CreatedAt          time.Time
}

// ReceivedEmail is the decrypted row form of a stored, received email.
type ReceivedEmail struct {
	ID                 int32
	SenderPublicKeyPEM string
	Data               common.Data
}

// emailRow is ReceivedEmail's at-rest form.
//
// encrypted_sender_public_key_pem = aes[key](sender public key pem)
// encrypted_data_bytes = aes[key](gob-encoded common.Data)
// proof_of_work_hex = email.ComputeHash(), kept to dedup incoming envelopes.
type emailRow struct {
	ID                          int32
	UserID                      int32
	EncryptedSenderPublicKeyPEM []byte
	EncryptedDataBytes          []byte
	ProofOfWorkHex              string
	CreatedAt                   time.Time
}
