package common

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

const cryptoSHA256 = crypto.SHA256

// Hash returns the SHA-256 digest of data.
func Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HashWithSalt returns the SHA-256 digest of data concatenated with salt.
func HashWithSalt(data, salt []byte) [32]byte {
	joined := make([]byte, 0, len(data)+len(salt))
	joined = append(joined, data...)
	joined = append(joined, salt...)
	return Hash(joined)
}

// Random returns n cryptographically strong random bytes. A non-positive n
// is replaced with DefaultRandomBytesLength.
func Random(n int) ([]byte, error) {
	if n <= 0 {
		n = DefaultRandomBytesLength
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("common: generate random bytes: %w", err)
	}
	return b, nil
}

// AESCipher wraps an AES-256-GCM key. Encrypt/Decrypt use the on-wire
// layout iv(16) || ciphertext || tag(16).
type AESCipher struct {
	key []byte
}

// NewAESCipher builds an AESCipher from a 32-byte key.
func NewAESCipher(key []byte) *AESCipher {
	return &AESCipher{key: key}
}

func (c *AESCipher) newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("common: new aes cipher: %w", err)
	}
	// 16-byte (not the default 12-byte) nonce, to match the
	// iv(16) || ct || tag(16) wire layout.
	gcm, err := cipher.NewGCMWithNonceSize(block, 16)
	if err != nil {
		return nil, fmt.Errorf("common: new gcm: %w", err)
	}
	return gcm, nil
}

// Encrypt returns iv || ciphertext || tag for plaintext under an empty AAD.
func (c *AESCipher) Encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := c.newGCM()
	if err != nil {
		return nil, err
	}
	iv, err := Random(gcm.NonceSize())
	if err != nil {
		return nil, err
	}
	return gcm.Seal(iv, iv, plaintext, nil), nil
}

// Decrypt splits data into iv || ciphertext || tag and opens it. It fails
// if the tag does not verify.
func (c *AESCipher) Decrypt(data []byte) ([]byte, error) {
	gcm, err := c.newGCM()
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	tagSize := 16
	if len(data) < nonceSize+tagSize {
		return nil, ErrAESCiphertextShort
	}
	iv := data[:nonceSize]
	ct := data[nonceSize:]
	plaintext, err := gcm.Open(nil, iv, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("common: aes decrypt: %w", err)
	}
	return plaintext, nil
}

// RSAWrap RSA-OAEP-SHA256-wraps s under pub. The output length equals the
// modulus size in bytes.
func RSAWrap(pub *rsa.PublicKey, s []byte) ([]byte, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, s, nil)
	if err != nil {
		return nil, fmt.Errorf("common: rsa wrap: %w", err)
	}
	return ct, nil
}

// RSAUnwrap RSA-OAEP-SHA256-unwraps c under priv. Callers must truncate
// the result to the known session length; see SessionFromUnwrapped.
func RSAUnwrap(priv *rsa.PrivateKey, c []byte) ([]byte, error) {
	pt, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, c, nil)
	if err != nil {
		return nil, fmt.Errorf("common: rsa unwrap: %w", err)
	}
	return pt, nil
}

// SessionFromUnwrapped truncates an RSA-unwrapped buffer to the known
// session length. Some RSA implementations return a buffer sized to the
// modulus rather than to the recovered plaintext; every caller must pass
// unwrapped output through this before using it as an AES key.
func SessionFromUnwrapped(unwrapped []byte) []byte {
	if len(unwrapped) <= DefaultRandomBytesLength {
		return unwrapped
	}
	return unwrapped[:DefaultRandomBytesLength]
}

// RSASignPSS signs the SHA-256 digest of m with RSA-PSS.
func RSASignPSS(priv *rsa.PrivateKey, m []byte) ([]byte, error) {
	digest := sha256.Sum256(m)
	sig, err := rsa.SignPSS(rand.Reader, priv, cryptoSHA256, digest[:], nil)
	if err != nil {
		return nil, fmt.Errorf("common: rsa sign: %w", err)
	}
	return sig, nil
}

// RSAVerifyPSS verifies an RSA-PSS signature over the SHA-256 digest of m.
func RSAVerifyPSS(pub *rsa.PublicKey, m, sig []byte) error {
	digest := sha256.Sum256(m)
	if err := rsa.VerifyPSS(pub, cryptoSHA256, digest[:], sig, nil); err != nil {
		return fmt.Errorf("common: rsa verify: %w", err)
	}
	return nil
}
