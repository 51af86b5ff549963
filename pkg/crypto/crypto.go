// Package crypto provides the HMAC/encryption utility shared by all tenants.
// It is registered once in the dependency container and used to sign audit
// entries and protect small secrets at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
)

// Util derives signing and encryption keys from one master secret.
type Util struct {
	signKey []byte
	aead    cipher.AEAD
}

// New builds the utility from a master secret. An empty secret is rejected.
func New(secret string) (*Util, error) {
	if secret == "" {
		return nil, errors.New("crypto: master secret is required")
	}
	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Util{
		signKey: key[:],
		aead:    aead,
	}, nil
}

// Sign returns the hex HMAC-SHA256 of data.
func (u *Util) Sign(data []byte) string {
	mac := hmac.New(sha256.New, u.signKey)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign in constant time.
func (u *Util) Verify(data []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, u.signKey)
	mac.Write(data)
	return hmac.Equal(mac.Sum(nil), expected)
}

// Encrypt seals plaintext with AES-GCM, prepending the nonce.
func (u *Util) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, u.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return u.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens data produced by Encrypt.
func (u *Util) Decrypt(data []byte) ([]byte, error) {
	size := u.aead.NonceSize()
	if len(data) < size {
		return nil, errors.New("crypto: ciphertext too short")
	}
	return u.aead.Open(nil, data[:size], data[size:], nil)
}
