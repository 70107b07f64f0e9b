// Package crypto seals the site credentials file with AES-GCM. The key is
// supplied out of band (env or key file), never stored next to the
// ciphertext.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

type AEAD struct{ aead cipher.AEAD }

// New builds an AEAD from a 16, 24 or 32 byte key.
func New(key []byte) (*AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	a, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AEAD{aead: a}, nil
}

// NewFromHex builds an AEAD from a hex-encoded key, the form carried in
// configuration.
func NewFromHex(hexKey string) (*AEAD, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	return New(key)
}

// GenerateKeyHex returns a fresh random 32-byte key, hex encoded.
func GenerateKeyHex() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

func (a *AEAD) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return a.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (a *AEAD) Decrypt(buf []byte) ([]byte, error) {
	ns := a.aead.NonceSize()
	if len(buf) < ns {
		return nil, fmt.Errorf("ciphertext too short")
	}
	return a.aead.Open(nil, buf[:ns], buf[ns:], nil)
}

func (a *AEAD) EncryptToString(plaintext string) (string, error) {
	buf, err := a.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

func (a *AEAD) DecryptString(ciphertextB64 string) (string, error) {
	buf, err := base64.RawStdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", err
	}
	pt, err := a.Decrypt(buf)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
