// Package crypto implements the driven.Encryptor port with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/ericfisherdev/deviceauth/internal/domain/port/driven"
)

// KeySize is the AES-256 key size derived from the process secret.
const KeySize = 32

// blobVersion is prepended to every ciphertext and bound as additional
// authenticated data, so a tampered version byte fails authentication.
const blobVersion byte = 0x01

// hkdfInfo separates the credential key from any other key derived from
// the same secret. Changing it invalidates all stored ciphertext.
var hkdfInfo = []byte("deviceauth.credential.password.v1")

// Compile-time interface satisfaction check.
var _ driven.Encryptor = (*AESGCM)(nil)

// AESGCM encrypts secrets with AES-256-GCM under a key derived from a
// process-wide secret. Encoded form: base64(version || nonce || ciphertext || tag).
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM derives a 32-byte key from secret with HKDF-SHA256 and returns
// a ready Encryptor. secret must be non-empty.
func NewAESGCM(secret []byte) (*AESGCM, error) {
	if len(secret) == 0 {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	return &AESGCM{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (e *AESGCM) Encrypt(plaintext string) (string, error) {
	nonceSize := e.aead.NonceSize()
	buf := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+e.aead.Overhead())
	buf[0] = blobVersion
	nonce := buf[1 : 1+nonceSize]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends to buf, producing: version || nonce || ciphertext || tag.
	sealed := e.aead.Seal(buf, nonce, []byte(plaintext), buf[:1])
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Every failure is reported as a
// *driven.DecryptionError.
func (e *AESGCM) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", &driven.DecryptionError{Reason: "malformed encoding"}
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < 1+nonceSize+e.aead.Overhead() {
		return "", &driven.DecryptionError{Reason: "ciphertext too short"}
	}
	if data[0] != blobVersion {
		return "", &driven.DecryptionError{Reason: fmt.Sprintf("unsupported version %d", data[0])}
	}

	nonce, ciphertext := data[1:1+nonceSize], data[1+nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, data[:1])
	if err != nil {
		return "", &driven.DecryptionError{Reason: "authentication failed"}
	}

	return string(plaintext), nil
}

// IsDecryptionError reports whether err is, or wraps, a decryption failure.
func IsDecryptionError(err error) bool {
	return errors.Is(err, driven.ErrDecryption)
}
