package driven

import (
	"errors"
	"fmt"
)

// ErrDecryption is matched by errors.Is for any *DecryptionError.
var ErrDecryption = errors.New("decryption failed")

// DecryptionError reports ciphertext that failed its integrity check or was
// produced under a different key. It is recoverable: the caller decides whether
// to skip the value. Reason never contains plaintext or ciphertext bytes.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed: %s", e.Reason)
}

// Is lets errors.Is(err, ErrDecryption) match.
func (e *DecryptionError) Is(target error) bool {
	return target == ErrDecryption
}

// Encryptor protects credential secrets at rest with an authenticated cipher.
type Encryptor interface {
	// Encrypt returns an opaque, self-contained ciphertext string for plaintext.
	Encrypt(plaintext string) (string, error)

	// Decrypt reverses Encrypt. It returns a *DecryptionError when the
	// ciphertext is corrupt or was produced with another key.
	Decrypt(ciphertext string) (string, error)
}
