package crypto

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/deviceauth/internal/domain/port/driven"
)

func TestAESGCM_RoundTrip(t *testing.T) {
	enc, err := NewAESGCM([]byte("test-secret"))
	require.NoError(t, err)

	for _, plaintext := range []string{"secret1", "", "pässwörd with spaces", "fallback-secret"} {
		ciphertext, err := enc.Encrypt(plaintext)
		require.NoError(t, err)

		got, err := enc.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestAESGCM_NonceIsRandom(t *testing.T) {
	enc, err := NewAESGCM([]byte("test-secret"))
	require.NoError(t, err)

	a, err := enc.Encrypt("same")
	require.NoError(t, err)
	b, err := enc.Encrypt("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestAESGCM_WrongKey(t *testing.T) {
	original, err := NewAESGCM([]byte("old-secret"))
	require.NoError(t, err)
	rotated, err := NewAESGCM([]byte("new-secret"))
	require.NoError(t, err)

	ciphertext, err := original.Encrypt("secret1")
	require.NoError(t, err)

	_, err = rotated.Decrypt(ciphertext)
	require.Error(t, err)
	assert.True(t, errors.Is(err, driven.ErrDecryption))
	assert.True(t, IsDecryptionError(err))
	assert.NotContains(t, err.Error(), ciphertext)
}

func TestAESGCM_Tampered(t *testing.T) {
	enc, err := NewAESGCM([]byte("test-secret"))
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("secret1")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	_, err = enc.Decrypt(base64.StdEncoding.EncodeToString(raw))
	var decErr *driven.DecryptionError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "authentication failed", decErr.Reason)
}

func TestAESGCM_MalformedInput(t *testing.T) {
	enc, err := NewAESGCM([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "%%%"},
		{"too short", base64.StdEncoding.EncodeToString([]byte{blobVersion, 1, 2})},
		{"plaintext stored by mistake", "hunter2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Decrypt(tt.input)
			assert.ErrorIs(t, err, driven.ErrDecryption)
		})
	}
}

func TestAESGCM_UnknownVersion(t *testing.T) {
	enc, err := NewAESGCM([]byte("test-secret"))
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("secret1")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	raw[0] = 0x7f

	_, err = enc.Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.ErrorIs(t, err, driven.ErrDecryption)
}

func TestNewAESGCM_EmptySecret(t *testing.T) {
	enc, err := NewAESGCM(nil)
	assert.Nil(t, enc)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}
