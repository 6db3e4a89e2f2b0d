package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/deviceauth/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// DEVICEAUTH_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set DEVICEAUTH_SECRET_KEY")

// CredentialStore defines the driven port for encrypted per-device credential
// persistence. Identifiers passed in must already be normalized with
// model.NormalizeIdentifier. Every call acquires its own short-lived handle,
// committed and released before it returns, so calls may run concurrently.
type CredentialStore interface {
	// Get returns the credential stored for id, or (nil, nil) when absent.
	// A row whose secret cannot be decrypted yields an error wrapping ErrDecryption.
	Get(ctx context.Context, id string) (*model.Credential, error)

	// GetGlobal is Get(ctx, model.GlobalIdentifier).
	GetGlobal(ctx context.Context) (*model.Credential, error)

	// Set inserts or overwrites the credential for id in a single transaction.
	// An existing row keeps its CreatedAt and gets RotatedAt set to now.
	// An empty lastSeenIP leaves any stored address untouched.
	Set(ctx context.Context, id, username, password, lastSeenIP string) error

	// Delete removes the credential for id. Deleting an absent row is not an error.
	Delete(ctx context.Context, id string) error

	// ListAll returns one record per stored row, ordered by identifier.
	// Rows that fail to decrypt are returned as model.Undecryptable.
	ListAll(ctx context.Context) ([]model.CredentialRecord, error)
}
