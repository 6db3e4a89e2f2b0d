package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/deviceauth/internal/domain/model"
	"github.com/ericfisherdev/deviceauth/internal/domain/port/driven"
)

// CredentialListener is notified with the normalized identifier after a
// credential has been created, updated, or deleted.
type CredentialListener interface {
	CredentialChanged(ctx context.Context, id string)
}

// CredentialListenerFunc adapts a plain function to CredentialListener.
type CredentialListenerFunc func(ctx context.Context, id string)

// CredentialChanged calls f(ctx, id).
func (f CredentialListenerFunc) CredentialChanged(ctx context.Context, id string) {
	f(ctx, id)
}

// CredentialService is the administrative use case for device credentials.
// It writes through the CredentialStore and then notifies its listeners so
// that cached assumptions about a device (such as "no auth needed") are
// dropped. It knows nothing about what the listeners cache.
type CredentialService struct {
	store     driven.CredentialStore
	logger    *slog.Logger
	listeners []CredentialListener
}

// NewCredentialService creates a new CredentialService. listeners are
// notified in order after each successful mutation.
func NewCredentialService(store driven.CredentialStore, logger *slog.Logger, listeners ...CredentialListener) *CredentialService {
	return &CredentialService{
		store:     store,
		logger:    logger,
		listeners: listeners,
	}
}

// ListCredentials returns every usable stored credential. Rows whose secret
// cannot be decrypted are omitted so one corrupt row never hides the rest;
// each omission is logged with its identifier for the operator.
func (s *CredentialService) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	creds := make([]model.Credential, 0, len(records))
	for _, rec := range records {
		switch r := rec.(type) {
		case model.Decoded:
			creds = append(creds, r.Credential)
		case model.Undecryptable:
			s.logger.Warn("omitting undecryptable credential; re-enter its password to recover it",
				"identifier", r.Identifier)
			undecryptableCredentialsTotal.Inc()
		}
	}
	return creds, nil
}

// GetCredential returns the credential stored for id, or nil if there is none.
func (s *CredentialService) GetCredential(ctx context.Context, id string) (*model.Credential, error) {
	id, err := model.ValidateIdentifier(id)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// SetCredential creates or replaces the credential for id and notifies the
// listeners. The returned Credential reflects the values written; it is not
// re-read from the store, so its timestamps are left zero.
func (s *CredentialService) SetCredential(ctx context.Context, id, username, password, lastSeenIP string) (model.Credential, error) {
	id, err := model.ValidateIdentifier(id)
	if err != nil {
		return model.Credential{}, err
	}

	if err := s.store.Set(ctx, id, username, password, lastSeenIP); err != nil {
		return model.Credential{}, err
	}
	credentialMutationsTotal.WithLabelValues("set").Inc()
	s.logger.Info("credential stored", "identifier", id)

	s.notify(ctx, id)

	return model.Credential{
		Identifier: id,
		Username:   username,
		Password:   password,
		LastSeenIP: lastSeenIP,
	}, nil
}

// DeleteCredential removes the credential for id and notifies the listeners.
// It returns a *model.CredentialNotFoundError, without notifying, when no
// credential is stored for id. A concurrent delete between the existence
// check and the delete is tolerated.
func (s *CredentialService) DeleteCredential(ctx context.Context, id string) error {
	id, err := model.ValidateIdentifier(id)
	if err != nil {
		return err
	}

	exists, err := s.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return &model.CredentialNotFoundError{Identifier: id}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	credentialMutationsTotal.WithLabelValues("delete").Inc()
	s.logger.Info("credential deleted", "identifier", id)

	s.notify(ctx, id)
	return nil
}

// exists reports whether a row is stored for id. A row that cannot be
// decrypted still exists and may be deleted.
func (s *CredentialService) exists(ctx context.Context, id string) (bool, error) {
	cred, err := s.store.Get(ctx, id)
	if err == nil {
		return cred != nil, nil
	}
	if !errors.Is(err, driven.ErrDecryption) {
		return false, fmt.Errorf("check credential %q: %w", id, err)
	}
	return true, nil
}

func (s *CredentialService) notify(ctx context.Context, id string) {
	for _, l := range s.listeners {
		l.CredentialChanged(ctx, id)
	}
}
