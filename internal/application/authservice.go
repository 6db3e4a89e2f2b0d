package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ericfisherdev/deviceauth/internal/domain/model"
	"github.com/ericfisherdev/deviceauth/internal/domain/port/driven"
)

// AuthService resolves which stored credential a transport should present to
// a device. Resolution order: the device's own credential, then the global
// fallback, then none. It depends only on the CredentialStore port.
type AuthService struct {
	store  driven.CredentialStore
	logger *slog.Logger
}

// NewAuthService creates a new AuthService with the required dependencies.
func NewAuthService(store driven.CredentialStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:  store,
		logger: logger,
	}
}

// ResolveCredentials returns the credential to use for the device identified
// by id, or nil when none applies. It never fails: lookup errors are logged
// and resolve to nil so the caller can still try an unauthenticated request.
// A device credential that cannot be decrypted is skipped in favour of the
// global fallback, as is an identifier that normalizes to empty.
func (s *AuthService) ResolveCredentials(ctx context.Context, id string) *model.Credential {
	id = model.NormalizeIdentifier(id)

	if id != "" && id != model.GlobalIdentifier {
		cred, err := s.store.Get(ctx, id)
		switch {
		case errors.Is(err, driven.ErrDecryption):
			s.logger.Warn("device credential undecryptable, trying global fallback", "identifier", id)
		case err != nil:
			s.lookupFailed("credential lookup failed", id, err)
			return nil
		case cred != nil:
			credentialResolutionsTotal.WithLabelValues(resolutionSourceDevice).Inc()
			return cred
		}
	}

	cred, err := s.store.GetGlobal(ctx)
	if err != nil {
		s.lookupFailed("global credential lookup failed", id, err)
		return nil
	}
	if cred == nil {
		credentialResolutionsTotal.WithLabelValues(resolutionSourceNone).Inc()
		return nil
	}

	credentialResolutionsTotal.WithLabelValues(resolutionSourceGlobal).Inc()
	return cred
}

// lookupFailed records a resolution that could not consult the store. A store
// running without an encryption key is a configured state, so it resolves to
// none and logs at debug level.
func (s *AuthService) lookupFailed(msg, id string, err error) {
	if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		s.logger.Debug(msg, "identifier", id, "error", err)
		credentialResolutionsTotal.WithLabelValues(resolutionSourceNone).Inc()
		return
	}
	s.logger.Error(msg, "identifier", id, "error", err)
	credentialResolutionsTotal.WithLabelValues(resolutionSourceError).Inc()
}
