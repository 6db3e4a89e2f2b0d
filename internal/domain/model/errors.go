package model

import (
	"errors"
	"fmt"
)

// ErrCredentialNotFound is matched by errors.Is for any *CredentialNotFoundError.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialNotFoundError is returned when a mutation targets an identifier
// with no stored credential. Identifier is the normalized form.
type CredentialNotFoundError struct {
	Identifier string
}

func (e *CredentialNotFoundError) Error() string {
	return fmt.Sprintf("credential not found for %q", e.Identifier)
}

// Is lets errors.Is(err, ErrCredentialNotFound) match.
func (e *CredentialNotFoundError) Is(target error) bool {
	return target == ErrCredentialNotFound
}
