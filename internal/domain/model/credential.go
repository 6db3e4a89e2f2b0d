package model

import "time"

// GlobalIdentifier is the reserved identifier of the fallback credential used
// for any device that has no credential of its own.
const GlobalIdentifier = "*"

// Credential holds the authentication material for one device, or for every
// device without a specific entry when Identifier is GlobalIdentifier.
// Password is plaintext in memory; the store encrypts it at rest.
type Credential struct {
	Identifier string
	Username   string
	Password   string
	LastSeenIP string // informational only; empty when never reported
	CreatedAt  time.Time
	RotatedAt  time.Time // zero until the credential is first updated
}

// IsGlobal reports whether c is the fallback credential.
func (c Credential) IsGlobal() bool {
	return c.Identifier == GlobalIdentifier
}

// WasRotated reports whether c has been updated since it was created.
func (c Credential) WasRotated() bool {
	return !c.RotatedAt.IsZero()
}

// CredentialRecord is one stored row as returned by a full listing. It is
// either Decoded, carrying a usable Credential, or Undecryptable, carrying
// only the identifier of a row whose secret could not be decrypted.
// Callers type-switch on the concrete variant.
type CredentialRecord interface {
	RecordIdentifier() string
	isCredentialRecord()
}

// Decoded is a CredentialRecord whose secret decrypted successfully.
type Decoded struct {
	Credential Credential
}

// RecordIdentifier returns the normalized identifier of the row.
func (d Decoded) RecordIdentifier() string { return d.Credential.Identifier }

func (Decoded) isCredentialRecord() {}

// Undecryptable is a CredentialRecord whose secret failed its integrity check
// or was encrypted under a different key. The row is kept in storage so the
// secret can be re-entered after a key rotation.
type Undecryptable struct {
	Identifier string
}

// RecordIdentifier returns the normalized identifier of the row.
func (u Undecryptable) RecordIdentifier() string { return u.Identifier }

func (Undecryptable) isCredentialRecord() {}
