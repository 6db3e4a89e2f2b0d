package model

import (
	"errors"
	"strings"
)

// ErrInvalidIdentifier is returned when an identifier is empty after normalization.
var ErrInvalidIdentifier = errors.New("invalid device identifier")

// identifierSeparators are stripped from hardware addresses during normalization,
// covering the colon, hyphen, and Cisco dotted forms.
var identifierSeparators = strings.NewReplacer(":", "", "-", "", ".", "", " ", "")

// NormalizeIdentifier canonicalizes a device identifier: surrounding whitespace
// is trimmed, separators are removed, and hex digits are uppercased. The
// GlobalIdentifier is returned unchanged. NormalizeIdentifier is idempotent.
func NormalizeIdentifier(id string) string {
	id = strings.TrimSpace(id)
	if id == GlobalIdentifier {
		return GlobalIdentifier
	}
	return strings.ToUpper(identifierSeparators.Replace(id))
}

// ValidateIdentifier normalizes id and rejects it if nothing is left.
func ValidateIdentifier(id string) (string, error) {
	normalized := NormalizeIdentifier(id)
	if normalized == "" {
		return "", ErrInvalidIdentifier
	}
	return normalized, nil
}
