package model

import "time"

// DefaultAuthStateTTL bounds how long an observation of a device's
// authentication requirement is trusted.
const DefaultAuthStateTTL = time.Hour

// AuthStateEntry records whether a device was last observed to require
// authentication. Entries live only in memory.
type AuthStateEntry struct {
	Identifier   string
	RequiresAuth bool
	ObservedAt   time.Time
}

// Expired reports whether the entry is older than ttl at now.
func (e AuthStateEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.ObservedAt) > ttl
}
