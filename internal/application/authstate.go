package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/deviceauth/internal/domain/model"
)

// AuthStateCache remembers, per device, whether the device was last observed
// to require authentication, so a transport can skip an unauthenticated probe
// it already knows will be challenged. Observations older than the TTL are
// treated as absent and evicted lazily on read or by CleanupExpired.
// All methods are safe for concurrent use.
type AuthStateCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]model.AuthStateEntry
}

// AuthStateOption configures an AuthStateCache.
type AuthStateOption func(*AuthStateCache)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) AuthStateOption {
	return func(c *AuthStateCache) {
		c.now = now
	}
}

// NewAuthStateCache creates an empty cache whose entries expire after ttl.
// A non-positive ttl selects model.DefaultAuthStateTTL.
func NewAuthStateCache(ttl time.Duration, opts ...AuthStateOption) *AuthStateCache {
	if ttl <= 0 {
		ttl = model.DefaultAuthStateTTL
	}
	c := &AuthStateCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]model.AuthStateEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured entry lifetime.
func (c *AuthStateCache) TTL() time.Duration {
	return c.ttl
}

// MarkAuthRequired records that the device challenged an unauthenticated request.
func (c *AuthStateCache) MarkAuthRequired(id string) {
	c.mark(id, true)
}

// MarkAuthNotRequired records that the device accepted an unauthenticated request.
func (c *AuthStateCache) MarkAuthNotRequired(id string) {
	c.mark(id, false)
}

func (c *AuthStateCache) mark(id string, requiresAuth bool) {
	id = model.NormalizeIdentifier(id)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = model.AuthStateEntry{
		Identifier:   id,
		RequiresAuth: requiresAuth,
		ObservedAt:   c.now(),
	}
}

// RequiresAuth reports whether the device is known to require authentication.
// It returns false when nothing is recorded or the record has expired.
func (c *AuthStateCache) RequiresAuth(id string) bool {
	entry, ok := c.lookup(id)
	return ok && entry.RequiresAuth
}

// IsKnown reports whether an unexpired observation exists for the device.
func (c *AuthStateCache) IsKnown(id string) bool {
	_, ok := c.lookup(id)
	return ok
}

// Lookup reports both fields of a device's observation from one read, so an
// entry expiring mid-call cannot yield a mixed answer.
func (c *AuthStateCache) Lookup(id string) (requiresAuth, known bool) {
	entry, ok := c.lookup(id)
	return ok && entry.RequiresAuth, ok
}

// lookup returns the live entry for id, evicting it if it has expired.
func (c *AuthStateCache) lookup(id string) (model.AuthStateEntry, bool) {
	id = model.NormalizeIdentifier(id)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return model.AuthStateEntry{}, false
	}
	if entry.Expired(c.now(), c.ttl) {
		delete(c.entries, id)
		authStateEvictionsTotal.Inc()
		return model.AuthStateEntry{}, false
	}
	return entry, true
}

// Invalidate drops the observation for one device.
func (c *AuthStateCache) Invalidate(id string) {
	id = model.NormalizeIdentifier(id)

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, id)
}

// Clear drops every entry.
func (c *AuthStateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}

// CleanupExpired evicts every expired entry and returns how many were removed.
func (c *AuthStateCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for id, entry := range c.entries {
		if entry.Expired(now, c.ttl) {
			delete(c.entries, id)
			evicted++
		}
	}
	authStateEvictionsTotal.Add(float64(evicted))
	return evicted
}

// Len returns the number of entries held, including expired entries that
// have not been evicted yet.
func (c *AuthStateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// CredentialChanged implements CredentialListener. A change to a device's
// credential drops that device's observation; a change to the global
// fallback may affect any device, so everything is dropped.
func (c *AuthStateCache) CredentialChanged(_ context.Context, id string) {
	if model.NormalizeIdentifier(id) == model.GlobalIdentifier {
		c.Clear()
		return
	}
	c.Invalidate(id)
}

// DefaultAuthStateSweepInterval is used by RunAuthStateSweeper when given a
// non-positive interval.
const DefaultAuthStateSweepInterval = 5 * time.Minute

// RunAuthStateSweeper calls cache.CleanupExpired every interval until ctx is
// canceled. Hosts run it in its own goroutine.
func RunAuthStateSweeper(ctx context.Context, cache *AuthStateCache, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		logger.Warn("invalid auth state sweep interval, using default",
			"interval", interval, "default", DefaultAuthStateSweepInterval)
		interval = DefaultAuthStateSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("auth state sweeper stopped")
			return
		case <-ticker.C:
			if evicted := cache.CleanupExpired(); evicted > 0 {
				logger.Debug("auth state entries evicted", "evicted", evicted, "remaining", cache.Len())
			}
		}
	}
}
