package cache

import (
	"context"
	"time"
)

// Entry is a cached generation response. An entry is never served past
// ExpiresAt and no two live entries share a fingerprint.
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	Text        string    `json:"text"`
	ProviderID  string    `json:"provider_id"`
	TokensUsed  int       `json:"tokens_used"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at the given time
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// ResponseCache is the content-addressable response store. Implementations
// must degrade gracefully: a storage failure on Get is a miss, on Put a no-op,
// never an error surfaced to the request path.
type ResponseCache interface {
	// Get returns the live entry for a fingerprint, or a miss
	Get(ctx context.Context, fingerprint string) (*Entry, bool)

	// Put stores an entry under its fingerprint with the given TTL,
	// replacing any live entry with the same fingerprint
	Put(ctx context.Context, entry *Entry, ttl time.Duration)

	// Stats returns hit/miss counters
	Stats() Stats
}

// Stats represents cache statistics
type Stats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size,omitempty"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}
