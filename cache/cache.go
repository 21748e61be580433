// Package cache provides pluggable storage for decoded-response bodies
// keyed by sparql.CacheKey identifiers. Two backends are provided: SQLite
// for single-process deployments and Redis for shared ones.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when no fresh entry exists for a key.
var ErrMiss = errors.New("cache: miss")

// Entry is one cached response: the raw body plus the content type needed
// to re-decode it, and the freshness horizon derived from the endpoint's
// cache headers.
type Entry struct {
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	Expires     time.Time `json:"expires"`
}

// Fresh reports whether the entry is still usable at the given instant.
func (e *Entry) Fresh(now time.Time) bool {
	return e.Expires.After(now)
}

// Cache stores response entries by key. Implementations enforce expiry:
// Get never returns a stale entry.
type Cache interface {
	// Get returns the entry for key, or ErrMiss.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores an entry under key. Entries already past their expiry
	// are silently dropped.
	Set(ctx context.Context, key string, entry *Entry) error

	// Close releases the backend connection.
	Close() error
}
