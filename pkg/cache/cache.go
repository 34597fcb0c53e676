// Package cache stores generated layout tables and rendered artifacts.
//
// Layout generation is deterministic for a given configuration and seed, so
// a seeded run can be served from cache instead of re-sampled. Two stages are
// cached independently:
//
//   - tables, keyed by a hash of the normalized trial configuration
//   - artifacts, keyed by the table hash plus the render format
//
// Backends implement [Cache]: [FileCache] for the CLI, [RedisCache] for the
// HTTP server and [NullCache] when caching is disabled. A [Keyer] turns
// pipeline inputs into keys; [ScopedKeyer] adds a tenant prefix.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default time-to-live per cached stage.
const (
	TTLTable    = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Key types reported to observability hooks.
const (
	KeyTypeTable    = "table"
	KeyTypeArtifact = "artifact"
)

// TableKeyOpts are the inputs of a table that are not part of the config hash.
type TableKeyOpts struct {
	Seed     uint64 `json:"seed"`
	Strategy string `json:"strategy"`
}

// ArtifactKeyOpts are the render inputs that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Labels bool    `json:"labels"`
	Scale  float64 `json:"scale,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	TableKey(configHash string, opts TableKeyOpts) string
	ArtifactKey(tableHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces "table:<sha256>" and "artifact:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// TableKey implements Keyer.
func (DefaultKeyer) TableKey(configHash string, opts TableKeyOpts) string {
	return hashKey(KeyTypeTable, configHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(tableHash string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, tableHash, opts)
}
