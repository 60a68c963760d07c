// Package cache provides pluggable byte caches for the visualization
// pipeline. Parsed configurations, built graphs and computed layouts are
// each cached under stage-specific keys so repeated renders of the same
// model skip the expensive stages.
package cache

import (
	"context"
	"time"
)

// Default TTLs per pipeline stage. Parsed configurations change whenever
// the user edits a file, so they expire quickly; layouts are pure
// functions of their inputs and can live longer.
const (
	ConfigTTL = 10 * time.Minute
	GraphTTL  = 1 * time.Hour
	LayoutTTL = 24 * time.Hour
)

// Cache stores opaque byte values under string keys. Implementations must
// be safe for concurrent use. A zero ttl means the entry never expires.
type Cache interface {
	// Get returns the cached value and whether it was present. An absent
	// or expired entry is (nil, false, nil), not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key for at most ttl.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// LayoutKeyOpts captures every layout input that changes the output, so
// two layouts with different spacing never share a cache entry.
type LayoutKeyOpts struct {
	Orientation string  `json:"orientation"`
	NodeWidth   float64 `json:"node_width"`
	NodeHeight  float64 `json:"node_height"`
	RankGap     float64 `json:"rank_gap"`
	NodeGap     float64 `json:"node_gap"`
}

// Keyer derives the cache keys for each pipeline stage.
type Keyer interface {
	// ConfigKey keys the resolved configuration by the raw file content.
	ConfigKey(raw []byte) string
	// GraphKey keys the built graph by the resolved configuration hash.
	GraphKey(configHash string) string
	// LayoutKey keys computed positions by graph hash and layout options.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
}

// DefaultKeyer hashes stage inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ConfigKey generates a key for resolved-configuration caching.
func (k *DefaultKeyer) ConfigKey(raw []byte) string {
	return "config:" + Hash(raw)
}

// GraphKey generates a key for built-graph caching.
func (k *DefaultKeyer) GraphKey(configHash string) string {
	return hashKey("graph", configHash)
}

// LayoutKey generates a key for layout caching.
func (k *DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix so separate uploads or users get
// isolated cache namespaces on a shared backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer whose keys all start with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ConfigKey generates a prefixed configuration key.
func (k *ScopedKeyer) ConfigKey(raw []byte) string {
	return k.prefix + k.inner.ConfigKey(raw)
}

// GraphKey generates a prefixed graph key.
func (k *ScopedKeyer) GraphKey(configHash string) string {
	return k.prefix + k.inner.GraphKey(configHash)
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(graphHash, opts)
}
