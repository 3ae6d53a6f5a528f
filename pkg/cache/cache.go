// Package cache stores encoded query results.
//
// Backends implement [Cache]: [FileCache] for the CLI, [RedisCache] for a
// shared server deployment and [NullCache] when caching is disabled. Keys are
// produced by a [Keyer] so that the CLI and the server agree on them.
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/relgraph/pkg/observability"
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. Expired and
	// unreadable entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Default lifetimes of cached entries.
const (
	// TTLQuery is how long a materialized query result stays valid.
	TTLQuery = 10 * time.Minute
	// TTLDiagram is how long a rendered composition diagram stays valid.
	TTLDiagram = 24 * time.Hour
)

// Keyer derives cache keys.
type Keyer interface {
	// QueryKey identifies the result of a query.
	QueryKey(queryHash string, opts QueryKeyOpts) string
	// DiagramKey identifies a rendered diagram of a query.
	DiagramKey(queryHash string, opts DiagramKeyOpts) string
}

// QueryKeyOpts holds the inputs besides the query that change its result.
type QueryKeyOpts struct {
	// ConfigHash identifies the relation registry the query ran against.
	ConfigHash string `json:"config"`
}

// DiagramKeyOpts holds the rendering inputs of a diagram.
type DiagramKeyOpts struct {
	Format string `json:"format"`
}

// DefaultKeyer hashes key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// QueryKey returns "query:<hash>".
func (DefaultKeyer) QueryKey(queryHash string, opts QueryKeyOpts) string {
	return hashKey("query", queryHash, opts)
}

// DiagramKey returns "diagram:<hash>".
func (DefaultKeyer) DiagramKey(queryHash string, opts DiagramKeyOpts) string {
	return hashKey("diagram", queryHash, opts)
}

// Instrument reports hits, misses and writes of c to the registered
// observability cache hooks.
func Instrument(c Cache) Cache {
	if _, ok := c.(*instrumented); ok {
		return c
	}
	return &instrumented{Cache: c}
}

type instrumented struct {
	Cache
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, key)
		} else {
			observability.Cache().OnCacheMiss(ctx, key)
		}
	}
	return data, ok, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, key, len(data))
	}
	return err
}

// Clear forwards to the wrapped cache when it supports clearing.
func (c *instrumented) Clear(ctx context.Context) (int, error) {
	if cl, ok := c.Cache.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return 0, nil
}
