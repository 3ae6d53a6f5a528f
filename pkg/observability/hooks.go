// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about graph materialization, cache operations, and HTTP
// requests served by the API.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, which keeps the relation
// core free of observability frameworks and import cycles.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetMaterializeHooks(&myHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Materialize().OnMaterializeStart(ctx, "users", 2)
//	// ... evaluate root and children ...
//	observability.Materialize().OnMaterializeComplete(ctx, "users", stats, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Materialize Hooks
// =============================================================================

// MaterializeStats summarizes one graph materialization.
type MaterializeStats struct {
	RootRows     int  // Rows produced by the root relation
	Nodes        int  // Number of child relations in the graph
	ShortCircuit bool // True when children were skipped because the root was empty
}

// MaterializeHooks receives events from relation graph materialization.
type MaterializeHooks interface {
	OnMaterializeStart(ctx context.Context, relation string, nodes int)
	OnMaterializeComplete(ctx context.Context, relation string, stats MaterializeStats, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Server Hooks
// =============================================================================

// ServerHooks receives events from the HTTP API.
type ServerHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, requestID, method, path string)

	// OnResponse records the response written for a request.
	OnResponse(ctx context.Context, requestID, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopMaterializeHooks is a no-op implementation of MaterializeHooks.
type NoopMaterializeHooks struct{}

func (NoopMaterializeHooks) OnMaterializeStart(context.Context, string, int) {}
func (NoopMaterializeHooks) OnMaterializeComplete(context.Context, string, MaterializeStats, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string, string) {}
func (NoopServerHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {
}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	materializeHooks MaterializeHooks = NoopMaterializeHooks{}
	cacheHooks       CacheHooks       = NoopCacheHooks{}
	serverHooks      ServerHooks      = NoopServerHooks{}
	hooksMu          sync.RWMutex
)

// SetMaterializeHooks registers custom materialization hooks.
// This should be called once at application startup before any graph is materialized.
func SetMaterializeHooks(h MaterializeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		materializeHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetServerHooks registers custom server hooks.
// This should be called once at application startup before serving requests.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

// Materialize returns the registered materialization hooks.
func Materialize() MaterializeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return materializeHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Server returns the registered server hooks.
func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	materializeHooks = NoopMaterializeHooks{}
	cacheHooks = NoopCacheHooks{}
	serverHooks = NoopServerHooks{}
}
