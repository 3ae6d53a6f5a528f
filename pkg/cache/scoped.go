package cache

// ScopedKeyer wraps a Keyer with a prefix so several registries can share
// one backend without their keys colliding.
//
// Example usage:
//
//	// The HTTP server scopes keys by the config it was started with
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "cfg:"+configHash+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// QueryKey generates a prefixed key for query results.
func (k *ScopedKeyer) QueryKey(queryHash string, opts QueryKeyOpts) string {
	return k.prefix + k.inner.QueryKey(queryHash, opts)
}

// DiagramKey generates a prefixed key for rendered diagrams.
func (k *ScopedKeyer) DiagramKey(queryHash string, opts DiagramKeyOpts) string {
	return k.prefix + k.inner.DiagramKey(queryHash, opts)
}
