package relation

import (
	"io"

	"github.com/charmbracelet/log"
)

// Option configures a Graph. Options carry over to every graph derived
// through Combine or Forward.
type Option func(*options)

type options struct {
	policy      DecorationPolicy
	hasRows     func(*Loaded) bool
	concurrency int
	logger      *log.Logger
}

func defaultOptions() options {
	return options{
		policy:      GraphPolicy,
		hasRows:     func(l *Loaded) bool { return !l.Empty() },
		concurrency: 1,
		logger:      log.NewWithOptions(io.Discard, log.Options{}),
	}
}

// WithPolicy sets the decoration policy used by Forward.
// A nil policy keeps the default.
func WithPolicy(p DecorationPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithRowsPredicate replaces the check deciding whether the root result has
// rows. When it reports false no child is evaluated.
func WithRowsPredicate(fn func(*Loaded) bool) Option {
	return func(o *options) {
		if fn != nil {
			o.hasRows = fn
		}
	}
}

// WithConcurrency evaluates up to n children at once. Values below 2 keep
// evaluation sequential.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

// WithLogger sets the logger used for debug output during materialization.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
