package relation

import (
	"context"
	"fmt"
)

// Row is a single materialized tuple keyed by attribute name.
type Row map[string]any

// Kind is the closed set of relation variants.
// Each relation type reports a fixed kind; composition rules match on it.
type Kind int

const (
	// KindPlain is an adapter-backed relation.
	KindPlain Kind = iota
	// KindComposite is a relation with post-load mappers attached.
	KindComposite
	// KindCurried is a refinement waiting for its remaining arguments.
	KindCurried
	// KindGraph is a root relation combined with child relations.
	KindGraph
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindComposite:
		return "composite"
	case KindCurried:
		return "curried"
	case KindGraph:
		return "graph"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Relation is a lazily evaluated source of rows.
//
// Call executes the underlying query. Plain relations ignore args; curried
// relations use them to complete their pending refinement; graphs pass
// them to their root.
type Relation interface {
	Name() string
	Kind() Kind
	Call(ctx context.Context, args ...any) (*Loaded, error)
}

// Queryable is a relation with named refinement operations.
//
// Refine never mutates the receiver. A refinement that builds on the
// relation returns a new Queryable; introspective operations may return
// any other value. Unknown operations fail with *errors.NoSuchOperationError.
type Queryable interface {
	Relation
	Refine(op string, args ...any) (any, error)
}

// Counter is implemented by relations that can count their rows without
// materializing them.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Responder is implemented by relations that can report which named
// operations they support.
type Responder interface {
	RespondsTo(op string) bool
}
