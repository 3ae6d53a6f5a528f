package relation

import (
	"encoding/json"
	"reflect"
	"slices"
)

// Loaded is an immutable materialized result paired with the relation that
// produced it.
//
// A flat result holds rows. A graph result holds the root's result and one
// result per child, in child order. Accessors that return slices return
// copies; rows themselves are shared and must be treated as read-only.
type Loaded struct {
	source Relation
	rows   []Row
	root   *Loaded
	nodes  []*Loaded
}

// NewLoaded returns a flat result for source.
// A nil rows slice is stored as an empty result.
func NewLoaded(source Relation, rows []Row) *Loaded {
	return &Loaded{source: source, rows: slices.Clone(rows)}
}

func newGraphLoaded(source Relation, root *Loaded, nodes []*Loaded) *Loaded {
	return &Loaded{source: source, root: root, nodes: nodes}
}

// Source returns the relation that produced the result. May be nil for
// results built directly from rows.
func (l *Loaded) Source() Relation { return l.source }

// IsGraph reports whether the result is a [root, children] pair.
func (l *Loaded) IsGraph() bool { return l.root != nil }

// Root returns the root result of a graph result, or nil.
func (l *Loaded) Root() *Loaded { return l.root }

// Nodes returns the child results of a graph result in child order.
func (l *Loaded) Nodes() []*Loaded { return slices.Clone(l.nodes) }

// Rows returns the rows of a flat result, or the root rows of a graph result.
func (l *Loaded) Rows() []Row {
	if l.root != nil {
		return l.root.Rows()
	}
	return slices.Clone(l.rows)
}

// Len returns the number of rows, counting root rows for graph results.
func (l *Loaded) Len() int {
	if l.root != nil {
		return l.root.Len()
	}
	return len(l.rows)
}

// Empty reports whether the result has no rows.
func (l *Loaded) Empty() bool { return l.Len() == 0 }

// Pluck returns the value of attr for every row, in row order.
// Rows without the attribute contribute nothing.
func (l *Loaded) Pluck(attr string) []any {
	if l.root != nil {
		return l.root.Pluck(attr)
	}
	out := make([]any, 0, len(l.rows))
	for _, r := range l.rows {
		if v, ok := r[attr]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Data returns the nested payload: []Row for flat results, and
// []any{rootData, []any{childData...}} for graph results.
func (l *Loaded) Data() any {
	if l.root == nil {
		if l.rows == nil {
			return []Row{}
		}
		return slices.Clone(l.rows)
	}
	children := make([]any, len(l.nodes))
	for i, n := range l.nodes {
		children[i] = n.Data()
	}
	return []any{l.root.Data(), children}
}

// Equal reports whether two results have sources with the same name and
// element-wise equal data.
func (l *Loaded) Equal(other *Loaded) bool {
	if l == nil || other == nil {
		return l == other
	}
	if sourceName(l.source) != sourceName(other.source) {
		return false
	}
	return reflect.DeepEqual(l.Data(), other.Data())
}

// MarshalJSON encodes the nested payload returned by Data.
func (l *Loaded) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Data())
}

func sourceName(r Relation) string {
	if r == nil {
		return ""
	}
	return r.Name()
}
