package relation

import (
	"maps"
	"slices"

	errs "github.com/matzehuels/relgraph/pkg/errors"
)

// MethodFunc implements a named refinement on a relation of type R.
// It is only invoked with exactly as many arguments as the method's arity.
type MethodFunc[R Queryable] func(r R, args ...any) (any, error)

type method[R Queryable] struct {
	arity int
	fn    MethodFunc[R]
}

// Methods is a table of named refinements shared by adapter relations.
//
// Dispatch curries calls that supply fewer arguments than a method's arity,
// so a method such as for_users(users) can be referenced without its
// argument and completed later by a graph.
//
// Methods is copy-on-write: Register returns a new table and never changes
// the receiver, so relations can share one table safely.
type Methods[R Queryable] struct {
	table map[string]method[R]
}

// NewMethods returns an empty method table.
func NewMethods[R Queryable]() *Methods[R] {
	return &Methods[R]{table: map[string]method[R]{}}
}

// Register returns a copy of the table with name bound to fn.
// An existing binding with the same name is replaced.
func (m *Methods[R]) Register(name string, arity int, fn MethodFunc[R]) *Methods[R] {
	next := &Methods[R]{table: map[string]method[R]{}}
	if m != nil {
		maps.Copy(next.table, m.table)
	}
	next.table[name] = method[R]{arity: arity, fn: fn}
	return next
}

// Has reports whether name is registered.
func (m *Methods[R]) Has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.table[name]
	return ok
}

// Arity returns the declared arity of name.
func (m *Methods[R]) Arity(name string) (int, bool) {
	if m == nil {
		return 0, false
	}
	meth, ok := m.table[name]
	return meth.arity, ok
}

// Names returns the registered method names in sorted order.
func (m *Methods[R]) Names() []string {
	if m == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(m.table))
}

// Dispatch invokes op on self.
//
//   - unknown op: *errors.NoSuchOperationError
//   - fewer args than the arity: a *Curried holding the args so far
//   - more args than the arity: ARITY_MISMATCH
func (m *Methods[R]) Dispatch(self R, op string, args []any) (any, error) {
	if m == nil {
		return nil, errs.NoSuchOperation(self.Name(), op)
	}
	meth, ok := m.table[op]
	if !ok {
		return nil, errs.NoSuchOperation(self.Name(), op)
	}
	switch {
	case len(args) < meth.arity:
		return Curry(self, op, meth.arity, args...), nil
	case len(args) > meth.arity:
		return nil, errs.New(errs.ErrCodeArityMismatch,
			"%s.%s takes %d argument(s), got %d", self.Name(), op, meth.arity, len(args))
	}
	return meth.fn(self, args...)
}
