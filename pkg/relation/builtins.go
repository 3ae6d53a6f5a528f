package relation

import (
	"maps"
	"slices"
	"sync"

	errs "github.com/matzehuels/relgraph/pkg/errors"
)

// Refinable is the query surface shared by adapter relations. Each method
// returns a new relation of the same type.
type Refinable[R any] interface {
	Queryable
	// Restrict keeps rows whose attributes equal the given values. A slice
	// value matches any of its elements.
	Restrict(cond map[string]any) R
	Project(attrs ...string) R
	// Order sorts by the given attributes; a leading "-" sorts descending.
	Order(keys ...string) R
	Limit(n int) R
	Mappers() []string
	Mapper(name string) (Mapper, bool)
}

// Builtin operation names available on every adapter relation.
const (
	OpRestrict = "restrict"
	OpProject  = "project"
	OpOrder    = "order"
	OpLimit    = "limit"
	OpMappers  = "mappers"
	OpMapWith  = "map_with"
)

// IsBuiltin reports whether op is a builtin operation name.
func IsBuiltin(op string) bool {
	switch op {
	case OpRestrict, OpProject, OpOrder, OpLimit, OpMappers, OpMapWith:
		return true
	}
	return false
}

// Builtins returns the method table every adapter relation starts from.
func Builtins[R Refinable[R]]() *Methods[R] {
	return NewMethods[R]().
		Register(OpRestrict, 1, func(r R, args ...any) (any, error) {
			cond, err := ArgMap(args[0])
			if err != nil {
				return nil, err
			}
			return r.Restrict(cond), nil
		}).
		Register(OpProject, 1, func(r R, args ...any) (any, error) {
			attrs, err := ArgStrings(args[0])
			if err != nil {
				return nil, err
			}
			return r.Project(attrs...), nil
		}).
		Register(OpOrder, 1, func(r R, args ...any) (any, error) {
			keys, err := ArgStrings(args[0])
			if err != nil {
				return nil, err
			}
			return r.Order(keys...), nil
		}).
		Register(OpLimit, 1, func(r R, args ...any) (any, error) {
			n, err := ArgInt(args[0])
			if err != nil {
				return nil, err
			}
			return r.Limit(n), nil
		}).
		Register(OpMappers, 0, func(r R, _ ...any) (any, error) {
			return r.Mappers(), nil
		}).
		Register(OpMapWith, 1, func(r R, args ...any) (any, error) {
			name, ok := args[0].(string)
			if !ok {
				return nil, errs.New(errs.ErrCodeInvalidQuery, "map_with expects a mapper name, got %T", args[0])
			}
			m, ok := r.Mapper(name)
			if !ok {
				return nil, errs.New(errs.ErrCodeNotFound, "relation %q has no mapper %q", r.Name(), name)
			}
			return Pipe(r, m), nil
		})
}

// RestrictBy returns a method of arity len(attrs) that restricts attrs[i]
// to args[i].
func RestrictBy[R Refinable[R]](attrs ...string) MethodFunc[R] {
	attrs = slices.Clone(attrs)
	return func(r R, args ...any) (any, error) {
		cond := make(map[string]any, len(attrs))
		for i, a := range attrs {
			cond[a] = args[i]
		}
		return r.Restrict(cond), nil
	}
}

// JoinOn returns an arity-1 method restricting the relation to rows related
// to its argument, usually a parent result. keys maps the relation's
// attributes to the argument's attributes.
func JoinOn[R Refinable[R]](keys map[string]string) MethodFunc[R] {
	keys = maps.Clone(keys)
	return func(r R, args ...any) (any, error) {
		cond := make(map[string]any, len(keys))
		for attr, parent := range keys {
			vals, err := Values(args[0], parent)
			if err != nil {
				return nil, err
			}
			cond[attr] = vals
		}
		return r.Restrict(cond), nil
	}
}

// MapperSet holds named mappers per relation. It is safe for concurrent use.
type MapperSet struct {
	mu  sync.RWMutex
	set map[string]map[string]Mapper
}

// Add registers m for the relation rel, replacing a mapper of the same name.
func (s *MapperSet) Add(rel string, m Mapper) error {
	if err := errs.ValidateName("mapper", m.Name()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set == nil {
		s.set = map[string]map[string]Mapper{}
	}
	if s.set[rel] == nil {
		s.set[rel] = map[string]Mapper{}
	}
	s.set[rel][m.Name()] = m
	return nil
}

// Names returns the sorted mapper names registered for rel.
func (s *MapperSet) Names(rel string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := slices.Sorted(maps.Keys(s.set[rel]))
	if names == nil {
		return []string{}
	}
	return names
}

// Get looks up a mapper registered for rel.
func (s *MapperSet) Get(rel, name string) (Mapper, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.set[rel][name]
	return m, ok
}
