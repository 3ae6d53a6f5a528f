package relation

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	errs "github.com/matzehuels/relgraph/pkg/errors"
)

// Query is the refinement state carried by adapter relations: restrictions,
// projection, ordering and limit. The zero Query selects every row.
//
// Query is a value. Its builder methods return a modified copy and copy
// their arguments, so a caller reusing a condition map or key slice cannot
// change a query that was already built from it.
type Query struct {
	where   []map[string]any
	attrs   []string
	order   []string
	limit   int
	limited bool
}

// Restrict adds an equality condition. Successive restrictions all apply.
func (q Query) Restrict(cond map[string]any) Query {
	q.where = append(slices.Clip(q.where), maps.Clone(cond))
	return q
}

// Project keeps only attrs. Later calls replace earlier ones.
func (q Query) Project(attrs ...string) Query {
	q.attrs = slices.Clone(attrs)
	return q
}

// Order sorts by keys; a leading "-" sorts descending. Later calls replace
// earlier ones.
func (q Query) Order(keys ...string) Query {
	q.order = slices.Clone(keys)
	return q
}

// Limit caps the number of rows. A negative n removes the limit.
func (q Query) Limit(n int) Query {
	q.limit, q.limited = max(n, 0), n >= 0
	return q
}

// Conditions returns the restrictions in the order they were added.
func (q Query) Conditions() []map[string]any { return slices.Clip(q.where) }

// Attrs returns the projected attributes, or nil for all of them.
func (q Query) Attrs() []string { return slices.Clip(q.attrs) }

// OrderKeys returns the sort keys.
func (q Query) OrderKeys() []string { return slices.Clip(q.order) }

// MaxRows returns the limit and whether one is set.
func (q Query) MaxRows() (int, bool) { return q.limit, q.limited }

// Cap applies the limit to a row count.
func (q Query) Cap(n int) int {
	if q.limited && n > q.limit {
		return q.limit
	}
	return n
}

// String renders the refinements as a method chain such as
// ".restrict(map[name:Jane]).order(-age).limit(5)".
func (q Query) String() string {
	var b strings.Builder
	for _, w := range q.where {
		fmt.Fprintf(&b, ".restrict(%v)", w)
	}
	if len(q.order) > 0 {
		fmt.Fprintf(&b, ".order(%s)", strings.Join(q.order, ","))
	}
	if q.limited {
		fmt.Fprintf(&b, ".limit(%d)", q.limit)
	}
	if len(q.attrs) > 0 {
		fmt.Fprintf(&b, ".project(%s)", strings.Join(q.attrs, ","))
	}
	return b.String()
}

// Catalog holds the methods and mappers a gateway defines per relation
// name. Relations without methods of their own use the base table. It is
// safe for concurrent use.
type Catalog[R Queryable] struct {
	base    *Methods[R]
	mu      sync.RWMutex
	methods map[string]*Methods[R]
	mappers MapperSet
}

// NewCatalog returns a catalog whose relations start from base, usually
// Builtins.
func NewCatalog[R Queryable](base *Methods[R]) *Catalog[R] {
	return &Catalog[R]{base: base, methods: map[string]*Methods[R]{}}
}

// Define registers a named method on the relation called rel. Calls with
// fewer than arity arguments return a *Curried.
func (c *Catalog[R]) Define(rel, name string, arity int, fn MethodFunc[R]) error {
	if err := errs.ValidateName("method", name); err != nil {
		return err
	}
	if IsBuiltin(name) {
		return errs.New(errs.ErrCodeInvalidName, "method %q shadows a builtin operation", name)
	}
	if arity < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "method %q has negative arity", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[rel] = c.methodsLocked(rel).Register(name, arity, fn)
	return nil
}

// RegisterMapper makes m available to map_with on the relation called rel.
func (c *Catalog[R]) RegisterMapper(rel string, m Mapper) error {
	return c.mappers.Add(rel, m)
}

// Methods returns the method table for the relation called rel.
func (c *Catalog[R]) Methods(rel string) *Methods[R] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.methodsLocked(rel)
}

func (c *Catalog[R]) methodsLocked(rel string) *Methods[R] {
	if m, ok := c.methods[rel]; ok {
		return m
	}
	return c.base
}

// Dispatch invokes op on self using the methods defined for self's name.
func (c *Catalog[R]) Dispatch(self R, op string, args []any) (any, error) {
	return c.Methods(self.Name()).Dispatch(self, op, args)
}

// RespondsTo reports whether op is defined for the relation called rel.
func (c *Catalog[R]) RespondsTo(rel, op string) bool {
	return c.Methods(rel).Has(op)
}

// Mappers returns the sorted mapper names registered for rel.
func (c *Catalog[R]) Mappers(rel string) []string { return c.mappers.Names(rel) }

// Mapper looks up a mapper registered for rel.
func (c *Catalog[R]) Mapper(rel, name string) (Mapper, bool) { return c.mappers.Get(rel, name) }
