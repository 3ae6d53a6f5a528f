package relation

import (
	"context"
	"fmt"
	"slices"

	errs "github.com/matzehuels/relgraph/pkg/errors"
)

// Mapper transforms a materialized result into rows.
type Mapper interface {
	Name() string
	Map(ctx context.Context, in *Loaded) ([]Row, error)
}

type mapperFunc struct {
	name string
	fn   func(ctx context.Context, in *Loaded) ([]Row, error)
}

func (m mapperFunc) Name() string { return m.name }

func (m mapperFunc) Map(ctx context.Context, in *Loaded) ([]Row, error) { return m.fn(ctx, in) }

// NewMapper wraps fn as a named Mapper.
func NewMapper(name string, fn func(ctx context.Context, in *Loaded) ([]Row, error)) Mapper {
	return mapperFunc{name: name, fn: fn}
}

// Composite is a relation whose result is post-processed by mappers.
// Materializing it equals applying each mapper, in order, to the result of
// the left relation.
type Composite struct {
	left    Relation
	mappers []Mapper
}

// Pipe attaches mappers to r. Piping a Composite extends its mapper list
// instead of nesting.
func Pipe(r Relation, mappers ...Mapper) *Composite {
	if c, ok := r.(*Composite); ok {
		return &Composite{left: c.left, mappers: slices.Concat(c.mappers, mappers)}
	}
	return &Composite{left: r, mappers: slices.Clone(mappers)}
}

// Name returns the name of the left relation.
func (c *Composite) Name() string { return c.left.Name() }

// Kind returns KindComposite.
func (c *Composite) Kind() Kind { return KindComposite }

// Left returns the relation whose result is mapped.
func (c *Composite) Left() Relation { return c.left }

// Mappers returns the attached mappers in application order.
func (c *Composite) Mappers() []Mapper { return slices.Clone(c.mappers) }

// Pipe returns a composite with more mappers appended.
func (c *Composite) Pipe(mappers ...Mapper) *Composite { return Pipe(c, mappers...) }

// Call materializes the left relation and applies the mappers.
// The final result is sourced from the left relation.
func (c *Composite) Call(ctx context.Context, args ...any) (*Loaded, error) {
	in, err := c.left.Call(ctx, args...)
	if err != nil {
		return nil, err
	}
	for _, m := range c.mappers {
		rows, err := m.Map(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("mapper %s: %w", m.Name(), err)
		}
		in = NewLoaded(c.left, rows)
	}
	return in, nil
}

// Refine forwards op to the left relation and keeps the mappers attached
// to relation responses.
func (c *Composite) Refine(op string, args ...any) (any, error) {
	q, ok := c.left.(Queryable)
	if !ok {
		return nil, errs.NoSuchOperation(c.Name(), op)
	}
	res, err := q.Refine(op, args...)
	if err != nil {
		return nil, err
	}
	if r, ok := res.(Relation); ok && r.Kind() != KindComposite {
		return &Composite{left: r, mappers: c.mappers}, nil
	}
	return res, nil
}
