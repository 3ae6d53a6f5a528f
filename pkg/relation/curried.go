package relation

import (
	"context"
	"fmt"
	"slices"

	errs "github.com/matzehuels/relgraph/pkg/errors"
)

// Curried is a named refinement on a relation that has received only part
// of its arguments. It is not executed until the remaining arguments arrive.
//
// Calling a Curried with the missing arguments applies the refinement and
// materializes the resulting relation. Inside a graph, children are called
// with the root's [Loaded], so a child defined as tasks.for_users receives
// the users it should restrict itself to.
type Curried struct {
	relation Queryable
	op       string
	arity    int
	args     []any
}

// Curry returns op on r with args applied so far. arity is the total number
// of arguments op expects.
func Curry(r Queryable, op string, arity int, args ...any) *Curried {
	return &Curried{relation: r, op: op, arity: arity, args: slices.Clone(args)}
}

// Name returns the name of the underlying relation.
func (c *Curried) Name() string { return c.relation.Name() }

// Kind returns KindCurried.
func (c *Curried) Kind() Kind { return KindCurried }

// String returns "relation.op" for logs and diagrams.
func (c *Curried) String() string { return c.relation.Name() + "." + c.op }

// Relation returns the relation the refinement applies to.
func (c *Curried) Relation() Queryable { return c.relation }

// Operation returns the name of the pending refinement.
func (c *Curried) Operation() string { return c.op }

// Arity returns the number of arguments the refinement expects in total.
func (c *Curried) Arity() int { return c.arity }

// Args returns the arguments applied so far.
func (c *Curried) Args() []any { return slices.Clone(c.args) }

// Apply adds args to the applied arguments and invokes the refinement.
// If arguments are still missing the result is another *Curried.
func (c *Curried) Apply(args ...any) (any, error) {
	return c.relation.Refine(c.op, slices.Concat(c.args, args)...)
}

// Call applies args and materializes the resulting relation.
func (c *Curried) Call(ctx context.Context, args ...any) (*Loaded, error) {
	res, err := c.Apply(args...)
	if err != nil {
		return nil, err
	}
	r, ok := res.(Relation)
	if !ok {
		return nil, errs.New(errs.ErrCodeInvalidQuery, "%s returned %T, not a relation", c, res)
	}
	if pending, ok := r.(*Curried); ok {
		return nil, errs.New(errs.ErrCodeArityMismatch,
			"%s expects %d argument(s), got %d", c, pending.arity, len(pending.args))
	}
	return r.Call(ctx)
}

// Refine forwards op to the underlying relation. A relation response keeps
// the pending refinement; other responses are returned as-is.
func (c *Curried) Refine(op string, args ...any) (any, error) {
	res, err := c.relation.Refine(op, args...)
	if err != nil {
		return nil, err
	}
	if q, ok := res.(Queryable); ok && q.Kind() == KindPlain {
		return &Curried{relation: q, op: c.op, arity: c.arity, args: c.args}, nil
	}
	return res, nil
}

// RespondsTo reports whether the underlying relation supports op.
func (c *Curried) RespondsTo(op string) bool {
	if r, ok := c.relation.(Responder); ok {
		return r.RespondsTo(op)
	}
	return false
}

var _ fmt.Stringer = (*Curried)(nil)
