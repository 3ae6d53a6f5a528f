package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/relation"
)

// Relation is a lazily evaluated query over one table of a Dataset.
type Relation struct {
	relation.Query

	ds    *Dataset
	name  string
	table string
}

// Name returns the relation name.
func (r *Relation) Name() string { return r.name }

// Kind returns relation.KindPlain.
func (r *Relation) Kind() relation.Kind { return relation.KindPlain }

// Table returns the backing table name.
func (r *Relation) Table() string { return r.table }

func (r *Relation) with(q relation.Query) *Relation {
	next := *r
	next.Query = q
	return &next
}

// Restrict adds an equality condition. Successive restrictions all apply.
func (r *Relation) Restrict(cond map[string]any) *Relation { return r.with(r.Query.Restrict(cond)) }

// Project keeps only attrs in each row.
func (r *Relation) Project(attrs ...string) *Relation { return r.with(r.Query.Project(attrs...)) }

// Order sorts rows by keys. Later calls replace earlier ones.
func (r *Relation) Order(keys ...string) *Relation { return r.with(r.Query.Order(keys...)) }

// Limit caps the number of rows.
func (r *Relation) Limit(n int) *Relation { return r.with(r.Query.Limit(n)) }

// Mappers returns the names of the mappers registered for the relation.
func (r *Relation) Mappers() []string { return r.ds.Mappers(r.name) }

// Mapper looks up a registered mapper.
func (r *Relation) Mapper(name string) (relation.Mapper, bool) { return r.ds.Mapper(r.name, name) }

// Refine dispatches op to the builtin operations and the methods defined on
// the relation.
func (r *Relation) Refine(op string, args ...any) (any, error) { return r.ds.Dispatch(r, op, args) }

// RespondsTo reports whether op is defined for the relation.
func (r *Relation) RespondsTo(op string) bool { return r.ds.RespondsTo(r.name, op) }

// Call evaluates the relation. Arguments are ignored.
func (r *Relation) Call(ctx context.Context, _ ...any) (*relation.Loaded, error) {
	rows, err := r.evaluate(ctx)
	if err != nil {
		return nil, err
	}
	return relation.NewLoaded(r, rows), nil
}

// Count returns the number of rows Call would return.
func (r *Relation) Count(ctx context.Context) (int, error) {
	matched, err := r.filter(ctx)
	if err != nil {
		return 0, err
	}
	return r.Cap(len(matched)), nil
}

func (r *Relation) filter(ctx context.Context) ([]relation.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, ok := r.ds.rows(r.table)
	if !ok {
		return nil, errs.New(errs.ErrCodeRelationNotFound, "table %q not found", r.table)
	}
	out := make([]relation.Row, 0, len(rows))
	for _, row := range rows {
		if r.matches(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *Relation) evaluate(ctx context.Context) ([]relation.Row, error) {
	rows, err := r.filter(ctx)
	if err != nil {
		return nil, err
	}
	if len(r.OrderKeys()) > 0 {
		slices.SortStableFunc(rows, r.compareRows)
	}
	rows = rows[:r.Cap(len(rows))]
	if attrs := r.Attrs(); len(attrs) > 0 {
		projected := make([]relation.Row, len(rows))
		for i, row := range rows {
			p := make(relation.Row, len(attrs))
			for _, a := range attrs {
				if v, ok := row[a]; ok {
					p[a] = v
				}
			}
			projected[i] = p
		}
		rows = projected
	}
	return rows, nil
}

func (r *Relation) matches(row relation.Row) bool {
	for _, cond := range r.Conditions() {
		for attr, want := range cond {
			got, ok := row[attr]
			if !ok || !match(got, want) {
				return false
			}
		}
	}
	return true
}

func (r *Relation) compareRows(a, b relation.Row) int {
	for _, key := range r.OrderKeys() {
		attr, desc := strings.CutPrefix(key, "-")
		c := relation.CompareValues(a[attr], b[attr])
		if desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// String returns "name(table)" followed by the pending refinements.
func (r *Relation) String() string {
	return fmt.Sprintf("%s(%s)%s", r.name, r.table, r.Query)
}

var (
	_ relation.Refinable[*Relation] = (*Relation)(nil)
	_ relation.Counter              = (*Relation)(nil)
	_ relation.Responder            = (*Relation)(nil)
)
