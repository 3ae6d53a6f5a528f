package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/relation"
)

// Relation is a lazily evaluated SELECT over one table.
type Relation struct {
	relation.Query

	gw    *Gateway
	name  string
	table string
}

// Name returns the relation name.
func (r *Relation) Name() string { return r.name }

// Kind returns relation.KindPlain.
func (r *Relation) Kind() relation.Kind { return relation.KindPlain }

// Table returns the table name.
func (r *Relation) Table() string { return r.table }

// String returns "name(table)" followed by the pending refinements.
func (r *Relation) String() string {
	return fmt.Sprintf("%s(%s)%s", r.name, r.table, r.Query)
}

func (r *Relation) with(q relation.Query) *Relation {
	next := *r
	next.Query = q
	return &next
}

// Restrict adds a WHERE condition. Slice values become IN lists.
func (r *Relation) Restrict(cond map[string]any) *Relation { return r.with(r.Query.Restrict(cond)) }

// Project selects only attrs.
func (r *Relation) Project(attrs ...string) *Relation { return r.with(r.Query.Project(attrs...)) }

// Order sets ORDER BY. A leading "-" sorts descending.
func (r *Relation) Order(keys ...string) *Relation { return r.with(r.Query.Order(keys...)) }

// Limit sets LIMIT.
func (r *Relation) Limit(n int) *Relation { return r.with(r.Query.Limit(n)) }

// Mappers returns the names of the mappers registered for the relation.
func (r *Relation) Mappers() []string { return r.gw.Mappers(r.name) }

// Mapper looks up a registered mapper.
func (r *Relation) Mapper(name string) (relation.Mapper, bool) { return r.gw.Mapper(r.name, name) }

// Refine dispatches op to the builtin operations and the methods defined on
// the relation.
func (r *Relation) Refine(op string, args ...any) (any, error) { return r.gw.Dispatch(r, op, args) }

// RespondsTo reports whether op is defined for the relation.
func (r *Relation) RespondsTo(op string) bool { return r.gw.RespondsTo(r.name, op) }

// SQL returns the SELECT statement and its arguments.
func (r *Relation) SQL() (string, []any, error) {
	b, err := r.selectBuilder()
	if err != nil {
		return "", nil, err
	}
	return b.ToSql()
}

func (r *Relation) selectBuilder() (sq.SelectBuilder, error) {
	if err := r.checkIdentifiers(); err != nil {
		return sq.SelectBuilder{}, err
	}
	cols := r.Attrs()
	if len(cols) == 0 {
		cols = []string{"*"}
	}
	b := r.filtered(r.gw.stbl.Select(cols...))
	for _, key := range r.OrderKeys() {
		if attr, desc := strings.CutPrefix(key, "-"); desc {
			b = b.OrderBy(attr + " DESC")
		} else {
			b = b.OrderBy(attr + " ASC")
		}
	}
	if n, ok := r.MaxRows(); ok {
		b = b.Limit(uint64(n))
	}
	return b, nil
}

func (r *Relation) filtered(b sq.SelectBuilder) sq.SelectBuilder {
	b = b.From(r.table)
	for _, cond := range r.Conditions() {
		b = b.Where(sq.Eq(cond))
	}
	return b
}

// checkIdentifiers rejects names that would be spliced into SQL unquoted.
func (r *Relation) checkIdentifiers() error {
	check := func(kind, name string) error {
		if err := errs.ValidateName(kind, name); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidQuery, err, "relation %s", r.name)
		}
		return nil
	}
	if err := check("table", r.table); err != nil {
		return err
	}
	for _, cond := range r.Conditions() {
		for attr := range cond {
			if err := check("attribute", attr); err != nil {
				return err
			}
		}
	}
	for _, a := range r.Attrs() {
		if err := check("attribute", a); err != nil {
			return err
		}
	}
	for _, k := range r.OrderKeys() {
		if err := check("attribute", strings.TrimPrefix(k, "-")); err != nil {
			return err
		}
	}
	return nil
}

// Call runs the SELECT. Arguments are ignored.
func (r *Relation) Call(ctx context.Context, _ ...any) (*relation.Loaded, error) {
	b, err := r.selectBuilder()
	if err != nil {
		return nil, err
	}
	rows, err := b.QueryContext(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "query %s", r.name)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "read %s", r.name)
	}
	return relation.NewLoaded(r, out), nil
}

// Count runs SELECT COUNT(*) with the relation's conditions.
func (r *Relation) Count(ctx context.Context) (int, error) {
	if err := r.checkIdentifiers(); err != nil {
		return 0, err
	}
	var n int
	err := r.filtered(r.gw.stbl.Select("COUNT(*)")).QueryRowContext(ctx).Scan(&n)
	if err != nil {
		return 0, errs.Wrap(errs.ErrCodeInternal, err, "count %s", r.name)
	}
	return r.Cap(n), nil
}

func scanRows(rows *sql.Rows) ([]relation.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []relation.Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(relation.Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

var (
	_ relation.Refinable[*Relation] = (*Relation)(nil)
	_ relation.Counter              = (*Relation)(nil)
	_ relation.Responder            = (*Relation)(nil)
)
