package relation

import (
	"context"

	errs "github.com/matzehuels/relgraph/pkg/errors"
)

// ToRows materializes r and returns its rows (root rows for graphs).
func ToRows(ctx context.Context, r Relation, args ...any) ([]Row, error) {
	loaded, err := r.Call(ctx, args...)
	if err != nil {
		return nil, err
	}
	return loaded.Rows(), nil
}

// Count returns the number of rows r would produce. Relations implementing
// Counter answer without materializing; others are called.
func Count(ctx context.Context, r Relation) (int, error) {
	if c, ok := r.(Counter); ok {
		return c.Count(ctx)
	}
	loaded, err := r.Call(ctx)
	if err != nil {
		return 0, err
	}
	return loaded.Len(), nil
}

// Values extracts attr from the rows carried by arg, which may be a
// *Loaded, a []Row or a single Row. Join-style methods use it to restrict a
// child by keys drawn from the root result.
func Values(arg any, attr string) ([]any, error) {
	switch v := arg.(type) {
	case *Loaded:
		return v.Pluck(attr), nil
	case []Row:
		return NewLoaded(nil, v).Pluck(attr), nil
	case Row:
		if val, ok := v[attr]; ok {
			return []any{val}, nil
		}
		return []any{}, nil
	}
	return nil, errs.New(errs.ErrCodeInvalidInput, "cannot read %q from %T", attr, arg)
}
