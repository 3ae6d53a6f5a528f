package relation

import (
	"encoding/json"
	"maps"
	"math"

	errs "github.com/matzehuels/relgraph/pkg/errors"
)

// Refinement arguments arrive from Go callers, decoded JSON and decoded
// TOML, so the same logical value can show up as several Go types. The Arg*
// helpers normalize them and fail with INVALID_QUERY otherwise.

// ArgMap reads a restriction: attribute name to value. The result is a copy
// the caller may keep.
func ArgMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return maps.Clone(m), nil
	case Row:
		return maps.Clone(map[string]any(m)), nil
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, nil
	}
	return nil, errs.New(errs.ErrCodeInvalidQuery, "expected an attribute map, got %T", v)
}

// ArgStrings reads a list of attribute names. A single string is a list of
// one.
func ArgStrings(v any) ([]string, error) {
	switch s := v.(type) {
	case string:
		return []string{s}, nil
	case []string:
		return s, nil
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, errs.New(errs.ErrCodeInvalidQuery, "expected strings, got %T in list", e)
			}
			out = append(out, str)
		}
		return out, nil
	}
	return nil, errs.New(errs.ErrCodeInvalidQuery, "expected a list of strings, got %T", v)
}

// ArgInt reads a non-negative integer.
func ArgInt(v any) (int, error) {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if x != math.Trunc(x) {
			return 0, errs.New(errs.ErrCodeInvalidQuery, "expected an integer, got %v", x)
		}
		n = int(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, errs.Wrap(errs.ErrCodeInvalidQuery, err, "expected an integer")
		}
		n = int(i)
	default:
		return 0, errs.New(errs.ErrCodeInvalidQuery, "expected an integer, got %T", v)
	}
	if n < 0 {
		return 0, errs.New(errs.ErrCodeInvalidQuery, "expected a non-negative integer, got %d", n)
	}
	return n, nil
}
