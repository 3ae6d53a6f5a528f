package relation

import (
	"cmp"
	"fmt"
	"reflect"
)

// SameValue reports whether two attribute values are equal. Numbers compare
// by value regardless of their Go type, since the same column can decode as
// int64 from SQL and float64 from JSON.
func SameValue(a, b any) bool {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// CompareValues orders attribute values: nil first, then numbers, strings
// and booleans, then anything else by its printed form.
func CompareValues(a, b any) int {
	if c := cmp.Compare(rank(a), rank(b)); c != 0 {
		return c
	}
	if a == nil {
		return 0
	}
	if fa, ok := number(a); ok {
		fb, _ := number(b)
		return cmp.Compare(fa, fb)
	}
	if sa, ok := a.(string); ok {
		return cmp.Compare(sa, b.(string))
	}
	if ba, ok := a.(bool); ok {
		return cmp.Compare(boolInt(ba), boolInt(b.(bool)))
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func rank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := number(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case bool:
		return 3
	}
	return 4
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
