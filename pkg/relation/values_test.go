package relation

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSameValue(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{1, int64(1), true},
		{1, 1.0, true},
		{1, 1.5, false},
		{"1", 1, false},
		{"a", "a", true},
		{nil, nil, true},
		{[]any{1}, []any{1}, true},
		{true, true, true},
	}
	for _, tt := range tests {
		if got := SameValue(tt.a, tt.b); got != tt.want {
			t.Errorf("SameValue(%#v, %#v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareValues(t *testing.T) {
	values := []any{"b", 2.5, true, nil, "a", int64(1), false}
	slices.SortStableFunc(values, CompareValues)

	want := []any{nil, int64(1), 2.5, "a", "b", false, true}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Errorf("sorted mismatch (-want +got):\n%s", diff)
	}
}

func TestArgs(t *testing.T) {
	if m, err := ArgMap(map[string]string{"a": "b"}); err != nil || m["a"] != "b" {
		t.Errorf("ArgMap() = %v, %v", m, err)
	}
	if _, err := ArgMap([]string{"a"}); err == nil {
		t.Error("ArgMap(slice) error = nil")
	}

	if s, err := ArgStrings([]any{"a", "b"}); err != nil || !slices.Equal(s, []string{"a", "b"}) {
		t.Errorf("ArgStrings() = %v, %v", s, err)
	}
	if _, err := ArgStrings([]any{"a", 1}); err == nil {
		t.Error("ArgStrings(mixed) error = nil")
	}

	for _, v := range []any{3, int64(3), 3.0} {
		if n, err := ArgInt(v); err != nil || n != 3 {
			t.Errorf("ArgInt(%#v) = %d, %v", v, n, err)
		}
	}
	for _, v := range []any{3.5, -1, "3"} {
		if _, err := ArgInt(v); err == nil {
			t.Errorf("ArgInt(%#v) error = nil", v)
		}
	}
}
