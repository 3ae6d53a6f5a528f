package relation

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	errs "github.com/matzehuels/relgraph/pkg/errors"
)

func TestQuery_Builders(t *testing.T) {
	var zero Query

	tests := []struct {
		name      string
		q         Query
		wantWhere []map[string]any
		wantAttrs []string
		wantOrder []string
		wantLimit int
		wantOK    bool
		wantStr   string
	}{
		{
			name:    "zero",
			q:       zero,
			wantStr: "",
		},
		{
			name:      "restrictions accumulate",
			q:         zero.Restrict(map[string]any{"name": "Jane"}).Restrict(map[string]any{"age": 34}),
			wantWhere: []map[string]any{{"name": "Jane"}, {"age": 34}},
			wantStr:   ".restrict(map[name:Jane]).restrict(map[age:34])",
		},
		{
			name:      "later project and order replace earlier ones",
			q:         zero.Project("id").Project("name").Order("id").Order("-age"),
			wantAttrs: []string{"name"},
			wantOrder: []string{"-age"},
			wantStr:   ".order(-age).project(name)",
		},
		{
			name:      "limit",
			q:         zero.Limit(5),
			wantLimit: 5,
			wantOK:    true,
			wantStr:   ".limit(5)",
		},
		{
			name:      "zero limit",
			q:         zero.Limit(0),
			wantLimit: 0,
			wantOK:    true,
			wantStr:   ".limit(0)",
		},
		{
			name:    "negative limit clears",
			q:       zero.Limit(3).Limit(-1),
			wantStr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.wantWhere, tt.q.Conditions()); diff != "" {
				t.Errorf("Conditions() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantAttrs, tt.q.Attrs()); diff != "" {
				t.Errorf("Attrs() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantOrder, tt.q.OrderKeys()); diff != "" {
				t.Errorf("OrderKeys() mismatch (-want +got):\n%s", diff)
			}
			if n, ok := tt.q.MaxRows(); n != tt.wantLimit || ok != tt.wantOK {
				t.Errorf("MaxRows() = %d, %v, want %d, %v", n, ok, tt.wantLimit, tt.wantOK)
			}
			if got := tt.q.String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestQuery_CopiesArguments(t *testing.T) {
	cond := map[string]any{"name": "Jane"}
	attrs := []string{"name"}
	keys := []string{"-age"}
	q := Query{}.Restrict(cond).Project(attrs...).Order(keys...)

	cond["name"] = "Joe"
	cond["age"] = 28
	attrs[0] = "id"
	keys[0] = "id"

	if diff := cmp.Diff([]map[string]any{{"name": "Jane"}}, q.Conditions()); diff != "" {
		t.Errorf("Conditions() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name"}, q.Attrs()); diff != "" {
		t.Errorf("Attrs() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-age"}, q.OrderKeys()); diff != "" {
		t.Errorf("OrderKeys() mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_BranchesAreIndependent(t *testing.T) {
	base := Query{}.Restrict(map[string]any{"a": 1}).Restrict(map[string]any{"b": 2})

	left := base.Restrict(map[string]any{"c": 3})
	right := base.Restrict(map[string]any{"d": 4})

	if diff := cmp.Diff([]map[string]any{{"a": 1}, {"b": 2}, {"c": 3}}, left.Conditions()); diff != "" {
		t.Errorf("left mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]map[string]any{{"a": 1}, {"b": 2}, {"d": 4}}, right.Conditions()); diff != "" {
		t.Errorf("right mismatch (-want +got):\n%s", diff)
	}
	if n := len(base.Conditions()); n != 2 {
		t.Errorf("base has %d conditions, want 2", n)
	}
}

func TestQuery_Cap(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		n    int
		want int
	}{
		{"no limit", Query{}, 7, 7},
		{"under limit", Query{}.Limit(10), 7, 7},
		{"over limit", Query{}.Limit(3), 7, 3},
		{"zero limit", Query{}.Limit(0), 7, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Cap(tt.n); got != tt.want {
				t.Errorf("Cap(%d) = %d, want %d", tt.n, got, tt.want)
			}
		})
	}
}

func TestArgMap_Copies(t *testing.T) {
	for _, in := range []any{map[string]any{"name": "Jane"}, Row{"name": "Jane"}} {
		got, err := ArgMap(in)
		if err != nil {
			t.Fatalf("ArgMap(%T) error = %v", in, err)
		}
		got["name"] = "Joe"
		var orig any
		switch m := in.(type) {
		case map[string]any:
			orig = m["name"]
		case Row:
			orig = m["name"]
		}
		if orig != "Jane" {
			t.Errorf("ArgMap(%T) returned the caller's map", in)
		}
	}
}

func TestCatalog(t *testing.T) {
	users, _ := fixtures()
	cat := NewCatalog(NewMethods[*stub]().
		Register("all", 0, func(s *stub, _ ...any) (any, error) { return s, nil }))

	byName := func(s *stub, args ...any) (any, error) {
		return s.where(func(r Row) bool { return r["name"] == args[0] }), nil
	}
	if err := cat.Define("users", "by_name", 1, byName); err != nil {
		t.Fatalf("Define() error = %v", err)
	}

	tests := []struct {
		name     string
		define   func() error
		wantCode errs.Code
	}{
		{"builtin name", func() error { return cat.Define("users", OpRestrict, 1, byName) }, errs.ErrCodeInvalidName},
		{"invalid name", func() error { return cat.Define("users", "by name", 1, byName) }, errs.ErrCodeInvalidName},
		{"negative arity", func() error { return cat.Define("users", "odd", -1, byName) }, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.define(); !errs.Is(err, tt.wantCode) {
				t.Errorf("Define() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}

	res, err := cat.Dispatch(users, "by_name", []any{"Joe"})
	if err != nil {
		t.Fatalf("Dispatch(by_name) error = %v", err)
	}
	loaded, err := res.(*stub).Call(context.Background())
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if diff := cmp.Diff([]Row{{"name": "Joe"}}, loaded.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	if !cat.RespondsTo("users", "by_name") || !cat.RespondsTo("users", "all") {
		t.Error("users lost a method")
	}
	if cat.RespondsTo("tasks", "by_name") {
		t.Error("method defined on users leaked to tasks")
	}
	if !cat.RespondsTo("tasks", "all") {
		t.Error("tasks is missing the base methods")
	}

	if err := cat.RegisterMapper("users", NewMapper("noop", nil)); err != nil {
		t.Fatalf("RegisterMapper() error = %v", err)
	}
	if diff := cmp.Diff([]string{"noop"}, cat.Mappers("users")); diff != "" {
		t.Errorf("Mappers() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := cat.Mapper("tasks", "noop"); ok {
		t.Error("mapper registered on users leaked to tasks")
	}
}
