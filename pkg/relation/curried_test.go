package relation

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	errs "github.com/matzehuels/relgraph/pkg/errors"
)

func TestCurried(t *testing.T) {
	users, _ := fixtures()
	c := Curry(users, "by_name", 1)

	if c.Name() != "users" {
		t.Errorf("Name() = %q, want users", c.Name())
	}
	if c.Kind() != KindCurried {
		t.Errorf("Kind() = %v, want curried", c.Kind())
	}
	if c.String() != "users.by_name" {
		t.Errorf("String() = %q, want users.by_name", c.String())
	}
	if c.Operation() != "by_name" || c.Arity() != 1 || len(c.Args()) != 0 {
		t.Errorf("Curried = %s/%d/%v", c.Operation(), c.Arity(), c.Args())
	}
	if c.Relation() != Queryable(users) {
		t.Error("Relation() is not the curried relation")
	}
}

func TestCurriedCall(t *testing.T) {
	tests := []struct {
		name     string
		curried  func(users *stub) *Curried
		args     []any
		want     []Row
		wantCode errs.Code
	}{
		{
			name:    "completes with call args",
			curried: func(u *stub) *Curried { return Curry(u, "by_name", 1) },
			args:    []any{"Joe"},
			want:    []Row{{"name": "Joe"}},
		},
		{
			name:    "already applied",
			curried: func(u *stub) *Curried { return Curry(u, "by_name", 1, "Jane") },
			want:    []Row{{"name": "Jane"}},
		},
		{
			name:     "missing args",
			curried:  func(u *stub) *Curried { return Curry(u, "by_name", 1) },
			wantCode: errs.ErrCodeArityMismatch,
		},
		{
			name:     "too many args",
			curried:  func(u *stub) *Curried { return Curry(u, "by_name", 1, "Jane") },
			args:     []any{"Joe"},
			wantCode: errs.ErrCodeArityMismatch,
		},
		{
			name:     "non-relation result",
			curried:  func(u *stub) *Curried { return Curry(u, "mappers", 0) },
			wantCode: errs.ErrCodeInvalidQuery,
		},
		{
			name:     "unknown operation",
			curried:  func(u *stub) *Curried { return Curry(u, "nope", 1) },
			args:     []any{"x"},
			wantCode: errs.ErrCodeNoSuchOperation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, _ := fixtures()
			loaded, err := tt.curried(users).Call(context.Background(), tt.args...)
			if tt.wantCode != "" {
				if !errs.Is(err, tt.wantCode) {
					t.Fatalf("Call() error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Call() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, loaded.Rows()); diff != "" {
				t.Errorf("Rows() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCurriedApply_Partial(t *testing.T) {
	users, _ := fixtures()
	pair := NewMethods[*stub]().Register("between", 2, func(s *stub, args ...any) (any, error) {
		return s, nil
	})
	users.methods = pair

	first, err := users.Refine("between", "a")
	if err != nil {
		t.Fatalf("Refine() error = %v", err)
	}
	c := first.(*Curried)

	next, err := c.Apply()
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	still, ok := next.(*Curried)
	if !ok {
		t.Fatalf("Apply() = %T, want *Curried", next)
	}
	if diff := cmp.Diff([]any{"a"}, still.Args()); diff != "" {
		t.Errorf("Args() mismatch (-want +got):\n%s", diff)
	}

	done, err := c.Apply("b")
	if err != nil {
		t.Fatalf("Apply(b) error = %v", err)
	}
	if done != any(users) {
		t.Errorf("Apply(b) = %v, want the relation", done)
	}
}

func TestCurriedRefine(t *testing.T) {
	users, _ := fixtures()
	c := Curry(users, "by_name", 1)

	res, err := c.Refine("by_name", "Jane")
	if err != nil {
		t.Fatalf("Refine() error = %v", err)
	}
	kept, ok := res.(*Curried)
	if !ok {
		t.Fatalf("Refine() = %T, want *Curried", res)
	}
	if kept.Operation() != "by_name" {
		t.Errorf("Operation() = %q, want by_name", kept.Operation())
	}

	// Jane restricted again by Joe yields nothing.
	loaded, err := kept.Call(context.Background(), "Joe")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !loaded.Empty() {
		t.Errorf("Rows() = %v, want none", loaded.Rows())
	}

	passthrough, err := c.Refine("mappers")
	if err != nil {
		t.Fatalf("Refine(mappers) error = %v", err)
	}
	if diff := cmp.Diff([]string{"entity"}, passthrough); diff != "" {
		t.Errorf("Refine(mappers) mismatch (-want +got):\n%s", diff)
	}

	if !c.RespondsTo("for_users") || c.RespondsTo("nope") {
		t.Error("RespondsTo does not follow the underlying relation")
	}
}
