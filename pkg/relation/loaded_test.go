package relation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	errs "github.com/matzehuels/relgraph/pkg/errors"
)

func TestLoaded(t *testing.T) {
	users, tasks := fixtures()
	rows := []Row{{"name": "Jane"}, {"id": 1}, {"name": "Joe"}}
	l := NewLoaded(users, rows)

	rows[0] = Row{"name": "changed"}
	if diff := cmp.Diff([]any{"Jane", "Joe"}, l.Pluck("name")); diff != "" {
		t.Errorf("Pluck() mismatch (-want +got):\n%s", diff)
	}
	if l.Len() != 3 || l.Empty() || l.IsGraph() {
		t.Errorf("Len/Empty/IsGraph = %d/%v/%v", l.Len(), l.Empty(), l.IsGraph())
	}

	empty := NewLoaded(tasks, nil)
	if !empty.Empty() {
		t.Error("Empty() = false for nil rows")
	}
	if diff := cmp.Diff([]Row{}, empty.Data()); diff != "" {
		t.Errorf("Data() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadedEqual(t *testing.T) {
	users, tasks := fixtures()
	other := newStub("users")

	tests := []struct {
		name string
		a, b *Loaded
		want bool
	}{
		{"same source and rows", NewLoaded(users, users.rows), NewLoaded(users, users.rows), true},
		{"same name different relation", NewLoaded(users, nil), NewLoaded(other, []Row{}), true},
		{"different source", NewLoaded(users, nil), NewLoaded(tasks, nil), false},
		{"different rows", NewLoaded(users, users.rows), NewLoaded(users, users.rows[:1]), false},
		{"both nil", nil, nil, true},
		{"one nil", NewLoaded(users, nil), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadedGraph(t *testing.T) {
	users, tasks := fixtures()
	g := mustBuild(t, users, []Relation{tasks})
	l, err := g.Call(context.Background())
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if l.Len() != 2 || l.Root().Len() != 2 || len(l.Nodes()) != 1 {
		t.Errorf("Len/Root/Nodes = %d/%d/%d", l.Len(), l.Root().Len(), len(l.Nodes()))
	}
	if diff := cmp.Diff([]any{"Jane", "Joe"}, l.Pluck("name")); diff != "" {
		t.Errorf("Pluck() mismatch (-want +got):\n%s", diff)
	}

	b, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `[[{"name":"Jane"},{"name":"Joe"}],[[` +
		`{"title":"Do something","user":"Jane"},` +
		`{"title":"Do something else","user":"Joe"},` +
		`{"title":"Unrelated","user":"Anna"}]]]`
	if string(b) != want {
		t.Errorf("Marshal() = %s\nwant %s", b, want)
	}
}

func TestMaterializeHelpers(t *testing.T) {
	users, _ := fixtures()
	ctx := context.Background()

	rows, err := ToRows(ctx, users)
	if err != nil {
		t.Fatalf("ToRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("len(ToRows()) = %d, want 2", len(rows))
	}

	n, err := Count(ctx, users)
	if err != nil || n != 2 {
		t.Errorf("Count() = %d, %v; want 2", n, err)
	}

	tests := []struct {
		name     string
		arg      any
		want     []any
		wantCode errs.Code
	}{
		{"loaded", NewLoaded(users, users.rows), []any{"Jane", "Joe"}, ""},
		{"rows", users.rows, []any{"Jane", "Joe"}, ""},
		{"row", Row{"name": "Ann"}, []any{"Ann"}, ""},
		{"row without attr", Row{"id": 1}, []any{}, ""},
		{"string", "Jane", nil, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Values(tt.arg, "name")
			if tt.wantCode != "" {
				if !errs.Is(err, tt.wantCode) {
					t.Fatalf("Values() error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Values() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Values() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
