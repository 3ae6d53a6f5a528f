package mongodb

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"

	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/relation"
)

func TestFilter(t *testing.T) {
	users := New(nil, "app").Relation("users")

	tests := []struct {
		name string
		rel  *Relation
		want bson.D
	}{
		{
			name: "none",
			rel:  users,
			want: bson.D{},
		},
		{
			name: "equality sorted by key",
			rel:  users.Restrict(map[string]any{"name": "Jane", "age": 34}),
			want: bson.D{{Key: "age", Value: 34}, {Key: "name", Value: "Jane"}},
		},
		{
			name: "slice becomes $in",
			rel:  users.Restrict(map[string]any{"name": []string{"Jane", "Joe"}}),
			want: bson.D{{Key: "name", Value: bson.D{{Key: "$in", Value: bson.A{"Jane", "Joe"}}}}},
		},
		{
			name: "bytes stay a value",
			rel:  users.Restrict(map[string]any{"hash": []byte("ab")}),
			want: bson.D{{Key: "hash", Value: []byte("ab")}},
		},
		{
			name: "restrictions combine with $and",
			rel:  users.Restrict(map[string]any{"name": "Jane"}).Restrict(map[string]any{"name": []any{"Jane"}}),
			want: bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "name", Value: "Jane"}},
				bson.D{{Key: "name", Value: bson.D{{Key: "$in", Value: bson.A{"Jane"}}}}},
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.rel.Filter()); diff != "" {
				t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProjectionAndSort(t *testing.T) {
	users := New(nil, "app").Relation("users")

	tests := []struct {
		name     string
		rel      *Relation
		wantProj bson.D
		wantSort bson.D
	}{
		{
			name:     "defaults drop _id",
			rel:      users,
			wantProj: bson.D{{Key: "_id", Value: 0}},
			wantSort: bson.D{},
		},
		{
			name:     "projected attributes",
			rel:      users.Project("name").Order("-age", "name"),
			wantProj: bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 0}},
			wantSort: bson.D{{Key: "age", Value: -1}, {Key: "name", Value: 1}},
		},
		{
			name:     "explicit _id",
			rel:      users.Project("_id", "name"),
			wantProj: bson.D{{Key: "_id", Value: 1}, {Key: "name", Value: 1}},
			wantSort: bson.D{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.wantProj, tt.rel.Projection()); diff != "" {
				t.Errorf("Projection() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantSort, tt.rel.Sort()); diff != "" {
				t.Errorf("Sort() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRefine(t *testing.T) {
	gw := New(nil, "app")
	if err := gw.Define("tasks", "for_users", 1, relation.JoinOn[*Relation](map[string]string{"user": "name"})); err != nil {
		t.Fatalf("Define() error = %v", err)
	}
	tasks := gw.Relation("tasks")

	res, err := tasks.Refine("for_users", relation.NewLoaded(nil, []relation.Row{{"name": "Jane"}, {"name": "Joe"}}))
	if err != nil {
		t.Fatalf("Refine() error = %v", err)
	}
	want := bson.D{{Key: "user", Value: bson.D{{Key: "$in", Value: bson.A{"Jane", "Joe"}}}}}
	if diff := cmp.Diff(want, res.(*Relation).Filter()); diff != "" {
		t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
	}

	curried, err := tasks.Refine("for_users")
	if err != nil {
		t.Fatalf("Refine() error = %v", err)
	}
	if curried.(relation.Relation).Kind() != relation.KindCurried {
		t.Errorf("Refine without args kind = %v, want curried", curried.(relation.Relation).Kind())
	}

	if _, err := tasks.Refine("limit", 2.0); err != nil {
		t.Errorf("Refine(limit) error = %v", err)
	}
	if _, err := gw.Relation("users").Refine("for_users"); !errs.Is(err, errs.ErrCodeNoSuchOperation) {
		t.Errorf("Refine on other relation error = %v, want NO_SUCH_OPERATION", err)
	}
	if err := gw.Define("tasks", "order", 1, nil); !errs.Is(err, errs.ErrCodeInvalidName) {
		t.Errorf("Define(order) error = %v, want INVALID_NAME", err)
	}
}

func TestWithoutClient(t *testing.T) {
	users := New(nil, "app").Relation("users")

	if _, err := users.Call(context.Background()); !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("Call() error = %v, want INVALID_CONFIG", err)
	}
	if _, err := users.Count(context.Background()); !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("Count() error = %v, want INVALID_CONFIG", err)
	}
	if err := New(nil, "app").Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestConnect_Validation(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		database string
		wantCode errs.Code
	}{
		{"bad scheme", "http://localhost", "app", errs.ErrCodeInvalidInput},
		{"empty uri", "", "app", errs.ErrCodeInvalidInput},
		{"bad database", "mongodb://localhost:27017", "app db", errs.ErrCodeInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Connect(context.Background(), tt.uri, tt.database)
			if !errs.Is(err, tt.wantCode) {
				t.Errorf("Connect() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestRelation_IndependentOfCallerArgs(t *testing.T) {
	users := New(nil, "app").Relation("users")

	cond := map[string]any{"name": "Jane"}
	refined, err := users.Refine("restrict", cond)
	if err != nil {
		t.Fatalf("Refine(restrict) error = %v", err)
	}
	keys := []string{"-age"}
	rel := refined.(*Relation).Order(keys...)

	cond["name"] = "Joe"
	keys[0] = "name"

	if diff := cmp.Diff(bson.D{{Key: "name", Value: "Jane"}}, rel.Filter()); diff != "" {
		t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(bson.D{{Key: "age", Value: -1}}, rel.Sort()); diff != "" {
		t.Errorf("Sort() mismatch (-want +got):\n%s", diff)
	}
}
