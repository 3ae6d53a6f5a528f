package mongodb

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/relation"
)

// Relation is a lazily evaluated find over one collection.
type Relation struct {
	relation.Query

	gw         *Gateway
	name       string
	collection string
}

// Name returns the relation name.
func (r *Relation) Name() string { return r.name }

// Kind returns relation.KindPlain.
func (r *Relation) Kind() relation.Kind { return relation.KindPlain }

// Collection returns the collection name.
func (r *Relation) Collection() string { return r.collection }

// String returns "name(collection)" followed by the pending refinements.
func (r *Relation) String() string {
	return fmt.Sprintf("%s(%s)%s", r.name, r.collection, r.Query)
}

func (r *Relation) with(q relation.Query) *Relation {
	next := *r
	next.Query = q
	return &next
}

// Restrict adds an equality filter. Slice values become $in.
func (r *Relation) Restrict(cond map[string]any) *Relation { return r.with(r.Query.Restrict(cond)) }

// Project returns only attrs.
func (r *Relation) Project(attrs ...string) *Relation { return r.with(r.Query.Project(attrs...)) }

// Order sets the sort. A leading "-" sorts descending.
func (r *Relation) Order(keys ...string) *Relation { return r.with(r.Query.Order(keys...)) }

// Limit caps the number of documents.
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

// Filter returns the query document.
func (r *Relation) Filter() bson.D {
	where := r.Conditions()
	parts := make([]bson.D, 0, len(where))
	for _, cond := range where {
		parts = append(parts, condition(cond))
	}
	switch len(parts) {
	case 0:
		return bson.D{}
	case 1:
		return parts[0]
	}
	all := make(bson.A, len(parts))
	for i, p := range parts {
		all[i] = p
	}
	return bson.D{{Key: "$and", Value: all}}
}

func condition(cond map[string]any) bson.D {
	d := make(bson.D, 0, len(cond))
	for _, attr := range slices.Sorted(maps.Keys(cond)) {
		v := cond[attr]
		if list, ok := asList(v); ok {
			d = append(d, bson.E{Key: attr, Value: bson.D{{Key: "$in", Value: list}}})
			continue
		}
		d = append(d, bson.E{Key: attr, Value: v})
	}
	return d
}

func asList(v any) (bson.A, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	// Binary payloads are values, not lists.
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make(bson.A, rv.Len())
	for i := range rv.Len() {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Projection returns the projection document. _id is excluded unless
// projected.
func (r *Relation) Projection() bson.D {
	attrs := r.Attrs()
	d := bson.D{}
	for _, a := range attrs {
		d = append(d, bson.E{Key: a, Value: 1})
	}
	if !slices.Contains(attrs, "_id") {
		d = append(d, bson.E{Key: "_id", Value: 0})
	}
	return d
}

// Sort returns the sort document.
func (r *Relation) Sort() bson.D {
	d := bson.D{}
	for _, key := range r.OrderKeys() {
		if attr, desc := strings.CutPrefix(key, "-"); desc {
			d = append(d, bson.E{Key: attr, Value: -1})
		} else {
			d = append(d, bson.E{Key: attr, Value: 1})
		}
	}
	return d
}

func (r *Relation) findOptions() *options.FindOptions {
	opts := options.Find().SetProjection(r.Projection())
	if len(r.OrderKeys()) > 0 {
		opts.SetSort(r.Sort())
	}
	if n, ok := r.MaxRows(); ok {
		opts.SetLimit(int64(n))
	}
	return opts
}

func (r *Relation) empty() bool {
	n, ok := r.MaxRows()
	return ok && n == 0
}

func (r *Relation) coll() (*mongo.Collection, error) {
	if r.gw.db == nil {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "mongodb gateway for %s has no client", r.name)
	}
	return r.gw.db.Collection(r.collection), nil
}

// Call runs the find. Arguments are ignored.
func (r *Relation) Call(ctx context.Context, _ ...any) (*relation.Loaded, error) {
	c, err := r.coll()
	if err != nil {
		return nil, err
	}
	if r.empty() {
		// A zero limit means "no limit" to the server.
		return relation.NewLoaded(r, []relation.Row{}), nil
	}
	cur, err := c.Find(ctx, r.Filter(), r.findOptions())
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "find %s", r.name)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "read %s", r.name)
	}
	rows := make([]relation.Row, len(docs))
	for i, d := range docs {
		rows[i] = relation.Row(d)
	}
	return relation.NewLoaded(r, rows), nil
}

// Count runs CountDocuments with the relation's filter and limit.
func (r *Relation) Count(ctx context.Context) (int, error) {
	c, err := r.coll()
	if err != nil {
		return 0, err
	}
	if r.empty() {
		return 0, nil
	}
	opts := options.Count()
	if n, ok := r.MaxRows(); ok {
		opts.SetLimit(int64(n))
	}
	n, err := c.CountDocuments(ctx, r.Filter(), opts)
	if err != nil {
		return 0, errs.Wrap(errs.ErrCodeInternal, err, "count %s", r.name)
	}
	return int(n), nil
}

var (
	_ relation.Refinable[*Relation] = (*Relation)(nil)
	_ relation.Counter              = (*Relation)(nil)
	_ relation.Responder            = (*Relation)(nil)
)
