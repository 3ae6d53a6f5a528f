// Package transform provides mappers that reshape materialized results.
//
// The mappers are meant to be piped after a graph or relation:
//
//	nested := g.Pipe(transform.Combine(transform.Join{
//		Name: "tasks",
//		Keys: map[string]string{"user": "name"},
//	}))
//
// Combine turns the [root, children] pair produced by a graph into root rows
// that carry their related child rows under a named attribute.
package transform

import (
	"context"
	"maps"

	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/relation"
)

// Join describes how the rows of one graph child attach to root rows.
type Join struct {
	// Name is the root attribute that receives the matching child rows.
	Name string `json:"name" toml:"name"`
	// Keys maps child attributes to the root attributes they must equal.
	Keys map[string]string `json:"keys" toml:"keys"`
}

// Combine nests child rows into root rows. joins[i] describes the i-th
// graph child; children without a join are dropped. A root row with no
// matching child rows gets an empty list.
func Combine(joins ...Join) relation.Mapper {
	return relation.NewMapper("combine", func(_ context.Context, in *relation.Loaded) ([]relation.Row, error) {
		if !in.IsGraph() {
			return nil, errs.New(errs.ErrCodeInvalidInput, "combine needs a graph result")
		}
		nodes := in.Nodes()
		if len(joins) > len(nodes) {
			return nil, errs.New(errs.ErrCodeInvalidQuery,
				"combine has %d joins but the graph has %d children", len(joins), len(nodes))
		}
		for _, j := range joins {
			if j.Name == "" || len(j.Keys) == 0 {
				return nil, errs.New(errs.ErrCodeInvalidQuery, "join needs a name and at least one key")
			}
		}

		roots := in.Root().Rows()
		out := make([]relation.Row, len(roots))
		for i, root := range roots {
			next := maps.Clone(root)
			for k, j := range joins {
				next[j.Name] = related(root, nodes[k].Rows(), j.Keys)
			}
			out[i] = next
		}
		return out, nil
	})
}

func related(root relation.Row, children []relation.Row, keys map[string]string) []relation.Row {
	out := []relation.Row{}
	for _, child := range children {
		if joins(root, child, keys) {
			out = append(out, child)
		}
	}
	return out
}

func joins(root, child relation.Row, keys map[string]string) bool {
	for childAttr, rootAttr := range keys {
		rv, ok := root[rootAttr]
		if !ok {
			return false
		}
		cv, ok := child[childAttr]
		if !ok || !relation.SameValue(rv, cv) {
			return false
		}
	}
	return true
}

// Root returns the root rows of a graph result and the rows of a flat one.
func Root() relation.Mapper {
	return relation.NewMapper("root", func(_ context.Context, in *relation.Loaded) ([]relation.Row, error) {
		return in.Rows(), nil
	})
}

// Rename renames attributes. Attributes not in names are kept as they are.
func Rename(names map[string]string) relation.Mapper {
	names = maps.Clone(names)
	return relation.NewMapper("rename", func(_ context.Context, in *relation.Loaded) ([]relation.Row, error) {
		rows := in.Rows()
		out := make([]relation.Row, len(rows))
		for i, r := range rows {
			next := make(relation.Row, len(r))
			for k, v := range r {
				if to, ok := names[k]; ok {
					k = to
				}
				next[k] = v
			}
			out[i] = next
		}
		return out, nil
	})
}

// Project keeps only attrs.
func Project(attrs ...string) relation.Mapper {
	return relation.NewMapper("project", func(_ context.Context, in *relation.Loaded) ([]relation.Row, error) {
		rows := in.Rows()
		out := make([]relation.Row, len(rows))
		for i, r := range rows {
			next := make(relation.Row, len(attrs))
			for _, a := range attrs {
				if v, ok := r[a]; ok {
					next[a] = v
				}
			}
			out[i] = next
		}
		return out, nil
	})
}
