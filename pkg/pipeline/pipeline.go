// Package pipeline runs relation graph queries for the CLI and the HTTP API.
//
// A [Query] names a root relation, the child relations combined with it and
// the operations applied to each. The [Runner] composes the relations from a
// [Registry], materializes the graph, optionally nests child rows into root
// rows and caches the encoded result.
//
// # Usage
//
//	runner := pipeline.NewRunner(registry, cache, nil, logger)
//	q := pipeline.Query{
//	    Root:  pipeline.Step{Relation: "users", Ops: []pipeline.Op{{Name: "by_name", Args: []any{"Jane"}}}},
//	    Nodes: []pipeline.Step{{Relation: "tasks", Ops: []pipeline.Op{{Name: "for_users"}}}},
//	}
//	result, err := runner.Execute(ctx, q, pipeline.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.Stdout.Write(result.Data)
//
// Root operations are forwarded through the graph, so a refinement of the
// root keeps its children. Child operations refine the child before it is
// combined; a child method given fewer arguments than it takes stays
// curried and receives the root result when the graph is called.
package pipeline

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/relation"
	"github.com/matzehuels/relgraph/pkg/transform"
)

// DefaultConcurrency is how many children are called at once when the
// runner is not told otherwise.
const DefaultConcurrency = 4

// Op is a named operation and its arguments.
type Op struct {
	Name string `json:"op" toml:"op"`
	Args []any  `json:"args,omitempty" toml:"args,omitempty"`
}

// Step is a registered relation and the operations applied to it.
type Step struct {
	Relation string `json:"relation" toml:"relation"`
	Ops      []Op   `json:"ops,omitempty" toml:"ops,omitempty"`
}

// Query describes a graph: a root, its children and how to shape the result.
type Query struct {
	Root  Step   `json:"root" toml:"root"`
	Nodes []Step `json:"nodes,omitempty" toml:"nodes,omitempty"`
	// Combine nests the rows of child i under Combine[i].Name in each root
	// row. Without it the result is the raw [root, children] pair.
	Combine []transform.Join `json:"combine,omitempty" toml:"combine,omitempty"`
	// Args are passed to the root when the graph is called.
	Args []any `json:"args,omitempty" toml:"args,omitempty"`
}

// Validate checks relation and operation names.
func (q Query) Validate() error {
	if err := q.Root.validate("root"); err != nil {
		return err
	}
	for _, n := range q.Nodes {
		if err := n.validate("node"); err != nil {
			return err
		}
	}
	if len(q.Combine) > len(q.Nodes) {
		return errs.New(errs.ErrCodeInvalidQuery,
			"combine has %d joins but the query has %d nodes", len(q.Combine), len(q.Nodes))
	}
	return nil
}

func (s Step) validate(kind string) error {
	if s.Relation == "" {
		return errs.New(errs.ErrCodeInvalidQuery, "%s relation is required", kind)
	}
	if err := errs.ValidateName("relation", s.Relation); err != nil {
		return err
	}
	for _, op := range s.Ops {
		if err := errs.ValidateName("operation", op.Name); err != nil {
			return err
		}
	}
	return nil
}

// ReadQuery loads a query from a JSON or TOML file, chosen by extension.
// Files ending in .toml are TOML; everything else is JSON.
func ReadQuery(path string) (Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Query{}, errs.Wrap(errs.ErrCodeNotFound, err, "query file %s", path)
		}
		return Query{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "read query %s", path)
	}
	var q Query
	if filepath.Ext(path) == ".toml" {
		if err := toml.Unmarshal(data, &q); err != nil {
			return Query{}, errs.Wrap(errs.ErrCodeInvalidQuery, err, "parse query %s", path)
		}
	} else if err := json.Unmarshal(data, &q); err != nil {
		return Query{}, errs.Wrap(errs.ErrCodeInvalidQuery, err, "parse query %s", path)
	}
	return q, q.Validate()
}

// Options controls a single execution.
type Options struct {
	// Refresh skips the cache lookup; the fresh result is still stored.
	Refresh bool
	// NoCache neither reads nor writes the cache.
	NoCache bool
	// Logger overrides the runner's logger.
	Logger *log.Logger
}

func (o *Options) logger(fallback *log.Logger) *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	if fallback != nil {
		return fallback
	}
	return log.NewWithOptions(io.Discard, log.Options{})
}

// Result is the outcome of a query.
type Result struct {
	// Data is the JSON encoded result.
	Data json.RawMessage
	// Loaded is the materialized result. It is nil when Data came from the
	// cache or when the last root operation returned a non-relation value.
	Loaded *relation.Loaded
	// Stats describes the execution.
	Stats Stats
	// CacheHit reports whether Data came from the cache.
	CacheHit bool
}

// Stats contains execution statistics.
type Stats struct {
	RootRows  int
	Nodes     int
	Bytes     int
	BuildTime time.Duration
	CallTime  time.Duration
}
