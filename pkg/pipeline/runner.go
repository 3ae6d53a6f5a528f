package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/relgraph/pkg/cache"
	"github.com/matzehuels/relgraph/pkg/diagram"
	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/relation"
	"github.com/matzehuels/relgraph/pkg/transform"
)

// Registry resolves relation names. *config.Registry implements it.
type Registry interface {
	Relation(name string) (relation.Queryable, error)
	// Hash identifies the registry contents; it is part of every cache key.
	Hash() string
}

// Runner encapsulates query execution with caching.
// Both CLI and API use it so cached results are shared between them.
//
// The Runner holds no per-query state. Multiple goroutines can safely use
// the same Runner.
type Runner struct {
	Registry Registry
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
	// Concurrency bounds how many children are called at once.
	Concurrency int
	// TTL is how long results stay cached. Zero means cache.TTLQuery.
	TTL time.Duration
}

// NewRunner creates a runner over reg.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(reg Registry, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Registry:    reg,
		Cache:       c,
		Keyer:       keyer,
		Logger:      logger,
		Concurrency: DefaultConcurrency,
	}
}

// plan is a composed query ready to be called.
type plan struct {
	// call is what Execute materializes; nil when value holds the result.
	call    relation.Relation
	value   any
	outline diagram.Outline
}

// Execute composes q, materializes it and returns the JSON encoded result.
// Results are cached under the query hash and the registry hash.
func (r *Runner) Execute(ctx context.Context, q Query, opts Options) (*Result, error) {
	logger := opts.logger(r.Logger)

	key, err := r.queryKey(q)
	if err != nil {
		return nil, err
	}
	if !opts.NoCache && !opts.Refresh {
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil {
			logger.Warn("cache read failed", "err", err)
		} else if hit {
			logger.Debug("query cache hit", "root", q.Root.Relation)
			return &Result{Data: data, CacheHit: true, Stats: Stats{Nodes: len(q.Nodes), Bytes: len(data)}}, nil
		}
	}

	buildStart := time.Now()
	p, err := r.compose(q, logger)
	if err != nil {
		return nil, err
	}
	result := &Result{Stats: Stats{Nodes: len(q.Nodes), BuildTime: time.Since(buildStart)}}

	callStart := time.Now()
	payload := p.value
	if p.call != nil {
		loaded, err := p.call.Call(ctx, q.Args...)
		if err != nil {
			return nil, err
		}
		result.Loaded = loaded
		result.Stats.RootRows = loaded.Len()
		payload = loaded
	}
	result.Stats.CallTime = time.Since(callStart)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "encode result")
	}
	result.Data = data
	result.Stats.Bytes = len(data)

	logger.Info("executed query",
		"root", q.Root.Relation,
		"nodes", result.Stats.Nodes,
		"root_rows", result.Stats.RootRows,
		"duration", result.Stats.BuildTime+result.Stats.CallTime)

	if !opts.NoCache {
		if err := r.Cache.Set(ctx, key, data, r.ttl()); err != nil {
			logger.Warn("cache write failed", "err", err)
		}
	}
	return result, nil
}

// Describe composes q without calling it and returns its outline.
func (r *Runner) Describe(q Query) (diagram.Outline, error) {
	p, err := r.compose(q, r.Logger)
	if err != nil {
		return diagram.Outline{}, err
	}
	return p.outline, nil
}

// Diagram renders the outline of q in format, caching the output.
// It reports whether the output came from the cache.
func (r *Runner) Diagram(ctx context.Context, q Query, format string) ([]byte, bool, error) {
	if err := diagram.ValidateFormat(format); err != nil {
		return nil, false, err
	}
	hash, err := cache.HashJSON(q)
	if err != nil {
		return nil, false, errs.Wrap(errs.ErrCodeInvalidQuery, err, "hash query")
	}
	key := r.Keyer.DiagramKey(hash, cache.DiagramKeyOpts{Format: format})
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		return data, true, nil
	}

	outline, err := r.Describe(q)
	if err != nil {
		return nil, false, err
	}
	data, err := diagram.Render(ctx, outline, format)
	if err != nil {
		return nil, false, err
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLDiagram); err != nil {
		r.Logger.Warn("cache write failed", "err", err)
	}
	return data, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) queryKey(q Query) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}
	hash, err := cache.HashJSON(q)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidQuery, err, "hash query")
	}
	return r.Keyer.QueryKey(hash, cache.QueryKeyOpts{ConfigHash: r.Registry.Hash()}), nil
}

func (r *Runner) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return cache.TTLQuery
}

// compose builds the graph for q. Children are refined first and combined
// with the unrefined root; root operations are then forwarded through the
// graph so each refinement keeps the children.
func (r *Runner) compose(q Query, logger *log.Logger) (*plan, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	root, err := r.Registry.Relation(q.Root.Relation)
	if err != nil {
		return nil, err
	}

	outline := diagram.Outline{Nodes: make([]diagram.Vertex, 0, len(q.Nodes))}
	nodes := make([]relation.Relation, len(q.Nodes))
	for i, step := range q.Nodes {
		n, err := r.node(step)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
		outline.Nodes = append(outline.Nodes, vertex(step, n))
	}

	g, err := relation.Build(root, nodes,
		relation.WithConcurrency(r.Concurrency),
		relation.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	p := &plan{}
	for i, op := range q.Root.Ops {
		f, err := g.Forward(op.Name, op.Args...)
		if err != nil {
			return nil, err
		}
		next, ok := f.Graph()
		if ok {
			g = next
			continue
		}
		if i != len(q.Root.Ops)-1 {
			return nil, errs.New(errs.ErrCodeInvalidQuery,
				"root operation %s returned %T and must be the last root operation", op.Name, f.Value())
		}
		p.value = f.Value()
	}
	outline.Root = vertex(q.Root, g.Root())
	outline.Root.Kind = g.Kind().String()

	switch v := p.value.(type) {
	case nil:
		p.call = g
		if len(q.Combine) > 0 {
			m := transform.Combine(q.Combine...)
			p.call = g.Pipe(m)
			outline.Mappers = []string{m.Name()}
		}
	case relation.Relation:
		// A relation the graph policy does not decorate, e.g. a root with
		// mappers attached. It is called on its own.
		p.call = v
		p.value = nil
		outline.Root = vertex(q.Root, v)
		outline.Nodes = nil
	default:
		if len(q.Combine) > 0 {
			return nil, errs.New(errs.ErrCodeInvalidQuery, "combine needs a relation result")
		}
	}
	p.outline = outline
	return p, nil
}

// node refines a child relation by its operations in order.
func (r *Runner) node(step Step) (relation.Relation, error) {
	base, err := r.Registry.Relation(step.Relation)
	if err != nil {
		return nil, err
	}
	var cur any = base
	for _, op := range step.Ops {
		q, ok := cur.(relation.Queryable)
		if !ok {
			return nil, errs.New(errs.ErrCodeInvalidQuery,
				"node %s: operation %s applied to %T", step.Relation, op.Name, cur)
		}
		if cur, err = q.Refine(op.Name, op.Args...); err != nil {
			return nil, err
		}
	}
	rel, ok := cur.(relation.Relation)
	if !ok {
		return nil, errs.New(errs.ErrCodeInvalidQuery, "node %s: result %T is not a relation", step.Relation, cur)
	}
	return rel, nil
}

func vertex(step Step, rel relation.Relation) diagram.Vertex {
	v := diagram.Vertex{Relation: step.Relation, Kind: rel.Kind().String(), Label: rel.Name()}
	if s, ok := rel.(fmt.Stringer); ok {
		v.Label = s.String()
	}
	for _, op := range step.Ops {
		v.Ops = append(v.Ops, op.Name)
	}
	return v
}
