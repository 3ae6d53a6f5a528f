package relation

import (
	"context"
	"slices"
	"time"

	"github.com/sourcegraph/conc/pool"

	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/observability"
)

// Graph is a root relation combined with ordered child relations.
//
// Graphs are values: Combine and Forward return new graphs and never change
// the receiver. Root and children are held by reference and never mutated.
type Graph struct {
	root  Queryable
	nodes []Relation
	opts  options
}

// Build returns a graph of root and nodes.
// It fails with UNSUPPORTED_RELATION if any node is a composite relation.
// The root is not checked.
func Build(root Queryable, nodes []Relation, opts ...Option) (*Graph, error) {
	if root == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "graph root cannot be nil")
	}
	if err := validateNodes(nodes); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Graph{root: root, nodes: slices.Clone(nodes), opts: o}, nil
}

func validateNodes(nodes []Relation) error {
	for i, n := range nodes {
		if n == nil {
			return errs.New(errs.ErrCodeInvalidInput, "graph node %d is nil", i)
		}
		switch n.Kind() {
		case KindComposite:
			return errs.UnsupportedComposition()
		case KindPlain, KindCurried, KindGraph:
		default:
			return errs.New(errs.ErrCodeInvalidInput, "graph node %d has unknown kind %s", i, n.Kind())
		}
	}
	return nil
}

// Combine returns a graph with the same root and nodes appended after the
// existing ones. The new nodes are validated like in Build.
func (g *Graph) Combine(nodes ...Relation) (*Graph, error) {
	if err := validateNodes(nodes); err != nil {
		return nil, err
	}
	return g.with(g.root, slices.Concat(g.nodes, nodes)), nil
}

func (g *Graph) with(root Queryable, nodes []Relation) *Graph {
	return &Graph{root: root, nodes: nodes, opts: g.opts}
}

// Name returns the root's name.
func (g *Graph) Name() string { return g.root.Name() }

// Kind returns KindGraph.
func (g *Graph) Kind() Kind { return KindGraph }

// Root returns the root relation.
func (g *Graph) Root() Queryable { return g.root }

// Nodes returns the child relations in evaluation order.
func (g *Graph) Nodes() []Relation { return slices.Clone(g.nodes) }

// Pipe attaches mappers applied to the graph's nested result.
func (g *Graph) Pipe(mappers ...Mapper) *Composite { return Pipe(g, mappers...) }

// Call materializes the graph.
//
// The root is called with args. If its result has rows, every node is
// called with that result; otherwise no node is called and each node's
// result is empty. The returned Loaded holds [rootResult, nodeResults].
// Errors from the root or any node abort the call and are returned as-is.
func (g *Graph) Call(ctx context.Context, args ...any) (*Loaded, error) {
	hooks := observability.Materialize()
	start := time.Now()
	hooks.OnMaterializeStart(ctx, g.Name(), len(g.nodes))

	loaded, stats, err := g.materialize(ctx, args)

	hooks.OnMaterializeComplete(ctx, g.Name(), stats, time.Since(start), err)
	return loaded, err
}

func (g *Graph) materialize(ctx context.Context, args []any) (*Loaded, observability.MaterializeStats, error) {
	stats := observability.MaterializeStats{Nodes: len(g.nodes)}

	left, err := g.root.Call(ctx, args...)
	if err != nil {
		return nil, stats, err
	}
	if left == nil {
		return nil, stats, noResult(g.root)
	}
	stats.RootRows = left.Len()

	if !g.opts.hasRows(left) {
		stats.ShortCircuit = true
		g.opts.logger.Debug("root is empty, skipping nodes", "relation", g.Name(), "nodes", len(g.nodes))
		right := make([]*Loaded, len(g.nodes))
		for i, node := range g.nodes {
			right[i] = NewLoaded(node, nil)
		}
		return newGraphLoaded(g, left, right), stats, nil
	}

	g.opts.logger.Debug("materializing nodes", "relation", g.Name(), "root_rows", stats.RootRows, "nodes", len(g.nodes))
	right, err := g.callNodes(ctx, left)
	if err != nil {
		return nil, stats, err
	}
	return newGraphLoaded(g, left, right), stats, nil
}

// callNodes calls every node with the root result, keeping node order.
func (g *Graph) callNodes(ctx context.Context, left *Loaded) ([]*Loaded, error) {
	results := make([]*Loaded, len(g.nodes))

	if g.opts.concurrency < 2 || len(g.nodes) < 2 {
		for i, node := range g.nodes {
			res, err := node.Call(ctx, left)
			if err != nil {
				return nil, err
			}
			if res == nil {
				return nil, noResult(node)
			}
			results[i] = res
		}
		return results, nil
	}

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(g.opts.concurrency)
	for i, node := range g.nodes {
		p.Go(func(ctx context.Context) error {
			res, err := node.Call(ctx, left)
			if err != nil {
				return err
			}
			if res == nil {
				return noResult(node)
			}
			results[i] = res
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func noResult(r Relation) error {
	return errs.New(errs.ErrCodeInternal, "relation %s returned no result", r.Name())
}

// Forward invokes op on the root.
//
// If the response is decorated by the graph's policy the result wraps a new
// graph whose root is the response and whose nodes are unchanged. Otherwise
// the response passes through. Errors from the root, including
// *errors.NoSuchOperationError, are returned as-is.
func (g *Graph) Forward(op string, args ...any) (Forwarded, error) {
	res, err := g.root.Refine(op, args...)
	if err != nil {
		return Forwarded{}, err
	}
	if Classify(g.opts.policy, res) == ForwardWrap {
		return Forwarded{kind: ForwardWrap, graph: g.with(res.(Queryable), g.nodes)}, nil
	}
	return Forwarded{kind: ForwardPassthrough, value: res}, nil
}

// Refine is Forward returning Forwarded.Value, which makes a Graph usable
// wherever a Queryable is expected, including as another graph's root.
func (g *Graph) Refine(op string, args ...any) (any, error) {
	f, err := g.Forward(op, args...)
	if err != nil {
		return nil, err
	}
	return f.Value(), nil
}

// RespondsTo reports whether op can be forwarded to the root. Roots that do
// not implement Responder are assumed not to support it.
func (g *Graph) RespondsTo(op string) bool {
	if r, ok := g.root.(Responder); ok {
		return r.RespondsTo(op)
	}
	return false
}

var (
	_ Queryable = (*Graph)(nil)
	_ Queryable = (*Curried)(nil)
	_ Queryable = (*Composite)(nil)
)
