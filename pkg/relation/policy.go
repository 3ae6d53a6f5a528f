package relation

// DecorationPolicy decides whether a response forwarded from a graph's root
// is wrapped in a new graph.
//
// Custom policies can be written as a [PolicyFunc] or built from the
// defaults with [Extend].
type DecorationPolicy interface {
	Decorate(response any) bool
}

// PolicyFunc adapts a function to DecorationPolicy.
type PolicyFunc func(response any) bool

// Decorate calls f.
func (f PolicyFunc) Decorate(response any) bool { return f(response) }

// KindPolicy decorates Queryable responses of the given kinds.
func KindPolicy(kinds ...Kind) DecorationPolicy {
	set := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return PolicyFunc(func(response any) bool {
		q, ok := response.(Queryable)
		return ok && set[q.Kind()]
	})
}

// Extend returns a policy that decorates everything base does plus
// Queryable responses of the extra kinds.
func Extend(base DecorationPolicy, kinds ...Kind) DecorationPolicy {
	extra := KindPolicy(kinds...)
	return PolicyFunc(func(response any) bool {
		return base.Decorate(response) || extra.Decorate(response)
	})
}

var (
	// DefaultPolicy decorates plain relations and graphs.
	DefaultPolicy = KindPolicy(KindPlain, KindGraph)

	// GraphPolicy is the graph default: DefaultPolicy plus curried relations,
	// so a root method referenced without its arguments keeps the graph.
	GraphPolicy = Extend(DefaultPolicy, KindCurried)
)

// ForwardKind classifies a forwarded response.
type ForwardKind int

const (
	// ForwardPassthrough returns the response unchanged.
	ForwardPassthrough ForwardKind = iota
	// ForwardWrap wraps the response in a new graph as its root.
	ForwardWrap
)

// String returns "passthrough" or "wrap".
func (k ForwardKind) String() string {
	if k == ForwardWrap {
		return "wrap"
	}
	return "passthrough"
}

// Classify applies policy to response. Only Queryable responses can become
// a graph root, so anything else is always passed through.
func Classify(policy DecorationPolicy, response any) ForwardKind {
	if _, ok := response.(Queryable); !ok {
		return ForwardPassthrough
	}
	if policy.Decorate(response) {
		return ForwardWrap
	}
	return ForwardPassthrough
}

// Forwarded is the result of forwarding an operation to a graph's root:
// either a new graph (wrap) or the root's response (passthrough).
type Forwarded struct {
	kind  ForwardKind
	graph *Graph
	value any
}

// Kind returns how the response was classified.
func (f Forwarded) Kind() ForwardKind { return f.kind }

// Graph returns the wrapping graph for ForwardWrap results.
func (f Forwarded) Graph() (*Graph, bool) {
	return f.graph, f.kind == ForwardWrap
}

// Value returns the graph for ForwardWrap results and the raw response
// otherwise.
func (f Forwarded) Value() any {
	if f.kind == ForwardWrap {
		return f.graph
	}
	return f.value
}
