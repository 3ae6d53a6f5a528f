// Package relation composes relations into lazily evaluated graphs.
//
// A [Graph] pairs one root relation with an ordered list of child relations.
// Building a graph does no I/O; calling it materializes the root first and
// then every child against the root's result, producing a nested [Loaded]:
//
//	[rootRows, [childRows...]]
//
// # Core Types
//
//   - [Relation]: anything that can be called to produce a [Loaded] result
//   - [Queryable]: a relation that also supports named refinements ([Queryable.Refine])
//   - [Curried]: a refinement waiting for its remaining arguments
//   - [Composite]: a relation with post-load mappers attached ([Pipe])
//   - [Graph]: root + children, built with [Build] and extended with [Graph.Combine]
//   - [Loaded]: an immutable materialized result
//
// # Composition Rules
//
// Children must not be composite relations: a child that already carries a
// mapper pipeline has an ambiguous result shape once nested under a root.
// [Build] and [Graph.Combine] both reject them with an UNSUPPORTED_RELATION
// error. The root is exempt.
//
// # Materialization
//
// [Graph.Call] evaluates in two phases:
//
//  1. The root is called with the caller's arguments.
//  2. If the root produced rows, each child is called with the root's
//     [Loaded] result, which lets curried children such as
//     tasks.for_users restrict themselves by keys drawn from the root.
//     If the root is empty no child is called at all; each child result is
//     an empty [Loaded] sourced from that child.
//
// Children run sequentially unless [WithConcurrency] is set. Results always
// keep the order in which children were added. Any error aborts the whole
// call and is returned unchanged.
//
// # Forwarding
//
// A graph re-exposes its root's query-building API through [Graph.Forward].
// When the root returns another relation the response is wrapped in a new
// graph with the same children; other values (mapper lists, plain data)
// pass through. The rule is a [DecorationPolicy]; graphs default to
// [GraphPolicy], which also wraps curried responses.
//
//	g, _ := relation.Build(users, []relation.Relation{tasksForUsers})
//	fwd, _ := g.Forward("by_name", "Jane")
//	jane, _ := fwd.Graph()
//	loaded, _ := jane.Call(ctx)
//
// # Concurrency
//
// Graphs, curried and composite relations are immutable values and safe for
// concurrent use. Thread safety of Call is that of the underlying adapters.
package relation
