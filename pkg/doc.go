// Package pkg provides the core libraries for relgraph.
//
// # Overview
//
// relgraph loads a root relation together with the relations attached to it
// and returns one nested result. The pkg directory is organized into these
// areas:
//
//  1. [relation] - Domain logic (graphs, curried and composite relations, results)
//  2. [adapter] - Gateways (memory datasets, SQL databases, MongoDB)
//  3. [config] - relgraph.toml and the relation registry built from it
//  4. [pipeline] - Orchestration (compose → call → encode, with caching)
//  5. [server] - HTTP API over the pipeline
//
// # Architecture
//
// The typical data flow through relgraph:
//
//	relgraph.toml
//	     ↓
//	[config] package (gateways + relations → registry)
//	     ↓
//	[pipeline] package (query → graph → loaded result)
//	     ↓
//	JSON / table / DOT / SVG output
//
// # Quick Start
//
// Build a graph over an in-memory dataset and call it:
//
//	ds := memory.New()
//	ds.Insert("users", relation.Row{"name": "Jane"})
//	ds.Insert("tasks", relation.Row{"user": "Jane", "title": "Do something"})
//	ds.Define("tasks", "for_users", 1, relation.JoinOn[*memory.Relation](map[string]string{"user": "name"}))
//
//	tasks, _ := ds.Relation("tasks").Refine("for_users")
//	g, _ := relation.Build(ds.Relation("users"), []relation.Relation{tasks.(relation.Relation)})
//	loaded, _ := g.Call(ctx)
//	// loaded.Data() == [[{name: Jane}], [[{user: Jane, title: Do something}]]]
//
// # Supporting Packages
//
// [cache] - Result caches: FileCache for the CLI, RedisCache for shared
// servers, NullCache when disabled.
//
// [transform] - Row mappers used as composite pipelines, including the
// combine mapper that nests child rows into their parents.
//
// [diagram] - DOT and SVG outlines of a composed query.
//
// [observability] - Hooks for server, cache and materialization events.
//
// [errors] - Coded errors shared by every package.
//
// [buildinfo] - Version information set at build time.
package pkg
