// Package alder provides a concurrent, one-instance-per-name object
// registry with alias indirection and dependency-ordered teardown.
//
// A [Registry] caches at most one finished object per name, invokes a
// caller-supplied factory exactly once per successful creation, and can
// expose a partially constructed object to break circular construction
// dependencies.
//
// # Quick Start
//
//	r := alder.New()
//
//	db, err := r.GetOrCreate("db", func() (any, error) {
//		return openDatabase()
//	})
//
// Every later GetOrCreate or Get for "db" returns the same instance.
//
// # Aliases
//
// Names can be reached through chains of aliases. Registration rejects
// chains that would loop:
//
//	r.RegisterAlias("db", "database")
//	r.RegisterAlias("database", "primary")
//	r.Canonical("primary") // "db"
//
// # Breaking Construction Cycles
//
// When the object for "a" needs "b" and "b" needs "a" back, the factory for
// "a" registers a deferred factory before recursing:
//
//	r.GetOrCreate("a", func() (any, error) {
//		a := &A{}
//		r.AddFactory("a", func() (any, error) { return a, nil })
//		b, err := r.GetOrCreate("b", newB(r)) // newB fetches "a" early
//		...
//	})
//
// The nested request for "a" receives the early reference instead of
// re-entering the factory. The object handed out early must be behaviorally
// substitutable for the one that eventually finishes; see [Factory].
//
// # Teardown
//
// Dependency edges recorded with [Registry.RegisterDependency] and
// [Registry.RegisterContained] order destruction: a consumer is always torn
// down before the thing it consumes. [Registry.DestroyAll] runs teardown
// actions in reverse registration order, isolating per-name failures.
package alder
