package alder

import (
	"sync"

	"go.uber.org/zap"
)

// Factory produces the object for a name. It is invoked exactly once per
// successful creation and at most once per failed attempt; retries are the
// caller's responsibility.
//
// A factory registered with [Registry.AddFactory] is the early-exposure
// hook: the object it returns may be handed to other objects before the
// owning construction completes, so it must be behaviorally substitutable
// for the object that eventually finishes. The registry cannot check this.
type Factory func() (any, error)

// Registry is a one-instance-per-name object registry with alias
// indirection, circular-construction breaking, and dependency-ordered
// teardown. Use [New] to create an instance. All methods are safe for
// concurrent use.
type Registry interface {
	// RegisterAlias records alias as another name for name. Registering an
	// alias for itself removes any existing edge instead. Re-registering an
	// alias for a different target overwrites the old edge, or fails with
	// [ErrConflictingAlias] when overriding is disabled via
	// [WithAliasOverriding]. An edge that would make an alias chain loop
	// back on itself fails with [ErrCircularAlias] and leaves the edge set
	// unchanged.
	RegisterAlias(name, alias string) error

	// RemoveAlias deletes the edge for alias, failing with [ErrNotFound]
	// if none exists.
	RemoveAlias(alias string) error

	// IsAlias reports whether name has an outgoing alias edge.
	IsAlias(name string) bool

	// HasAlias reports whether alias resolves to name through any chain of
	// edges.
	HasAlias(name, alias string) bool

	// Aliases returns every alias that transitively resolves to name,
	// sorted. The result never contains name itself.
	Aliases(name string) []string

	// Canonical follows alias edges from name until a name with no
	// outgoing edge is reached. Non-aliases are returned unchanged.
	Canonical(name string) string

	// RewriteAliases re-resolves every alias and target through the given
	// transform, for example to substitute placeholders. Edges whose alias
	// resolves to an empty string or to its own target are removed; edges
	// whose alias text changed are re-validated against the conflict and
	// cycle invariants.
	RewriteAliases(resolve func(string) string) error

	// Register inserts an externally constructed object directly into the
	// finished tier, skipping the factory protocol. It fails with
	// [ErrAlreadyRegistered] if name already holds a finished object.
	Register(name string, obj any) error

	// AddFactory records a deferred factory for name, enabling early
	// exposure of the object while name is still under construction. It
	// has no effect if name is already finished.
	AddFactory(name string, factory Factory) error

	// Get returns the finished object for name, or — while name is under
	// construction — its early reference, materializing one from the
	// deferred factory if needed. The second return is false when name is
	// absent.
	Get(name string) (any, bool)

	// GetOrCreate returns the finished object for name, invoking factory
	// to create it if absent. All creation in the registry is serialized;
	// concurrent callers for the same name block and then share the single
	// created instance. A factory re-entering creation for its own name
	// fails with [ErrCurrentlyInCreation]; factory failures are returned
	// as a [*CreationError] carrying suppressed sibling failures.
	GetOrCreate(name string, factory Factory) (any, error)

	// Contains reports whether name holds a finished object.
	Contains(name string) bool

	// Names returns all registered names in registration order.
	Names() []string

	// Count returns the number of registered names.
	Count() int

	// IsCurrentlyInCreation reports whether name's factory is executing on
	// some call path. Names excluded from creation checking always report
	// false.
	IsCurrentlyInCreation(name string) bool

	// SetCreationCheckExcluded toggles whether name is exempt from
	// reentrant-creation detection, as [WithoutCreationCheck] does at
	// construction time.
	SetCreationCheckExcluded(name string, excluded bool)

	// RecordSuppressed attaches err to the creation attempt currently in
	// flight, if any, so the eventual [*CreationError] reports it as a
	// related cause.
	RecordSuppressed(err error)

	// RegisterDependency records that dependent depends on dependsOn, so
	// dependent is destroyed first. dependsOn is canonicalized before
	// recording; re-adding an existing edge is a no-op.
	RegisterDependency(dependent, dependsOn string)

	// RegisterContained records that inner is contained within outer, and
	// additionally registers outer as dependent on inner so the contained
	// parts are destroyed only after the outer object.
	RegisterContained(inner, outer string)

	// IsDependent reports whether dependent transitively depends on name.
	IsDependent(name, dependent string) bool

	// Dependents returns the names directly depending on name, sorted.
	Dependents(name string) []string

	// DependenciesOf returns the names that name directly depends on,
	// sorted.
	DependenciesOf(name string) []string

	// HasDependents reports whether any name depends on name.
	HasDependents(name string) bool

	// RegisterDisposable records a teardown action to run when name is
	// destroyed. Re-registering replaces the action but keeps the original
	// position in the teardown order.
	RegisterDisposable(name string, dispose func() error)

	// Destroy removes name from the registry, destroying everything that
	// depends on it first and running its teardown action. Teardown
	// failures are logged and aggregated into the returned error; they
	// never abort the remaining teardowns. Destroying an absent name is a
	// no-op.
	Destroy(name string) error

	// DestroyAll tears down every registered object in reverse
	// registration order, dependents first, and clears the registry.
	// Creation attempted during DestroyAll fails with
	// [ErrDestructionInProgress]. Like Destroy, per-name teardown failures
	// are isolated and aggregated.
	DestroyAll() error
}

type registry struct {
	logger *zap.Logger

	// alias edges, alias -> target, guarded by aliasMu. Alias mutations
	// never interact with creation ordering, so this is a separate scope.
	aliasMu       sync.RWMutex
	aliases       map[string]string
	allowOverride bool

	// creating serializes all object creation and early-tier promotion.
	// mu guards the short map reads and writes below; it is never held
	// while a factory runs.
	creating creationLock
	mu       sync.RWMutex

	finished map[string]any     // terminal shareable instances
	early    map[string]any     // mid-construction references for cycle breaking
	pending  map[string]Factory // deferred factories not yet invoked

	names   []string // registration order
	nameSet map[string]struct{}

	inCreation    map[string]struct{}
	checkExcluded map[string]struct{}

	suppressed    []error
	collecting    bool
	suppressedCap int

	destroying   bool
	disposables  map[string]func() error
	disposeOrder []string

	// dependency edges for destruction ordering, guarded by depMu.
	depMu        sync.Mutex
	dependents   map[string]map[string]struct{} // name -> names depending on it
	dependencies map[string]map[string]struct{} // name -> names it depends on
	contained    map[string]map[string]struct{} // outer -> contained names
}

// New creates an empty [Registry].
func New(opts ...Option) Registry {
	cfg := config{
		logger:        zap.NewNop(),
		allowOverride: true,
		suppressedCap: 100,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &registry{
		logger:        cfg.logger,
		aliases:       make(map[string]string),
		allowOverride: cfg.allowOverride,
		finished:      make(map[string]any),
		early:         make(map[string]any),
		pending:       make(map[string]Factory),
		nameSet:       make(map[string]struct{}),
		inCreation:    make(map[string]struct{}),
		checkExcluded: make(map[string]struct{}),
		suppressedCap: cfg.suppressedCap,
		disposables:   make(map[string]func() error),
		dependents:    make(map[string]map[string]struct{}),
		dependencies:  make(map[string]map[string]struct{}),
		contained:     make(map[string]map[string]struct{}),
	}
	for _, name := range cfg.checkExcluded {
		r.checkExcluded[name] = struct{}{}
	}
	return r
}
