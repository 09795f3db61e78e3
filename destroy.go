package alder

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

func (r *registry) RegisterDisposable(name string, dispose func() error) {
	if name == "" || dispose == nil {
		return
	}
	name = r.Canonical(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.disposables[name]; !ok {
		r.disposeOrder = append(r.disposeOrder, name)
	}
	r.disposables[name] = dispose
}

func (r *registry) Destroy(name string) error {
	return r.destroySingleton(r.Canonical(name))
}

func (r *registry) DestroyAll() error {
	r.logger.Debug("destroying singletons")

	// Raising the flag under the creation lock waits out any in-flight
	// factory, so a creation that already passed the destroying check
	// cannot finish after the tiers are cleared and re-insert its object.
	r.creating.lock()
	r.mu.Lock()
	r.destroying = true
	order := slices.Clone(r.disposeOrder)
	r.mu.Unlock()
	r.creating.unlock()

	// Reverse registration order is the default basis; destroySingleton
	// pulls dependents forward as needed.
	var errs *multierror.Error
	for i := len(order) - 1; i >= 0; i-- {
		if err := r.destroySingleton(order[i]); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	r.depMu.Lock()
	clear(r.contained)
	clear(r.dependents)
	clear(r.dependencies)
	r.depMu.Unlock()

	r.mu.Lock()
	clear(r.finished)
	clear(r.early)
	clear(r.pending)
	clear(r.nameSet)
	r.names = nil
	r.disposeOrder = nil
	clear(r.disposables)
	r.destroying = false
	r.mu.Unlock()

	return errs.ErrorOrNil()
}

// destroySingleton removes name from every cache tier and runs its teardown.
// Safe to call for absent names; the second call is a no-op.
func (r *registry) destroySingleton(name string) error {
	r.mu.Lock()
	r.removeLocked(name)
	dispose, ok := r.disposables[name]
	if ok {
		delete(r.disposables, name)
		r.disposeOrder = slices.DeleteFunc(r.disposeOrder, func(n string) bool { return n == name })
	}
	r.mu.Unlock()

	return r.destroyObject(name, dispose)
}

// destroyObject tears down name: dependents first, then the teardown action,
// then contained names, then the edge scrubbing that keeps the graph from
// referencing a dead name. Teardown failures are logged and aggregated, never
// propagated mid-flight.
func (r *registry) destroyObject(name string, dispose func() error) error {
	var errs *multierror.Error

	// Detach the dependents set before recursing so a dependency cycle
	// terminates: each name is destroyed at most once.
	r.depMu.Lock()
	dependents := sortedKeys(r.dependents[name])
	delete(r.dependents, name)
	r.depMu.Unlock()

	if len(dependents) > 0 {
		r.logger.Debug("destroying dependents first",
			zap.String("name", name), zap.Strings("dependents", dependents))
	}
	for _, dependent := range dependents {
		if err := r.destroySingleton(dependent); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if dispose != nil {
		if err := dispose(); err != nil {
			r.logger.Warn("teardown failed",
				zap.String("name", name), zap.Error(err))
			errs = multierror.Append(errs, fmt.Errorf("destroying %q: %w", name, err))
		} else {
			r.logger.Debug("destroyed", zap.String("name", name))
		}
	}

	r.depMu.Lock()
	contained := sortedKeys(r.contained[name])
	delete(r.contained, name)
	r.depMu.Unlock()

	for _, inner := range contained {
		if err := r.destroySingleton(inner); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	r.depMu.Lock()
	for n, set := range r.dependents {
		delete(set, name)
		if len(set) == 0 {
			delete(r.dependents, n)
		}
	}
	delete(r.dependencies, name)
	r.depMu.Unlock()

	return errs.ErrorOrNil()
}
