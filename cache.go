package alder

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Finished-tier registration
// ---------------------------------------------------------------------------

func (r *registry) Register(name string, obj any) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if obj == nil {
		return errors.New("object must not be nil")
	}
	name = r.Canonical(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.finished[name]; ok {
		return fmt.Errorf("%w: cannot register object under %q, %T is already bound",
			ErrAlreadyRegistered, name, existing)
	}
	r.addFinishedLocked(name, obj)
	return nil
}

func (r *registry) AddFactory(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if factory == nil {
		return errors.New("factory must not be nil")
	}
	name = r.Canonical(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.finished[name]; ok {
		return nil
	}
	r.pending[name] = factory
	delete(r.early, name)
	r.addNameLocked(name)
	return nil
}

// addFinishedLocked promotes name to the finished tier. Callers hold r.mu.
func (r *registry) addFinishedLocked(name string, obj any) {
	r.finished[name] = obj
	delete(r.early, name)
	delete(r.pending, name)
	r.addNameLocked(name)
}

func (r *registry) addNameLocked(name string) {
	if _, ok := r.nameSet[name]; ok {
		return
	}
	r.nameSet[name] = struct{}{}
	r.names = append(r.names, name)
}

// removeLocked returns name to the absent state. Callers hold r.mu.
func (r *registry) removeLocked(name string) {
	delete(r.finished, name)
	delete(r.early, name)
	delete(r.pending, name)
	if _, ok := r.nameSet[name]; ok {
		delete(r.nameSet, name)
		r.names = slices.DeleteFunc(r.names, func(n string) bool { return n == name })
	}
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

func (r *registry) Get(name string) (any, bool) {
	return r.get(r.Canonical(name), true)
}

// get resolves name against the cache tiers. While name is in creation it
// consults the early tier and, when allowEarly is set, materializes an early
// reference from the pending factory. This is what lets a construction cycle
// observe a partially constructed instance instead of re-entering its
// factory.
func (r *registry) get(name string, allowEarly bool) (any, bool) {
	r.mu.RLock()
	if obj, ok := r.finished[name]; ok {
		r.mu.RUnlock()
		return obj, true
	}
	if _, creating := r.inCreation[name]; !creating {
		r.mu.RUnlock()
		return nil, false
	}
	if obj, ok := r.early[name]; ok {
		r.mu.RUnlock()
		return obj, true
	}
	r.mu.RUnlock()

	if !allowEarly {
		return nil, false
	}

	r.creating.lock()
	defer r.creating.unlock()

	r.mu.RLock()
	if obj, ok := r.finished[name]; ok {
		r.mu.RUnlock()
		return obj, true
	}
	// The creation we saw above may have ended while we waited for the
	// lock. A pending factory left behind by a failed creation must not
	// be materialized after the fact.
	if _, creating := r.inCreation[name]; !creating {
		r.mu.RUnlock()
		return nil, false
	}
	if obj, ok := r.early[name]; ok {
		r.mu.RUnlock()
		return obj, true
	}
	factory, ok := r.pending[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	obj, err := factory()
	if err != nil {
		r.logger.Error("early reference factory failed",
			zap.String("name", name), zap.Error(err))
		r.RecordSuppressed(fmt.Errorf("early reference for %q: %w", name, err))
		return nil, false
	}

	r.mu.Lock()
	r.early[name] = obj
	delete(r.pending, name)
	r.mu.Unlock()

	r.logger.Debug("exposed early reference", zap.String("name", name))
	return obj, true
}

func (r *registry) Contains(name string) bool {
	name = r.Canonical(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.finished[name]
	return ok
}

func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.names)
}

func (r *registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.names)
}

// ---------------------------------------------------------------------------
// Creation
// ---------------------------------------------------------------------------

func (r *registry) GetOrCreate(name string, factory Factory) (any, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if factory == nil {
		return nil, errors.New("factory must not be nil")
	}
	name = r.Canonical(name)

	// Fast path: already finished, or an early reference satisfying a
	// construction cycle.
	if obj, ok := r.get(name, true); ok {
		return obj, nil
	}

	r.creating.lock()
	defer r.creating.unlock()

	r.mu.Lock()
	if obj, ok := r.finished[name]; ok {
		// lost the race, another caller finished it first
		r.mu.Unlock()
		return obj, nil
	}
	if r.destroying {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot create %q", ErrDestructionInProgress, name)
	}
	if err := r.beforeCreationLocked(name); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	owns := !r.collecting
	if owns {
		r.collecting = true
		r.suppressed = nil
	}
	r.mu.Unlock()

	r.logger.Debug("creating shared instance", zap.String("name", name))

	obj, err := factory()
	if err != nil && errors.Is(err, ErrAlreadyRegistered) {
		// The object may have appeared in the finished tier in the
		// meantime, through a direct Register call inside the factory
		// pipeline. Prefer it over propagating.
		r.mu.RLock()
		existing, ok := r.finished[name]
		r.mu.RUnlock()
		if ok {
			obj, err = existing, nil
		}
	}

	if err != nil {
		cerr := &CreationError{Name: name, Cause: err}

		r.mu.Lock()
		if owns {
			for _, s := range r.suppressed {
				if errors.Is(err, s) {
					// already on the cause chain
					continue
				}
				cerr.Suppressed = append(cerr.Suppressed, s)
			}
			r.suppressed = nil
			r.collecting = false
		} else {
			r.recordSuppressedLocked(cerr)
		}
		r.afterCreationLocked(name)
		r.mu.Unlock()
		return nil, cerr
	}

	r.mu.Lock()
	if owns {
		r.suppressed = nil
		r.collecting = false
	}
	r.afterCreationLocked(name)
	r.addFinishedLocked(name, obj)
	r.mu.Unlock()
	return obj, nil
}

// beforeCreationLocked marks name as in creation. Callers hold r.mu.
func (r *registry) beforeCreationLocked(name string) error {
	if _, excluded := r.checkExcluded[name]; excluded {
		return nil
	}
	if _, ok := r.inCreation[name]; ok {
		return fmt.Errorf("%w: %q", ErrCurrentlyInCreation, name)
	}
	r.inCreation[name] = struct{}{}
	return nil
}

// afterCreationLocked unmarks name. A missing mark means nested creation
// calls corrupted the in-creation set, which is a bug, not a caller error.
func (r *registry) afterCreationLocked(name string) {
	if _, excluded := r.checkExcluded[name]; excluded {
		return
	}
	if _, ok := r.inCreation[name]; !ok {
		panic(fmt.Sprintf("alder: %q is not currently in creation", name))
	}
	delete(r.inCreation, name)
}

// ---------------------------------------------------------------------------
// Creation bookkeeping
// ---------------------------------------------------------------------------

func (r *registry) IsCurrentlyInCreation(name string) bool {
	name = r.Canonical(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, excluded := r.checkExcluded[name]; excluded {
		return false
	}
	_, ok := r.inCreation[name]
	return ok
}

func (r *registry) SetCreationCheckExcluded(name string, excluded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if excluded {
		r.checkExcluded[name] = struct{}{}
	} else {
		delete(r.checkExcluded, name)
	}
}

func (r *registry) RecordSuppressed(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recordSuppressedLocked(err)
}

func (r *registry) recordSuppressedLocked(err error) {
	if r.collecting && len(r.suppressed) < r.suppressedCap {
		r.suppressed = append(r.suppressed, err)
	}
}
