package alder

import (
	"errors"
	"fmt"
	"maps"
	"sort"

	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Alias registration
// ---------------------------------------------------------------------------

func (r *registry) RegisterAlias(name, alias string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if alias == "" {
		return fmt.Errorf("%w: empty alias", ErrInvalidName)
	}

	r.aliasMu.Lock()
	defer r.aliasMu.Unlock()

	if alias == name {
		delete(r.aliases, alias)
		r.logger.Debug("alias ignored, points to same name", zap.String("alias", alias))
		return nil
	}

	if existing, ok := r.aliases[alias]; ok {
		if existing == name {
			// already registered for this target
			return nil
		}
		if !r.allowOverride {
			return fmt.Errorf("%w: cannot define alias %q for %q: already registered for %q",
				ErrConflictingAlias, alias, name, existing)
		}
		r.logger.Debug("overriding alias",
			zap.String("alias", alias),
			zap.String("old", existing),
			zap.String("new", name))
	}

	// Adding alias -> name must not close a loop through existing edges.
	if r.hasAliasLocked(alias, name) {
		return fmt.Errorf("%w: %q is a direct or indirect alias for %q already",
			ErrCircularAlias, name, alias)
	}

	r.aliases[alias] = name
	r.logger.Debug("alias registered", zap.String("alias", alias), zap.String("name", name))
	return nil
}

func (r *registry) RemoveAlias(alias string) error {
	r.aliasMu.Lock()
	defer r.aliasMu.Unlock()

	if _, ok := r.aliases[alias]; !ok {
		return fmt.Errorf("%w: alias %q", ErrNotFound, alias)
	}
	delete(r.aliases, alias)
	return nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func (r *registry) IsAlias(name string) bool {
	r.aliasMu.RLock()
	defer r.aliasMu.RUnlock()

	_, ok := r.aliases[name]
	return ok
}

func (r *registry) HasAlias(name, alias string) bool {
	r.aliasMu.RLock()
	defer r.aliasMu.RUnlock()

	return r.hasAliasLocked(name, alias)
}

// hasAliasLocked reports whether the chain starting at alias resolves to
// name. The iteration cap keeps a corrupted edge map from hanging the
// process; registration-time cycle rejection makes it unreachable normally.
func (r *registry) hasAliasLocked(name, alias string) bool {
	cur := alias
	for i := 0; i <= len(r.aliases); i++ {
		target, ok := r.aliases[cur]
		if !ok {
			return false
		}
		if target == name {
			return true
		}
		cur = target
	}
	return false
}

func (r *registry) Aliases(name string) []string {
	r.aliasMu.RLock()
	defer r.aliasMu.RUnlock()

	// Every transitive predecessor of name in the edge forest, collected
	// with an explicit work stack.
	var result []string
	seen := map[string]struct{}{name: {}}
	stack := []string{name}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for alias, target := range r.aliases {
			if target != n {
				continue
			}
			if _, ok := seen[alias]; ok {
				continue
			}
			seen[alias] = struct{}{}
			result = append(result, alias)
			stack = append(stack, alias)
		}
	}
	sort.Strings(result)
	return result
}

func (r *registry) Canonical(name string) string {
	r.aliasMu.RLock()
	defer r.aliasMu.RUnlock()

	return r.canonicalLocked(name)
}

func (r *registry) canonicalLocked(name string) string {
	canonical := name
	for i := 0; i <= len(r.aliases); i++ {
		target, ok := r.aliases[canonical]
		if !ok {
			return canonical
		}
		canonical = target
	}
	return canonical
}

// ---------------------------------------------------------------------------
// Bulk rewrite
// ---------------------------------------------------------------------------

func (r *registry) RewriteAliases(resolve func(string) string) error {
	if resolve == nil {
		return errors.New("resolver must not be nil")
	}

	r.aliasMu.Lock()
	defer r.aliasMu.Unlock()

	snapshot := maps.Clone(r.aliases)
	for alias, target := range snapshot {
		newAlias := resolve(alias)
		newTarget := resolve(target)

		if newAlias == "" || newTarget == "" || newAlias == newTarget {
			delete(r.aliases, alias)
			continue
		}

		switch {
		case newAlias != alias:
			if existing, ok := r.aliases[newAlias]; ok {
				if existing == newTarget {
					// points at an existing equivalent edge, drop the old one
					delete(r.aliases, alias)
					continue
				}
				return fmt.Errorf("%w: cannot rewrite alias %q as %q for %q: already registered for %q",
					ErrConflictingAlias, alias, newAlias, newTarget, existing)
			}
			if r.hasAliasLocked(newAlias, newTarget) {
				return fmt.Errorf("%w: rewriting alias %q as %q for %q would close a loop",
					ErrCircularAlias, alias, newAlias, newTarget)
			}
			delete(r.aliases, alias)
			r.aliases[newAlias] = newTarget
		case newTarget != target:
			r.aliases[alias] = newTarget
		}
	}
	return nil
}
