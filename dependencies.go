package alder

import "sort"

// The dependency and containment edges are used only for destruction
// ordering. Construction-time cycle safety is the creation guard's job;
// nothing here prevents a caller from configuring a dependency cycle.

func (r *registry) RegisterDependency(dependent, dependsOn string) {
	dependsOn = r.Canonical(dependsOn)

	r.depMu.Lock()
	defer r.depMu.Unlock()

	set, ok := r.dependents[dependsOn]
	if !ok {
		set = make(map[string]struct{})
		r.dependents[dependsOn] = set
	}
	if _, ok := set[dependent]; ok {
		return
	}
	set[dependent] = struct{}{}

	deps, ok := r.dependencies[dependent]
	if !ok {
		deps = make(map[string]struct{})
		r.dependencies[dependent] = deps
	}
	deps[dependsOn] = struct{}{}
}

func (r *registry) RegisterContained(inner, outer string) {
	r.depMu.Lock()
	set, ok := r.contained[outer]
	if !ok {
		set = make(map[string]struct{})
		r.contained[outer] = set
	}
	if _, ok := set[inner]; ok {
		r.depMu.Unlock()
		return
	}
	set[inner] = struct{}{}
	r.depMu.Unlock()

	// The outer object must go down before its contained parts.
	r.RegisterDependency(outer, inner)
}

func (r *registry) IsDependent(name, dependent string) bool {
	r.depMu.Lock()
	defer r.depMu.Unlock()

	// Iterative reachability over the dependents edges. Dependency cycles
	// are a caller-configuration error, but they must not hang the
	// process, hence the visited set.
	seen := make(map[string]struct{})
	stack := []string{name}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		canonical := r.Canonical(n)
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}

		set, ok := r.dependents[canonical]
		if !ok {
			continue
		}
		if _, ok := set[dependent]; ok {
			return true
		}
		for transitive := range set {
			stack = append(stack, transitive)
		}
	}
	return false
}

func (r *registry) Dependents(name string) []string {
	name = r.Canonical(name)

	r.depMu.Lock()
	defer r.depMu.Unlock()

	return sortedKeys(r.dependents[name])
}

func (r *registry) DependenciesOf(name string) []string {
	r.depMu.Lock()
	defer r.depMu.Unlock()

	return sortedKeys(r.dependencies[name])
}

func (r *registry) HasDependents(name string) bool {
	name = r.Canonical(name)

	r.depMu.Lock()
	defer r.depMu.Unlock()

	return len(r.dependents[name]) > 0
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
