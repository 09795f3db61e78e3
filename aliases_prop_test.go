package alder

import (
	"errors"
	"testing"

	"pgregory.net/rapid"
)

// Random alias registrations can never corrupt the edge set: chains always
// terminate, a failed call changes nothing, and canonicalization is a fixed
// point.
func TestRegisterAlias_Invariants(t *testing.T) {
	universe := []string{"a", "b", "c", "d", "e", "f"}

	rapid.Check(t, func(rt *rapid.T) {
		r := New()

		snapshot := func() map[string]string {
			canon := make(map[string]string, len(universe))
			for _, n := range universe {
				canon[n] = r.Canonical(n)
			}
			return canon
		}

		ops := rapid.IntRange(1, 30).Draw(rt, "ops")
		for i := 0; i < ops; i++ {
			name := rapid.SampledFrom(universe).Draw(rt, "name")
			alias := rapid.SampledFrom(universe).Draw(rt, "alias")

			before := snapshot()
			err := r.RegisterAlias(name, alias)
			if err != nil {
				if !errors.Is(err, ErrCircularAlias) {
					rt.Fatalf("unexpected error class: %v", err)
				}
				after := snapshot()
				for n, c := range before {
					if after[n] != c {
						rt.Fatalf("failed call changed canonical of %q: %q -> %q", n, c, after[n])
					}
				}
			}

			for _, n := range universe {
				c := r.Canonical(n)
				if r.IsAlias(c) {
					rt.Fatalf("canonical %q of %q still has an outgoing edge", c, n)
				}
				if r.Canonical(c) != c {
					rt.Fatalf("canonicalization of %q is not a fixed point", n)
				}
			}
		}
	})
}
