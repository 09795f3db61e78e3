package alder

import (
	"testing"

	"go.uber.org/zap/zaptest"
)

// newTestRegistry builds a registry whose logs are routed through the test
// runner, so -v shows the creation and teardown trail.
func newTestRegistry(t *testing.T, opts ...Option) Registry {
	t.Helper()
	return New(append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
}

type testService struct {
	Name string
}

func newTestService(name string) Factory {
	return func() (any, error) {
		return &testService{Name: name}, nil
	}
}

// testDisposer records teardown order into a shared slice.
type testDisposer struct {
	order *[]string
	name  string
}

func (d *testDisposer) dispose() error {
	*d.order = append(*d.order, d.name)
	return nil
}

// registerDisposed registers a finished object together with a teardown
// action that appends name to order.
func registerDisposed(t *testing.T, r Registry, name string, order *[]string) {
	t.Helper()
	if err := r.Register(name, &testService{Name: name}); err != nil {
		t.Fatalf("registering %q: %v", name, err)
	}
	d := &testDisposer{order: order, name: name}
	r.RegisterDisposable(name, d.dispose)
}

// Circular construction fixtures: an A holds a B, the B holds the A back.
type cycleA struct {
	B *cycleB
}

type cycleB struct {
	A *cycleA
}
