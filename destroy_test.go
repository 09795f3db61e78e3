package alder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDestroy(t *testing.T) {
	t.Run("runs teardown and removes the name", func(t *testing.T) {
		r := newTestRegistry(t)
		var order []string
		registerDisposed(t, r, "x", &order)

		require.NoError(t, r.Destroy("x"))

		require.Equal(t, []string{"x"}, order)
		require.False(t, r.Contains("x"))
	})

	t.Run("second call is a no-op", func(t *testing.T) {
		r := newTestRegistry(t)
		var order []string
		registerDisposed(t, r, "x", &order)

		require.NoError(t, r.Destroy("x"))
		require.NoError(t, r.Destroy("x"))

		require.Equal(t, []string{"x"}, order)
	})

	t.Run("absent name is a no-op", func(t *testing.T) {
		r := newTestRegistry(t)
		require.NoError(t, r.Destroy("ghost"))
	})

	t.Run("destroys dependents first", func(t *testing.T) {
		r := newTestRegistry(t)
		var order []string
		registerDisposed(t, r, "db", &order)
		registerDisposed(t, r, "app", &order)
		r.RegisterDependency("app", "db")

		require.NoError(t, r.Destroy("db"))

		require.Equal(t, []string{"app", "db"}, order)
		require.False(t, r.Contains("app"))
	})

	t.Run("resolves through alias", func(t *testing.T) {
		r := newTestRegistry(t)
		var order []string
		registerDisposed(t, r, "db", &order)
		require.NoError(t, r.RegisterAlias("db", "database"))

		require.NoError(t, r.Destroy("database"))
		require.Equal(t, []string{"db"}, order)
	})

	t.Run("scrubs the destroyed name from remaining edges", func(t *testing.T) {
		r := newTestRegistry(t)
		r.RegisterDependency("app", "db")
		r.RegisterDependency("app", "cache")

		require.NoError(t, r.Destroy("app"))

		require.Empty(t, r.Dependents("db"))
		require.Empty(t, r.Dependents("cache"))
		require.Empty(t, r.DependenciesOf("app"))
	})

	t.Run("teardown failure is aggregated, not fatal", func(t *testing.T) {
		r := newTestRegistry(t)
		var order []string
		require.NoError(t, r.Register("bad", &testService{}))
		r.RegisterDisposable("bad", func() error {
			order = append(order, "bad")
			return errors.New("teardown boom")
		})
		registerDisposed(t, r, "good", &order)
		r.RegisterDependency("bad", "good")

		err := r.Destroy("good")
		require.Error(t, err)
		require.Contains(t, err.Error(), "teardown boom")

		// the failing teardown did not stop the rest
		require.Equal(t, []string{"bad", "good"}, order)
		require.False(t, r.Contains("bad"))
		require.False(t, r.Contains("good"))
	})

	t.Run("destroys contained names after the outer object", func(t *testing.T) {
		r := newTestRegistry(t)
		var order []string
		registerDisposed(t, r, "inner", &order)
		registerDisposed(t, r, "outer", &order)
		r.RegisterContained("inner", "outer")

		require.NoError(t, r.Destroy("inner"))

		require.Equal(t, []string{"outer", "inner"}, order)
	})
}

func TestDestroyAll(t *testing.T) {
	t.Run("reverse registration order", func(t *testing.T) {
		r := newTestRegistry(t)
		var order []string
		registerDisposed(t, r, "first", &order)
		registerDisposed(t, r, "second", &order)
		registerDisposed(t, r, "third", &order)

		require.NoError(t, r.DestroyAll())

		require.Equal(t, []string{"third", "second", "first"}, order)
	})

	t.Run("dependents before their dependencies", func(t *testing.T) {
		r := newTestRegistry(t)
		var order []string
		registerDisposed(t, r, "a", &order)
		registerDisposed(t, r, "b", &order)
		r.RegisterDependency("a", "b")

		require.NoError(t, r.DestroyAll())

		require.Equal(t, []string{"a", "b"}, order)
	})

	t.Run("clears the registry", func(t *testing.T) {
		r := newTestRegistry(t)
		var order []string
		registerDisposed(t, r, "x", &order)
		require.NoError(t, r.RegisterAlias("x", "alias-x"))
		r.RegisterDependency("x", "y")

		require.NoError(t, r.DestroyAll())

		require.Equal(t, 0, r.Count())
		require.Empty(t, r.Names())
		require.False(t, r.Contains("x"))
		require.Empty(t, r.Dependents("y"))
	})

	t.Run("creation rejected mid-destruction", func(t *testing.T) {
		r := newTestRegistry(t)
		require.NoError(t, r.Register("x", &testService{}))

		var creationErr error
		r.RegisterDisposable("x", func() error {
			_, creationErr = r.GetOrCreate("y", newTestService("y"))
			return nil
		})

		require.NoError(t, r.DestroyAll())
		require.ErrorIs(t, creationErr, ErrDestructionInProgress)
	})

	t.Run("waits out an in-flight creation", func(t *testing.T) {
		r := newTestRegistry(t)

		started := make(chan struct{})
		release := make(chan struct{})
		creationDone := make(chan error, 1)
		go func() {
			_, err := r.GetOrCreate("x", func() (any, error) {
				close(started)
				<-release
				return &testService{Name: "x"}, nil
			})
			creationDone <- err
		}()

		<-started
		go func() {
			time.Sleep(20 * time.Millisecond)
			close(release)
		}()

		// The factory is still running; DestroyAll must not return with
		// its object left behind in the cache.
		require.NoError(t, r.DestroyAll())
		require.NoError(t, <-creationDone)
		require.False(t, r.Contains("x"))
		require.Equal(t, 0, r.Count())
	})

	t.Run("registry usable again afterwards", func(t *testing.T) {
		r := newTestRegistry(t)
		var order []string
		registerDisposed(t, r, "x", &order)
		require.NoError(t, r.DestroyAll())

		got, err := r.GetOrCreate("x", newTestService("fresh"))
		require.NoError(t, err)
		require.Equal(t, "fresh", got.(*testService).Name)
	})

	t.Run("aggregates every teardown failure", func(t *testing.T) {
		r := newTestRegistry(t)
		for _, name := range []string{"one", "two"} {
			name := name
			require.NoError(t, r.Register(name, &testService{}))
			r.RegisterDisposable(name, func() error { return errors.New(name + " failed") })
		}
		require.NoError(t, r.Register("fine", &testService{}))
		fineDown := false
		r.RegisterDisposable("fine", func() error { fineDown = true; return nil })

		err := r.DestroyAll()
		require.Error(t, err)
		require.Contains(t, err.Error(), "one failed")
		require.Contains(t, err.Error(), "two failed")
		require.True(t, fineDown)
		require.Equal(t, 0, r.Count())
	})
}

func TestRegisterDisposable(t *testing.T) {
	t.Run("replacement keeps original order", func(t *testing.T) {
		r := newTestRegistry(t)
		var order []string
		registerDisposed(t, r, "a", &order)
		registerDisposed(t, r, "b", &order)

		// re-register a's teardown; its slot must not move
		r.RegisterDisposable("a", func() error {
			order = append(order, "a-replaced")
			return nil
		})

		require.NoError(t, r.DestroyAll())
		require.Equal(t, []string{"b", "a-replaced"}, order)
	})

	t.Run("nil dispose ignored", func(t *testing.T) {
		r := newTestRegistry(t)
		r.RegisterDisposable("x", nil)
		require.NoError(t, r.DestroyAll())
	})
}
