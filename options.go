package alder

import "go.uber.org/zap"

// config holds the tunables applied by [New].
type config struct {
	logger        *zap.Logger
	allowOverride bool
	checkExcluded []string
	suppressedCap int
}

// Option configures a [Registry] during construction.
type Option func(*config)

// WithLogger sets the structured logger the registry emits creation,
// alias and teardown events to. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithAliasOverriding controls whether re-registering an alias for a
// different target silently overwrites the old edge (true, the default) or
// fails with [ErrConflictingAlias] (false).
func WithAliasOverriding(allow bool) Option {
	return func(c *config) {
		c.allowOverride = allow
	}
}

// WithoutCreationCheck exempts the given names from reentrant-creation
// detection. Use it for names whose lifecycle is managed outside the
// registry and whose construction cannot recurse.
func WithoutCreationCheck(names ...string) Option {
	return func(c *config) {
		c.checkExcluded = append(c.checkExcluded, names...)
	}
}

// WithSuppressedLimit caps how many sibling failures a single
// [CreationError] accumulates. The default is 100.
func WithSuppressedLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.suppressedCap = n
		}
	}
}
