package faultnet

import (
	"go.uber.org/zap"
)

// Default duplication bounds: the network "retries" every delivery one to
// three times.
const (
	DefaultMinCopies = 1
	DefaultMaxCopies = 3
)

// Config holds the configuration for a Network.
type Config[M any] struct {
	// MinCopies is the fewest copies of a message enqueued per recipient.
	MinCopies int

	// MaxCopies is the most copies of a message enqueued per recipient.
	MaxCopies int

	// Clone copies a message before each enqueue. If nil, plain assignment
	// is used, which is enough for payloads without shared mutable state.
	Clone func(M) M

	// Logger for structured logging.
	Logger *zap.Logger
}

// Option is a functional option for configuring a Network.
type Option[M any] func(*Config[M]) error

// NewConfig creates a Config with the given options applied over the
// defaults.
func NewConfig[M any](opts ...Option[M]) (*Config[M], error) {
	cfg := &Config[M]{
		MinCopies: DefaultMinCopies,
		MaxCopies: DefaultMaxCopies,
		Logger:    zap.NewNop(), // Default: no-op logger
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config[M]) validate() error {
	if c.MinCopies < 1 {
		return wrapConfigf("min copies must be >= 1, got %d", c.MinCopies)
	}

	if c.MaxCopies < c.MinCopies {
		return wrapConfigf("max copies (%d) must be >= min copies (%d)", c.MaxCopies, c.MinCopies)
	}

	if c.Logger == nil {
		return wrapConfig("logger is required")
	}

	return nil
}

// WithCopies sets the inclusive bounds on how many copies of each message a
// recipient gets per broadcast.
func WithCopies[M any](minCopies, maxCopies int) Option[M] {
	return func(c *Config[M]) error {
		c.MinCopies = minCopies
		c.MaxCopies = maxCopies
		return nil
	}
}

// WithCloner sets the function used to copy a message for each enqueued
// envelope.
func WithCloner[M any](clone func(M) M) Option[M] {
	return func(c *Config[M]) error {
		if clone == nil {
			return wrapConfig("cloner cannot be nil")
		}
		c.Clone = clone
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger[M any](logger *zap.Logger) Option[M] {
	return func(c *Config[M]) error {
		if logger == nil {
			return wrapConfig("logger cannot be nil")
		}
		c.Logger = logger
		return nil
	}
}
