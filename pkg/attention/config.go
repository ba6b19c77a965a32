package attention

import (
	"log/slog"
	"time"
)

// Config holds pipeline timings.
type Config struct {
	// SetDebounce is how long the set of humans must stay unchanged before
	// trackers are rebuilt.
	SetDebounce time.Duration

	// DistanceInterval is how often each tracked person's distance is sampled.
	DistanceInterval time.Duration

	// QuietPeriod is how long a direction must hold before it is emitted.
	QuietPeriod time.Duration

	// Buffer is the capacity of each subscription's output channel.
	Buffer int

	Logger *slog.Logger
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Config)

// WithSetDebounce overrides the human-set debounce.
func WithSetDebounce(d time.Duration) Option {
	return func(c *Config) {
		c.SetDebounce = d
	}
}

// WithDistanceInterval overrides the distance sampling interval.
func WithDistanceInterval(d time.Duration) Option {
	return func(c *Config) {
		c.DistanceInterval = d
	}
}

// WithQuietPeriod overrides the direction quiet period.
func WithQuietPeriod(d time.Duration) Option {
	return func(c *Config) {
		c.QuietPeriod = d
	}
}

// WithBuffer sets the output channel capacity.
func WithBuffer(n int) Option {
	return func(c *Config) {
		c.Buffer = n
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		SetDebounce:      1 * time.Second,
		DistanceInterval: 1 * time.Second,
		QuietPeriod:      2 * time.Second,
		Buffer:           8,
		Logger:           slog.Default(),
	}
}
