package sim

import (
	"log/slog"
	"time"
)

// Config holds simulator settings.
type Config struct {
	// URL is the server's robot endpoint, e.g. ws://localhost:8080/ws/robot/sim.
	URL string

	// Humans is how many people stand in front of the robot. The first one
	// is the player and stands closest.
	Humans int

	// Distance is how far the player stands, in meters.
	Distance float64

	// Accuracy is the chance the player looks the right way.
	Accuracy float64

	// Reaction is how long the player takes to look after a prompt.
	Reaction time.Duration

	// SpeechPace scales how long the simulated speaker takes per line.
	// Zero acknowledges speech immediately.
	SpeechPace float64

	// Rounds ends the session after that many correct looks. Zero plays
	// until the context is canceled.
	Rounds int

	PingInterval time.Duration

	Seed uint64

	Logger *slog.Logger
}

// Option configures the simulator.
type Option func(*Config)

// WithURL sets the robot endpoint.
func WithURL(url string) Option {
	return func(c *Config) {
		c.URL = url
	}
}

// WithHumans sets the number of people in view.
func WithHumans(n int) Option {
	return func(c *Config) {
		c.Humans = n
	}
}

// WithDistance sets the player's distance in meters.
func WithDistance(m float64) Option {
	return func(c *Config) {
		c.Distance = m
	}
}

// WithAccuracy sets the chance of a correct look, clamped to [0, 1].
func WithAccuracy(p float64) Option {
	return func(c *Config) {
		c.Accuracy = min(max(p, 0), 1)
	}
}

// WithReaction sets the player's reaction time.
func WithReaction(d time.Duration) Option {
	return func(c *Config) {
		c.Reaction = d
	}
}

// WithSpeechPace scales simulated speech time.
func WithSpeechPace(pace float64) Option {
	return func(c *Config) {
		c.SpeechPace = pace
	}
}

// WithRounds ends the session after n correct looks.
func WithRounds(n int) Option {
	return func(c *Config) {
		c.Rounds = n
	}
}

// WithPingInterval sets how often latency is measured. Zero disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(c *Config) {
		c.PingInterval = d
	}
}

// WithSeed makes the player's choices reproducible.
func WithSeed(seed uint64) Option {
	return func(c *Config) {
		c.Seed = seed
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns a single attentive player at arm's length.
func DefaultConfig() Config {
	return Config{
		URL:          "ws://localhost:8080/ws/robot/sim",
		Humans:       1,
		Distance:     0.8,
		Accuracy:     0.8,
		Reaction:     500 * time.Millisecond,
		SpeechPace:   1,
		PingInterval: 5 * time.Second,
		Seed:         uint64(time.Now().UnixNano()),
		Logger:       slog.Default(),
	}
}
