// Package web serves the game dashboard: the current phase over HTTP and a
// websocket, stats, health and Prometheus metrics.
package web

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/lookgame/pkg/game"
	"github.com/teslashibe/lookgame/pkg/hub"
)

// Version is reported by /health.
var Version = "dev"

// PhaseEvent is what the dashboard receives for every phase change.
type PhaseEvent struct {
	game.View
	Seq  uint64    `json:"seq"`
	Time time.Time `json:"time"`
}

// Config holds server configuration.
type Config struct {
	Addr string

	// AccessLog receives one line per request when set.
	AccessLog io.Writer

	Logger *slog.Logger
}

// Option is a functional option for configuring a Server.
type Option func(*Config)

// WithAddr sets the listen address, e.g. ":8080".
func WithAddr(addr string) Option {
	return func(c *Config) {
		c.Addr = addr
	}
}

// WithAccessLog enables request logging to w.
func WithAccessLog(w io.Writer) Option {
	return func(c *Config) {
		c.AccessLog = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	phaseHub *hub.Hub

	mu      sync.RWMutex
	current PhaseEvent
	stats   map[string]func() any
	metrics []func() []Metric
}

// NewServer creates a new web dashboard server
func NewServer(opts ...Option) *Server {
	cfg := Config{
		Addr:   ":8080",
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "web.server"),
		phaseHub: hub.New("phase", cfg.Logger),
		current:  PhaseEvent{View: game.Describe(game.Idle{})},
		stats:    make(map[string]func() any),
	}

	app := fiber.New(fiber.Config{
		AppName:               "lookgame",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	if cfg.AccessLog != nil {
		app.Use(logger.New(logger.Config{Output: cfg.AccessLog}))
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	api := app.Group("/api")
	api.Get("/phase", s.handlePhase)
	api.Get("/stats", s.handleStats)

	s.registerWebsocket(app)

	s.app = app
	return s
}

// App exposes the fiber app so other components can mount routes.
func (s *Server) App() *fiber.App {
	return s.app
}

// AddStats adds a section to /api/stats.
func (s *Server) AddStats(name string, fn func() any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[name] = fn
}

// AddMetrics adds a source of /metrics samples.
func (s *Server) AddMetrics(fn func() []Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, fn)
}

// PublishPhase records p as the current phase and broadcasts it.
func (s *Server) PublishPhase(p game.Phase) {
	s.mu.Lock()
	s.current = PhaseEvent{
		View: game.Describe(p),
		Seq:  s.current.Seq + 1,
		Time: time.Now(),
	}
	ev := s.current
	s.mu.Unlock()

	if err := s.phaseHub.BroadcastJSON(ev); err != nil {
		s.logger.Error("broadcast phase", "error", err)
	}
}

// Follow publishes every phase of m until ctx is done.
func (s *Server) Follow(ctx context.Context, m *game.Machine) {
	sub := m.Subscribe()
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-sub.Changes():
			if !ok {
				return
			}
			s.PublishPhase(c.Phase)
		}
	}
}

// Current returns the last published phase.
func (s *Server) Current() PhaseEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.phaseHub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
