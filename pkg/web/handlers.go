package web

import (
	"maps"
	"slices"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/lookgame/pkg/hub"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"phase":   s.Current().Name,
	})
}

func (s *Server) handlePhase(c *fiber.Ctx) error {
	return c.JSON(s.Current())
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	s.mu.RLock()
	fns := maps.Clone(s.stats)
	s.mu.RUnlock()

	out := fiber.Map{"dashboard_clients": s.phaseHub.ClientCount()}
	for _, name := range slices.Sorted(maps.Keys(fns)) {
		out[name] = fns[name]()
	}
	return c.JSON(out)
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	s.mu.RLock()
	sources := slices.Clone(s.metrics)
	s.mu.RUnlock()

	metrics := []Metric{
		{Name: "lookgame_dashboard_clients", Help: "Connected dashboard websockets", Type: Gauge, Value: float64(s.phaseHub.ClientCount())},
		{Name: "lookgame_dashboard_dropped", Help: "Dashboard messages or clients dropped for being slow", Type: Counter, Value: float64(s.phaseHub.Dropped())},
	}
	for _, fn := range sources {
		metrics = append(metrics, fn()...)
	}

	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.SendString(Render(metrics))
}

func (s *Server) registerWebsocket(app *fiber.App) {
	app.Use("/ws/phase", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/phase", websocket.New(func(conn *websocket.Conn) {
		client := hub.NewClient(s.phaseHub, conn)
		if client == nil {
			return
		}
		client.Run()
	}))
}
