package status

import (
	"fmt"
	"sync"

	"github.com/auto-proxy/docker-nginx-sync/internal/config"
	"github.com/auto-proxy/docker-nginx-sync/internal/topology"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Server exposes a read-only HTTP view of the sidecar: liveness and the last
// topology the engine built. It never touches the configuration or pid
// files, so the single-writer invariant on those is unaffected.
type Server struct {
	logger zerolog.Logger
	app    *fiber.App
	port   int

	mu   sync.RWMutex
	topo topology.Topology
}

func New(cfg *config.StatusConfig, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	s := &Server{
		logger: logger,
		app:    app,
		port:   cfg.Port,
	}
	app.Get("/healthz", s.handleHealthz)
	app.Get("/topology", s.handleTopology)
	return s
}

// Publish records the topology of the latest reconciliation cycle.
func (s *Server) Publish(topo topology.Topology) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topo = topo
}

func (s *Server) Listen() error {
	s.logger.Info().Int("port", s.port).Msg("Status endpoint listening")
	return s.app.Listen(fmt.Sprintf(":%d", s.port))
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleTopology(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.topo == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no topology built yet",
		})
	}
	return c.JSON(s.topo.Services())
}
