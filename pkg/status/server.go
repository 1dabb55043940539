// Package status serves the health and the merged configuration of the agent.
package status

import (
	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/propertysource"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Source is the part of a propertysource.State the server reads.
type Source interface {
	Name() string
	CurrentSnapshot() *propertysource.Snapshot
	ErrorCounter() int
}

// Properties provides the merged configuration.
type Properties interface {
	All() map[string]string
}

type Health struct {
	Status   string `json:"status"`
	Source   string `json:"source"`
	Failures int    `json:"failures"`
	Snapshot string `json:"snapshot"`
	Checksum string `json:"checksum,omitempty"`
	Keys     int    `json:"keys"`
}

type Server struct {
	app    *fiber.App
	source Source
	props  Properties
	logger zerolog.Logger
}

func NewServer(source Source, props Properties, log zerolog.Logger) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			AppName:               "remoteconf",
		}),
		source: source,
		props:  props,
		logger: log,
	}
	s.app.Get("/health", s.health)
	s.app.Get("/config", s.config)
	return s
}

// App exposes the fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("Starting status server")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) health(c *fiber.Ctx) error {
	snap := s.source.CurrentSnapshot()
	h := Health{
		Status:   "ok",
		Source:   s.source.Name(),
		Failures: s.source.ErrorCounter(),
		Snapshot: snap.ID().String(),
		Checksum: snap.Checksum(),
		Keys:     snap.Len(),
	}
	if h.Failures > 0 {
		h.Status = "degraded"
	}
	return c.JSON(h)
}

func (s *Server) config(c *fiber.Ctx) error {
	return c.JSON(s.props.All())
}
