package api

import (
	"errors"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Server is the API server for the scholar system
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The collaborators are injected so the
// CLI can share one corpus manager between the server and the directory
// watcher.
func NewServer(config Config, logger *zap.Logger) (*Server, error) {
	switch {
	case config.Corpus == nil:
		return nil, errors.New("corpus service is required")
	case config.Router == nil:
		return nil, errors.New("router is required")
	case config.Sessions == nil:
		return nil, errors.New("session store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.BodyLimit,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Get("/corpus", s.handleCorpusStatus)
	v1.Post("/corpus", s.handleIngest)
	v1.Get("/search", s.handleSearchEndpoint)

	v1.Post("/chat", s.handleChat)
	v1.Get("/sessions", s.handleListSessions)
	v1.Post("/sessions", s.handleCreateSession)
	v1.Delete("/sessions", s.handleClearSessions)
	v1.Get("/sessions/:id", s.handleGetSession)
	v1.Put("/sessions/:id/title", s.handleRenameSession)

	v1.Post("/exam", s.handleExam)
	v1.Post("/pyq", s.handleSolve)
	v1.Post("/transcript", s.handleTranscript)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}
