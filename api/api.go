package api

import (
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/answer"
	"github.com/webtechie/docschat/pkg/index"
)

// Server is the API server for the docschat system.
type Server struct {
	config     Config
	controller *answer.Controller
	index      *index.Index
	logger     *zap.Logger
	app        *fiber.App
}

// NewServer creates a new API server. The controller and index are injected
// so they can be shared with the CLI and MCP surfaces. The optional
// mcpHandler, when non-nil, is mounted at /mcp.
func NewServer(config Config, controller *answer.Controller, ix *index.Index, mcpHandler http.Handler, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:     config,
		controller: controller,
		index:      ix,
		logger:     logger,
		app:        app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/v1/ask", s.handleAsk)
	app.Get("/v1/actions", s.handleListActions)
	app.Get("/v1/actions/:id", s.handleGetAction)
	app.Get("/v1/search", s.handleSearchEndpoint)

	if mcpHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(mcpHandler))
	}

	return s
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
