package web

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/goodtune/daygauge/internal/identity"
	"github.com/goodtune/daygauge/internal/storage"
	"github.com/goodtune/daygauge/internal/submit"
	ui "github.com/goodtune/daygauge/web"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Config holds the web server configuration.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
}

// Server serves the gauge page, the start-time API and the live display
// websocket.
type Server struct {
	config    Config
	starts    storage.StartStore
	submitter *submit.Submitter
	auth      *identity.Authority
	clock     clockwork.Clock
	loc       *time.Location
	app       *fiber.App
	listener  net.Listener // Optional pre-created listener (for systemd socket activation)
	logger    zerolog.Logger
}

// NewServer creates a new web server.
func NewServer(cfg Config, starts storage.StartStore, submitter *submit.Submitter, auth *identity.Authority, clock clockwork.Clock, loc *time.Location, logger zerolog.Logger) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}

	s := &Server{
		config:    cfg,
		starts:    starts,
		submitter: submitter,
		auth:      auth,
		clock:     clock,
		loc:       loc,
		logger:    logger.With().Str("component", "web").Logger(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "daygauge",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
		ErrorHandler:          s.handleError,
	})

	s.setupRoutes()

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.app.Use(LoggingMiddleware(s.logger))

	if len(s.config.AllowedOrigins) > 0 {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(s.config.AllowedOrigins, ","),
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			AllowMethods: "GET, POST, OPTIONS",
		}))
	}

	s.app.Get("/health", s.handleHealth)

	api := s.app.Group("/api", AuthMiddleware(s.auth))
	api.Post("/starts", s.handleSubmitStart)
	api.Get("/starts/latest", s.handleLatestStart)

	s.app.Use("/ws", WebSocketUpgrade(s.auth))
	s.app.Get("/ws", websocket.New(s.handleSocket, websocket.Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Origins:         s.origins(),
	}))

	// Registered last: serves the page for every other path
	ui.SetupUIRoutes(s.app)
}

func (s *Server) origins() []string {
	if len(s.config.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.config.AllowedOrigins
}

// App exposes the fiber application for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the web server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting web server")

	ln := s.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", s.config.ListenAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.config.ListenAddr, err)
		}
	} else {
		s.logger.Debug().Msg("Using systemd socket-activated web listener")
	}

	go func() {
		if err := s.app.Listener(ln); err != nil {
			s.logger.Error().Err(err).Msg("Web server error")
		}
	}()

	return nil
}

// Stop gracefully stops the web server. Open websockets are closed, which
// ends their display sessions.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping web server")

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	return nil
}
