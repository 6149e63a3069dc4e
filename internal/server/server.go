package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sundayezeilo/storyboard/internal/auth"
	"github.com/sundayezeilo/storyboard/internal/config"
	"github.com/sundayezeilo/storyboard/internal/engagement"
	"github.com/sundayezeilo/storyboard/internal/httpx"
	"github.com/sundayezeilo/storyboard/internal/story"
)

// Handlers bundles the feature handlers the server routes to.
type Handlers struct {
	Auth       *auth.Handler
	Story      *story.Handler
	Engagement *engagement.Handler
	Tokens     *auth.TokenManager
}

// Server represents the HTTP server with all dependencies.
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	handlers Handlers
	server   *http.Server
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *slog.Logger, handlers Handlers) *Server {
	return &Server{
		config:   cfg,
		logger:   logger,
		handlers: handlers,
	}
}

// Handler returns the fully assembled route stack, middleware included.
// Exposed so tests can mount the server on an httptest listener.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	// Listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.ListenAndServe()
	}()

	// Listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())

		// Create context with timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		// Attempt graceful shutdown
		if err := s.server.Shutdown(ctx); err != nil {
			// Force close if graceful shutdown fails
			if closeErr := s.server.Close(); closeErr != nil {
				return fmt.Errorf("failed to close server: %w", closeErr)
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		s.logger.Info("server stopped gracefully")
		return nil
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	requireAuth := auth.Require(s.handlers.Tokens)
	optionalAuth := auth.Optional(s.handlers.Tokens)

	// Health check endpoint
	mux.HandleFunc("GET /x/health", s.healthCheckHandler)

	if s.config.Observability.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	mux.HandleFunc("POST /api/v1/auth/register", s.handlers.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", s.handlers.Auth.Login)

	mux.Handle("POST /api/v1/stories", requireAuth(http.HandlerFunc(s.handlers.Story.CreateStory)))
	mux.HandleFunc("GET /api/v1/stories", s.handlers.Story.ListStories)
	mux.HandleFunc("GET /api/v1/stories/{id}", s.handlers.Story.GetStory)
	mux.Handle("PUT /api/v1/stories/{id}", requireAuth(http.HandlerFunc(s.handlers.Story.UpdateStory)))
	mux.Handle("DELETE /api/v1/stories/{id}", requireAuth(http.HandlerFunc(s.handlers.Story.DeleteStory)))

	mux.Handle("GET /api/v1/stories/{id}/engagement", optionalAuth(http.HandlerFunc(s.handlers.Engagement.GetEngagement)))
	mux.Handle("POST /api/v1/stories/{id}/like", requireAuth(http.HandlerFunc(s.handlers.Engagement.ToggleLike)))
	mux.Handle("POST /api/v1/stories/{id}/bookmark", requireAuth(http.HandlerFunc(s.handlers.Engagement.ToggleBookmark)))

	return mux
}

// applyMiddleware wraps the handler with middleware in the correct order.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return httpx.Chain(
		httpx.Recovery(s.logger), // Outermost: catch panics
		httpx.RequestID,          // Add request ID
		httpx.Logger(s.logger),   // Log requests
		httpx.CORS(nil),          // CORS headers (allow all in dev)
	)(handler)
}

// healthCheckHandler handles health check requests.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.config.Observability.ServiceName,
		"version": s.config.Observability.ServiceVersion,
	})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
