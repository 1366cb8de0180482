package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	// Services
	workspace driving.WorkspaceService
	settings  driving.SettingsService

	// Infrastructure
	taskQueue driven.TaskQueue
	lock      Pinger // Distributed lock health check (optional)
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "127.0.0.1",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	workspace driving.WorkspaceService,
	settings driving.SettingsService,
	taskQueue driven.TaskQueue, // can be nil
	lock Pinger, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		logger:    logger,
		router:    http.NewServeMux(),
		version:   cfg.Version,
		workspace: workspace,
		settings:  settings,
		taskQueue: taskQueue,
		lock:      lock,
	}

	s.setupRoutes()

	var handler http.Handler = s.router
	if len(cfg.AllowedOrigins) > 0 {
		handler = NewCORSMiddleware(cfg.AllowedOrigins).Handler(handler)
	}
	handler = NewLoggingMiddleware(logger).Handler(handler)
	s.handler = NewRecoveryMiddleware(logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // synchronous text and image exports
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// ServeHTTP serves a request through the middleware chain
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Document endpoints
	s.router.HandleFunc("GET /api/v1/documents", s.handleListDocuments)
	s.router.HandleFunc("POST /api/v1/documents/import", s.handleImport)
	s.router.HandleFunc("GET /api/v1/documents/{name}", s.handleGetDocument)
	s.router.HandleFunc("PUT /api/v1/documents/{name}", s.handleRenameDocument)
	s.router.HandleFunc("DELETE /api/v1/documents/{name}", s.handleDeleteDocument)
	s.router.HandleFunc("POST /api/v1/documents/{name}/open", s.handleOpenDocument)
	s.router.HandleFunc("POST /api/v1/documents/{name}/ocr", s.handleRequestOCR)
	s.router.HandleFunc("POST /api/v1/documents/{name}/export", s.handleExport)
	s.router.HandleFunc("GET /api/v1/working", s.handleWorking)

	// Page endpoints
	s.router.HandleFunc("PUT /api/v1/documents/{name}/pages/{order}", s.handleUpdatePage)
	s.router.HandleFunc("DELETE /api/v1/documents/{name}/pages/{order}", s.handleDeletePage)
	s.router.HandleFunc("POST /api/v1/documents/{name}/pages/{order}/open", s.handleOpenPage)
	s.router.HandleFunc("POST /api/v1/documents/{name}/pages/{order}/move", s.handleReorderPage)

	// Search and navigation
	s.router.HandleFunc("GET /api/v1/search", s.handleSearch)
	s.router.HandleFunc("GET /api/v1/history", s.handleHistory)
	s.router.HandleFunc("POST /api/v1/history/back", s.handleBack)
	s.router.HandleFunc("POST /api/v1/history/next", s.handleNext)

	// Background tasks
	s.router.HandleFunc("GET /api/v1/tasks", s.handleListTasks)
	s.router.HandleFunc("GET /api/v1/tasks/stats", s.handleTaskStats)
	s.router.HandleFunc("GET /api/v1/tasks/{id}", s.handleGetTask)
	s.router.HandleFunc("DELETE /api/v1/tasks/{id}", s.handleCancelTask)

	// Settings
	s.router.HandleFunc("GET /api/v1/settings/ocr", s.handleGetOCRSettings)
	s.router.HandleFunc("PUT /api/v1/settings/ocr", s.handleUpdateOCRSettings)
}

// Start serves until SIGINT or SIGTERM, then drains open requests.
// A listener failure is returned instead of exiting the process.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case sig := <-stop:
		s.logger.Info("http server shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
