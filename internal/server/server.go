// Package server provides the HTTP API for Toibako.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kyozai/toibako/internal/config"
	"github.com/kyozai/toibako/internal/importer"
	"github.com/kyozai/toibako/internal/metrics"
	"github.com/kyozai/toibako/internal/search"
	"github.com/kyozai/toibako/internal/storage"
	"github.com/kyozai/toibako/internal/watcher"
)

// Server is the HTTP server for the Toibako API.
type Server struct {
	service  *search.Service
	importer *importer.Importer
	storage  storage.Storage
	watch    *watcher.Watcher // optional; nil when import watching is disabled
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. watch may be
// nil when no import directories are configured.
func NewServer(
	service *search.Service,
	imp *importer.Importer,
	store storage.Storage,
	watch *watcher.Watcher,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		service:  service,
		importer: imp,
		storage:  store,
		watch:    watch,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(metrics.Middleware())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/search/advanced", s.handleAdvancedSearch)
		r.Post("/search/fuzzy", s.handleFuzzySearch)
		r.Post("/search/tags", s.handleSearchByTags)
		r.Get("/search/suggestions", s.handleSuggestions)
		r.Get("/search/popular", s.handlePopular)
		r.Get("/search/history", s.handleHistory)
		r.Delete("/search/history", s.handleClearHistory)
		r.Get("/search/saved", s.handleSavedList)
		r.Post("/search/saved", s.handleSaveSearch)
		r.Get("/search/saved/{name}", s.handleSavedGet)

		r.Post("/questions", s.handleCreateQuestion)
		r.Get("/questions/{id}", s.handleGetQuestion)
		r.Delete("/questions/{id}", s.handleDeleteQuestion)
		r.Get("/questions/{id}/similar", s.handleSimilar)

		r.Post("/filter", s.handleFilter)
		r.Get("/filter/options", s.handleFilterOptions)

		r.Post("/import", s.handleImport)

		r.Get("/stats", s.handleStats)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
