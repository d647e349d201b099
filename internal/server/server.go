// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/audit"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/syncer"
	"github.com/hyperjump/kotae/internal/vector"
)

// Server is the HTTP server for the Kotae API.
type Server struct {
	composer *answer.Composer
	syncer   *syncer.Syncer
	tracker  audit.Tracker
	store    *vector.Store
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	composer *answer.Composer,
	sync *syncer.Syncer,
	tracker audit.Tracker,
	store *vector.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		composer: composer,
		syncer:   sync,
		tracker:  tracker,
		store:    store,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/sync", s.handleSync)
	r.Get("/api/v1/audit/recent", s.handleAuditRecent)
	r.Get("/api/v1/audit/answers/{id}", s.handleAuditAnswer)
	r.Get("/api/v1/audit/syncs", s.handleAuditSyncs)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
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
