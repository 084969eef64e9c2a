// Package server provides the HTTP API for docqa.
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/metrics"
	"github.com/hyperjump/docqa/internal/qa"
	"github.com/hyperjump/docqa/pkg/utils"
)

// InboxService manages the watched inbox directories. Implemented by the watcher.
type InboxService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the docqa API.
type Server struct {
	service    *qa.Service
	config     *config.Config
	configMu   sync.Mutex
	configPath string
	inbox      InboxService
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server. inbox may be nil when no inbox is watched; configPath, when
// set, is rewritten after inbox directory changes.
func NewServer(service *qa.Service, cfg *config.Config, logger *zap.Logger, inbox InboxService, configPath string) *Server {
	return &Server{
		service:    service,
		config:     cfg,
		configPath: configPath,
		inbox:      inbox,
		logger:     utils.OrNop(logger),
	}
}

// Handler returns the routed HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{s.config.Server.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler)

	r.Group(func(r chi.Router) {
		if t := s.config.Server.RequestTimeout; t > 0 {
			r.Use(middleware.Timeout(t))
		}
		r.Post("/upload", s.handleUpload)
		r.Post("/ask", s.handleAsk)
		r.Get("/files", s.handleListFiles)
		r.Delete("/files/{id}", s.handleDeleteFile)
		r.Get("/status", s.handleStatus)
		r.Get("/inbox/directories", s.handleInboxList)
		r.Post("/inbox/directories", s.handleInboxAdd)
		r.Delete("/inbox/directories", s.handleInboxRemove)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Address()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
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
