// Package server exposes the estimation pipeline and DSR administration
// over HTTP. Authentication lives upstream: the requesting principal and
// role arrive as X-User-ID / X-User-Role headers.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"estimatex/internal/config"
	"estimatex/internal/dsr"
	"estimatex/internal/pipeline"
)

type Server struct {
	service *pipeline.Service
	store   *dsr.Store
	vocab   config.Vocabulary
	cfg     config.Config
	logger  *zap.Logger
	server  *http.Server
}

func NewServer(service *pipeline.Service, store *dsr.Store, vocab config.Vocabulary, cfg config.Config, logger *zap.Logger) *Server {
	return &Server{
		service: service,
		store:   store,
		vocab:   vocab,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1/dsr", func(r chi.Router) {
		r.Post("/estimate", s.handleEstimate)
		r.Get("/report/{id}", s.handleGetReport)
		r.Get("/items", s.handleListItems)
		r.Post("/items", s.handleCreateItem)
		r.Put("/items/{id}", s.handleUpdateItem)
		r.Get("/categories", s.handleCategories)
	})
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.routes(),
	}
	s.logger.Info("starting server", zap.String("addr", s.cfg.HTTPAddr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// envelope is the response wrapper shared by every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (s *Server) sendSuccess(w http.ResponseWriter, status int, data any, message string) {
	s.respond(w, status, envelope{Success: true, Message: message, Data: data})
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.respond(w, status, envelope{Success: false, Message: message})
}

func (s *Server) respond(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encoding failed", zap.Error(err))
	}
}
