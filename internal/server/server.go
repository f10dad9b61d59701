// Package server provides the HTTP API for the FAQ chatbot.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/faqbot/internal/config"
	"github.com/hyperjump/faqbot/internal/embedding"
	"github.com/hyperjump/faqbot/internal/observability"
	"github.com/hyperjump/faqbot/internal/stream"
)

// Responder answers one chat message. *chat.Service satisfies it.
type Responder interface {
	Respond(ctx context.Context, message string, sink stream.FrameSink) error
}

// Info describes the loaded corpus for /health.
type Info struct {
	Entries    int
	Dimensions int
	// PoolStats reports embedding workers; nil when the embedder is not pooled.
	PoolStats func() embedding.PoolStats
}

// Server is the HTTP server for the chat API.
type Server struct {
	chat    Responder
	info    Info
	metrics *observability.Metrics
	config  *config.Config
	logger  *zap.Logger
	limiter *ipLimiter
	server  *http.Server
}

// NewServer creates a server with the given dependencies. metrics may be nil.
func NewServer(
	chat Responder,
	info Info,
	metrics *observability.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		chat:    chat,
		info:    info,
		metrics: metrics,
		config:  cfg,
		logger:  logger,
	}
	if cfg.RateLimit.EnabledOrDefault() {
		s.limiter = newIPLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.rateLimit)
		}
		r.Post("/chat", s.handleChat)
		r.Post("/api/faq-match", s.handleFAQMatch)
	})
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
