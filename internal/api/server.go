// Package api exposes the recommendation service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bookrec/internal/service"
)

// Counter reports how many entries the vector index holds.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Config holds the HTTP surface settings.
type Config struct {
	CORSOrigins        []string
	RateLimitPerMinute int
	// RetryAfter is advertised on 503 responses.
	RetryAfter time.Duration
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc       *service.Service
	index     Counter
	validator *Validator
	router    *chi.Mux
	cfg       Config
	log       *zap.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(svc *service.Service, index Counter, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = 5 * time.Second
	}
	s := &Server{
		svc:       svc,
		index:     index,
		validator: NewValidator(),
		router:    chi.NewRouter(),
		cfg:       cfg,
		log:       log.Named("api"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Retry-After", "X-Request-ID"},
		MaxAge:         86400,
	}))
	if s.cfg.RateLimitPerMinute > 0 {
		s.router.Use(httprate.Limit(
			s.cfg.RateLimitPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			}),
		))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/filters", s.handleFilters)
	s.router.Get("/books", s.handleBrowse)
	s.router.Post("/recommendations", s.handleRecommend)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})
}
