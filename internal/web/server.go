// Package web provides the HTTP server and JSON handlers for the catalog.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/ingest"
	"github.com/JonMunkholm/catalog/internal/metrics"
	"github.com/JonMunkholm/catalog/internal/web/middleware"
)

// Catalog is the read side the handlers serve.
type Catalog interface {
	List(ctx context.Context, producer catalog.Producer, skip, limit int) ([]catalog.Product, error)
	Limits() (defaultLimit, maxLimit int)
	Ping(ctx context.Context) error
}

// Ingester starts and reports ingestion runs.
type Ingester interface {
	Trigger(ctx context.Context) (string, error)
	Recent(n int) []ingest.RunRecord
	Status() ingest.GateStatus
}

// limiterSweep is how often idle rate limiter entries are dropped.
const limiterSweep = time.Minute

// Options configures a Server.
type Options struct {
	Server config.ServerConfig
	Rate   config.RateLimitConfig

	// IngestKeys guard POST /ingest/run; empty leaves it open.
	IngestKeys []string
}

// Server is the HTTP server for the catalog API.
type Server struct {
	catalog  Catalog
	ingester Ingester
	cfg      config.ServerConfig
	router   *chi.Mux
	server   *http.Server
	limiters []*middleware.RateLimiter
}

// NewServer builds the router. ing may be nil when no ingestion source is
// configured; the ingest routes then answer 503.
func NewServer(cat Catalog, ing Ingester, opts Options) *Server {
	s := &Server{
		catalog:  cat,
		ingester: ing,
		cfg:      opts.Server,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware(opts.Rate)
	s.setupRoutes(opts.Rate, opts.IngestKeys)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(rateCfg config.RateLimitConfig) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.ProxyList()))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.RequestTimeout))
	}
	s.router.Use(securityHeaders)

	if rateCfg.Enabled {
		limiter := middleware.NewRateLimiter(rateCfg.RequestsPerMinute, rateCfg.Burst)
		s.limiters = append(s.limiters, limiter)
		s.router.Use(limiter.Middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(rateCfg config.RateLimitConfig, ingestKeys []string) {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	// Products
	s.router.Get("/products", s.handleListProducts)
	s.router.Get("/products/", s.handleListProducts)
	s.router.Get("/products/{producer}", s.handleListProducerProducts)

	// Ingestion
	s.router.Route("/ingest", func(r chi.Router) {
		trigger := http.Handler(http.HandlerFunc(s.handleTriggerRun))
		if rateCfg.Enabled {
			limiter := middleware.NewRateLimiter(rateCfg.IngestPerMinute, 1)
			s.limiters = append(s.limiters, limiter)
			trigger = limiter.Middleware(trigger)
		}
		r.Method(http.MethodPost, "/run", middleware.APIKeyAuth(ingestKeys)(trigger))
		r.Get("/runs", s.handleListRuns)
	})
}

// Start listens on addr until Shutdown. ctx bounds background upkeep such
// as rate limiter sweeps.
func (s *Server) Start(ctx context.Context, addr string) error {
	for _, l := range s.limiters {
		go l.Cleanup(ctx, limiterSweep)
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
