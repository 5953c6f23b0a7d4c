// Package httpapi exposes the lottery service over HTTP: a JSON API for the
// lifecycle operations, a websocket event feed, and Prometheus metrics.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/R3E-Network/nft_lottery/internal/lottery"
	"github.com/R3E-Network/nft_lottery/internal/metrics"
	"github.com/R3E-Network/nft_lottery/pkg/logger"
)

// Options configures the HTTP server.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server routes HTTP requests to the lottery service.
type Server struct {
	svc     *lottery.Service
	metrics *metrics.Metrics
	log     *logger.Logger
	router  chi.Router
}

// NewServer builds the router. Pass nil metrics to skip instrumentation.
func NewServer(svc *lottery.Service, m *metrics.Metrics, log *logger.Logger, opts Options) *Server {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	s := &Server{svc: svc, metrics: m, log: log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	// The websocket feed must stay outside the timeout and instrumentation
	// wrappers: both break connection hijacking.
	r.Get("/healthz", s.handleHealth)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	r.Get("/events", s.handleEvents)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		if m != nil {
			r.Use(s.instrument)
		}
		if opts.RateLimitRPS > 0 {
			rl := newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
			r.Use(rl.middleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/state", s.handleState)
			r.Get("/stats", s.handleStats)
			r.Get("/rounds/active", s.handleRoundActive)
			r.Get("/rounds/winning", s.handleWinning)
			r.Get("/tickets", s.handleListTickets)
			r.Post("/tickets", s.handleBuy)

			r.Post("/rounds/open", s.handleOpenRound)
			r.Post("/rounds/draw", s.handleDraw)
			r.Post("/rounds/prizes", s.handleGivePrizes)
			r.Post("/lottery/close", s.handleClose)
			r.Get("/collectibles/pool", s.handlePool)
			r.Get("/collectibles/{id}", s.handleCollectible)
			r.Post("/collectibles/mint", s.handleMintCollectible)
		})
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(route, r.Method, rec.status, time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
