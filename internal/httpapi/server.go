// Package httpapi serves the weather agent's read-only operational
// surface: a liveness probe, a risk/exposure status snapshot, and the
// Prometheus scrape endpoint. There is no trading control plane here by
// design — starting, stopping, or resizing trades happens only through
// configuration and process restarts.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weatheragent/core/internal/discovery"
	"github.com/weatheragent/core/internal/metrics"
	"github.com/weatheragent/core/internal/paperledger"
	"github.com/weatheragent/core/internal/risk"
)

// Config holds the HTTP surface's tunables.
type Config struct {
	Addr string
}

// Server is the weather agent's operational HTTP surface.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	risk      *risk.Manager
	discovery *discovery.Service
	metrics   *metrics.Metrics
	ledger    *paperledger.Ledger // nil outside dry-run
	startedAt time.Time
}

// New builds a Server. ledger may be nil when running live (not dry-run).
func New(riskMgr *risk.Manager, disc *discovery.Service, m *metrics.Metrics, ledger *paperledger.Ledger, cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		risk:      riskMgr,
		discovery: disc,
		metrics:   m,
		ledger:    ledger,
		startedAt: time.Now(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Timeout(10 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
		MaxAge:         300,
	}))

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/status", s.handleStatus)
	s.router.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// ListenAndServe starts the server; it blocks until the listener fails or
// Shutdown is called, at which point it returns http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type healthResponse struct {
	Status           string  `json:"status"`
	Paused           bool    `json:"paused"`
	PauseReason      string  `json:"pauseReason,omitempty"`
	StaleData        bool    `json:"staleData"`
	ApproachingLoss  bool    `json:"approachingLoss"`
	RealizedDailyPnL float64 `json:"realizedDailyPnlUsd"`
	UptimeSeconds    float64 `json:"uptimeSeconds"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	health := s.risk.IsHealthy()

	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, healthResponse{
		Status:           statusString(health.Healthy),
		Paused:           health.Paused,
		PauseReason:      health.PauseReason,
		StaleData:        health.StaleData,
		ApproachingLoss:  health.ApproachingLoss,
		RealizedDailyPnL: health.RealizedDailyPnL,
		UptimeSeconds:    time.Since(s.startedAt).Seconds(),
	})
}

type statusResponse struct {
	ActiveMarkets int                   `json:"activeMarkets"`
	Exposure      risk.ExposureSnapshot `json:"exposure"`
	PaperLedger   *paperledger.Summary  `json:"paperLedger,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		ActiveMarkets: s.discovery.ActiveCount(),
		Exposure:      s.risk.Snapshot(),
	}
	if s.ledger != nil {
		summary := s.ledger.Summary()
		resp.PaperLedger = &summary
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusString(healthy bool) string {
	if healthy {
		return "ok"
	}
	return "degraded"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}
