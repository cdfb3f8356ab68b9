// Package httpapi exposes the satgen binary's operational HTTP surface:
// health, Prometheus metrics, and a run-status snapshot. cmd/replay does
// not serve it.
//
// Grounded on the now-deleted internal/api/router.go's chi middleware
// stack (RequestID, RealIP, Logger, Recoverer) and go-chi/cors
// configuration, trimmed from a multi-domain REST API down to three
// operational endpoints.
package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Status is the live run-status snapshot served at /status.
type Status struct {
	Tick             int       `json:"tick"`
	TotalTicks       int       `json:"total_ticks"`
	ActiveSatellites int       `json:"active_satellites"`
	StartedAt        time.Time `json:"started_at"`
}

// StatusReporter lets the simulator push status updates the router can
// serve without the two packages otherwise depending on each other.
type StatusReporter struct {
	mu     sync.RWMutex
	status Status
}

// NewStatusReporter starts tracking a run beginning at startedAt.
func NewStatusReporter(totalTicks int, startedAt time.Time) *StatusReporter {
	return &StatusReporter{status: Status{TotalTicks: totalTicks, StartedAt: startedAt}}
}

// Update records the latest tick's status.
func (r *StatusReporter) Update(tick, activeSatellites int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Tick = tick
	r.status.ActiveSatellites = activeSatellites
}

func (r *StatusReporter) snapshot() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// MetricsHandler is satisfied by observability.Metrics's Handler method.
type MetricsHandler interface {
	Handler() http.Handler
}

// NewRouter builds the chi router serving /healthz, /metrics, /status.
func NewRouter(metrics MetricsHandler, status *StatusReporter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if metrics != nil {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status.snapshot())
	})

	return r
}
