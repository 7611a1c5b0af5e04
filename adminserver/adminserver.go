// Package adminserver exposes the process's operational HTTP surface:
// liveness/readiness probes, the Prometheus scrape endpoint, and a debug
// view of the tracked-event count and per-adapter state. It carries no
// business logic.
package adminserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/adapter"
)

// CycleStatus is one cycle's self-reported operational state. The
// /debug/cycles handler does not include it in its response.
type CycleStatus struct {
	Name       string    `json:"name"`
	LastRun    time.Time `json:"last_run"`
	LastError  string    `json:"last_error,omitempty"`
}

// CycleReporter is implemented by the scheduler to surface its tracked-event
// count without adminserver importing scheduler directly (it would
// otherwise create an import cycle once the scheduler wants to expose its
// own admin routes in the future).
type CycleReporter interface {
	TrackedEventCount() int
}

// Server builds the chi router for the admin HTTP surface.
type Server struct {
	registry *adapter.Registry
	reporter CycleReporter
	log      zerolog.Logger
}

// New builds a Server. reporter may be nil, in which case /debug/cycles
// reports only adapter health.
func New(registry *adapter.Registry, reporter CycleReporter, log zerolog.Logger) *Server {
	return &Server{
		registry: registry,
		reporter: reporter,
		log:      log.With().Str("component", "adminserver").Logger(),
	}
}

// Handler returns the fully configured router: request-ID, recoverer,
// structured request logging, then the probe/metrics/debug routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/debug/cycles", s.handleDebugCycles)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("admin request")
	})
}

// handleReady reports not-ready (503) if zero adapters survived
// initialization, mirroring the hard-startup-failure rule from the
// configuration design: a process with no working adapter has nothing
// useful to do.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	active := s.registry.Active()
	w.Header().Set("Content-Type", "application/json")
	if len(active) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not_ready","reason":"no active adapters"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

type debugCyclesResponse struct {
	TrackedEvents int                      `json:"tracked_events,omitempty"`
	Adapters      []adapterHealthView      `json:"adapters"`
}

type adapterHealthView struct {
	Name         string `json:"name"`
	Healthy      bool   `json:"healthy"`
	LatencyMs    int64  `json:"latency_ms"`
	CircuitState string `json:"circuit_state"`
	Disabled     bool   `json:"disabled"`
	DisabledWhy  string `json:"disabled_reason,omitempty"`
}

func (s *Server) handleDebugCycles(w http.ResponseWriter, r *http.Request) {
	resp := debugCyclesResponse{}
	if s.reporter != nil {
		resp.TrackedEvents = s.reporter.TrackedEventCount()
	}

	for _, a := range s.registry.Active() {
		health := a.HealthStatus()
		resp.Adapters = append(resp.Adapters, adapterHealthView{
			Name:         a.Name(),
			Healthy:      health.Healthy,
			LatencyMs:    health.LatencyMs,
			CircuitState: health.CircuitState,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
