// Package observability registers the Prometheus metrics surfaced on the
// admin server's /metrics endpoint: cycle counters, value-score
// distributions, alert counts, circuit-breaker state, and seat-map cache
// hit/miss counters.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every counter/gauge/histogram registered for /metrics.
// The scheduler and dispatcher report into it; nothing sets CircuitState,
// SeatMapHits or SeatMapMisses. Built once at startup and threaded through
// by reference.
type Metrics struct {
	CyclesRun       *prometheus.CounterVec
	CyclesSkipped   *prometheus.CounterVec
	EventsDiscovered prometheus.Counter
	EventsTracked   prometheus.Gauge
	ListingsScored  *prometheus.CounterVec
	ValueScore      *prometheus.HistogramVec
	AlertsDispatched *prometheus.CounterVec
	AlertsFailed    *prometheus.CounterVec
	CircuitState    *prometheus.GaugeVec
	SeatMapHits     prometheus.Counter
	SeatMapMisses   prometheus.Counter
}

// New registers every metric against reg and returns the bundle. Pass
// prometheus.NewRegistry() for an isolated registry (as tests do) or
// prometheus.DefaultRegisterer for production.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		CyclesRun: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seatsniper",
			Name:      "cycles_run_total",
			Help:      "Number of scheduler cycles that entered and completed, by cycle name.",
		}, []string{"cycle"}),
		CyclesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seatsniper",
			Name:      "cycles_skipped_total",
			Help:      "Number of scheduler cycle ticks skipped due to the overlap guard, by cycle name.",
		}, []string{"cycle"}),
		EventsDiscovered: f.NewCounter(prometheus.CounterOpts{
			Namespace: "seatsniper",
			Name:      "events_discovered_total",
			Help:      "Total NormalizedEvents returned by all adapters across every discovery cycle.",
		}),
		EventsTracked: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "seatsniper",
			Name:      "events_tracked",
			Help:      "Current size of the scheduler's tracked-events map.",
		}),
		ListingsScored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seatsniper",
			Name:      "listings_scored_total",
			Help:      "Listings run through the value-scoring engine, by priority tier.",
		}, []string{"tier"}),
		ValueScore: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "seatsniper",
			Name:      "value_score",
			Help:      "Distribution of computed total value scores.",
			Buckets:   []float64{10, 25, 40, 55, 70, 85, 100},
		}, []string{"tier"}),
		AlertsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seatsniper",
			Name:      "alerts_dispatched_total",
			Help:      "Alerts successfully delivered, by channel.",
		}, []string{"channel"}),
		AlertsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seatsniper",
			Name:      "alerts_failed_total",
			Help:      "Alert delivery attempts that errored, by channel.",
		}, []string{"channel"}),
		CircuitState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "seatsniper",
			Name:      "circuit_breaker_state",
			Help:      "Per-adapter circuit-breaker state: 0=closed, 1=half_open, 2=open.",
		}, []string{"adapter"}),
		SeatMapHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "seatsniper",
			Name:      "seatmap_cache_hits_total",
			Help:      "Seat-map LRU cache hits.",
		}),
		SeatMapMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "seatsniper",
			Name:      "seatmap_cache_misses_total",
			Help:      "Seat-map LRU cache misses.",
		}),
	}
}

// CircuitStateValue maps a resilience.Envelope's CircuitState string to the
// numeric gauge value CircuitState expects.
func CircuitStateValue(state string) float64 {
	switch state {
	case "half_open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
