// Package scheduler implements the priority-driven polling scheduler: a
// discovery cycle, three listings-cycle tiers, and an alert-ring prune
// cycle, all cooperatively concurrent and guarded against overlapping
// runs of the same cycle.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/adapter"
	"github.com/seatsniper/engine/dispatch"
	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/observability"
	"github.com/seatsniper/engine/scoring"
	"github.com/seatsniper/engine/store"
	"github.com/seatsniper/engine/subscription"
)

// Config bounds the scheduler's timing and batching behavior. Zero values
// are replaced by the documented defaults in New.
type Config struct {
	Cities              []string // lowercased monitored cities
	DiscoveryInterval   time.Duration
	HighTierInterval    time.Duration
	MediumTierInterval  time.Duration
	LowTierInterval     time.Duration
	AlertRingPruneEvery time.Duration
	MaxEventsPerCycle   int
	BatchSize           int
	TopPicksPerEvent    int
	AlertScoreThreshold int
	DiscoveryLookahead  time.Duration
	DiscoveryLimit      int
	PastEventCutoff     time.Duration
	ScanDeadline        time.Duration
	ScanSampleSize      int
}

func (c *Config) applyDefaults() {
	if c.DiscoveryInterval <= 0 {
		c.DiscoveryInterval = 15 * time.Minute
	}
	if c.HighTierInterval <= 0 {
		c.HighTierInterval = 2 * time.Minute
	}
	if c.MediumTierInterval <= 0 {
		c.MediumTierInterval = 10 * time.Minute
	}
	if c.LowTierInterval <= 0 {
		c.LowTierInterval = 30 * time.Minute
	}
	if c.AlertRingPruneEvery <= 0 {
		c.AlertRingPruneEvery = time.Hour
	}
	if c.MaxEventsPerCycle <= 0 {
		c.MaxEventsPerCycle = 50
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	if c.TopPicksPerEvent <= 0 {
		c.TopPicksPerEvent = 5
	}
	if c.AlertScoreThreshold <= 0 {
		c.AlertScoreThreshold = 70
	}
	if c.DiscoveryLookahead <= 0 {
		c.DiscoveryLookahead = 90 * 24 * time.Hour
	}
	if c.DiscoveryLimit <= 0 {
		c.DiscoveryLimit = 100
	}
	if c.PastEventCutoff <= 0 {
		c.PastEventCutoff = 24 * time.Hour
	}
	if c.ScanDeadline <= 0 {
		c.ScanDeadline = 45 * time.Second
	}
	if c.ScanSampleSize <= 0 {
		c.ScanSampleSize = 3
	}
}

// Scheduler owns the tracked-events map and runs the discovery, listings,
// and prune cycles concurrently until Stop is called.
type Scheduler struct {
	cfg        Config
	registry   *adapter.Registry
	subs       *subscription.Registry
	st         store.Store
	engine     *scoring.Engine
	dispatcher *dispatch.Dispatcher
	ring       *dispatch.AlertRing
	metrics    *observability.Metrics // optional
	log        zerolog.Logger

	mu            sync.RWMutex
	trackedEvents map[model.EventKey]*model.TrackedEvent
	eventMatches  map[string]model.EventMatch

	active sync.Map // cycle name -> struct{}
}

// New builds a Scheduler. All dependencies must already be initialized
// (adapters registered, subscriptions loaded). dispatcher may be nil at
// construction time (see SetDispatcher) to break the cyclic dependency
// between the scheduler and a comparator that looks up its matches.
func New(cfg Config, registry *adapter.Registry, subs *subscription.Registry, st store.Store,
	engine *scoring.Engine, dispatcher *dispatch.Dispatcher, ring *dispatch.AlertRing, log zerolog.Logger) *Scheduler {
	cfg.applyDefaults()
	return &Scheduler{
		cfg:           cfg,
		registry:      registry,
		subs:          subs,
		st:            st,
		engine:        engine,
		dispatcher:    dispatcher,
		ring:          ring,
		log:           log.With().Str("component", "scheduler").Logger(),
		trackedEvents: make(map[model.EventKey]*model.TrackedEvent),
		eventMatches:  make(map[string]model.EventMatch),
	}
}

// SetDispatcher attaches the dispatcher after construction, for callers
// that need a scheduler reference (e.g. for MatchContaining) before the
// dispatcher that depends on it can be built.
func (s *Scheduler) SetDispatcher(d *dispatch.Dispatcher) {
	s.dispatcher = d
}

// SetMetrics attaches a Prometheus metrics bundle. Optional; a nil
// metrics pointer is checked before every use.
func (s *Scheduler) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// Run blocks, driving every cycle on its own ticker, until ctx is
// cancelled. Discovery also runs once immediately, before the first tick.
func (s *Scheduler) Run(ctx context.Context) {
	s.runDiscovery(ctx)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); s.tickLoop(ctx, s.cfg.DiscoveryInterval, s.runDiscovery) }()
	go func() { defer wg.Done(); s.tickLoop(ctx, s.cfg.HighTierInterval, s.listingsCycleFunc(model.TierHigh)) }()
	go func() { defer wg.Done(); s.tickLoop(ctx, s.cfg.MediumTierInterval, s.listingsCycleFunc(model.TierMedium)) }()
	go func() { defer wg.Done(); s.tickLoop(ctx, s.cfg.LowTierInterval, s.listingsCycleFunc(model.TierLow)) }()

	wg.Add(1)
	go func() { defer wg.Done(); s.tickLoop(ctx, s.cfg.AlertRingPruneEvery, s.runAlertRingPrune) }()

	wg.Wait()
}

func (s *Scheduler) tickLoop(ctx context.Context, interval time.Duration, run func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(ctx)
		}
	}
}

func (s *Scheduler) listingsCycleFunc(tier model.PriorityTier) func(context.Context) {
	return func(ctx context.Context) { s.runListingsCycle(ctx, tier) }
}

// enterCycle implements the activeCycles single-flight guard: it returns
// false (and logs) if name is already running.
func (s *Scheduler) enterCycle(name string) bool {
	_, already := s.active.LoadOrStore(name, struct{}{})
	if already {
		s.log.Debug().Str("cycle", name).Msg("cycle already in flight, skipping this tick")
		if s.metrics != nil {
			s.metrics.CyclesSkipped.WithLabelValues(name).Inc()
		}
		return false
	}
	return true
}

func (s *Scheduler) exitCycle(name string) {
	s.active.Delete(name)
	if s.metrics != nil {
		s.metrics.CyclesRun.WithLabelValues(name).Inc()
		s.metrics.EventsTracked.Set(float64(s.TrackedEventCount()))
	}
}

// TrackedEventCount reports the current size of the tracked-events map,
// for observability.
func (s *Scheduler) TrackedEventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trackedEvents)
}

// MatchContaining returns the cross-platform group a given event key
// belongs to, if the matcher has found one. Used by the comparator to
// look up the other platforms' listings for a dispatched event.
func (s *Scheduler) MatchContaining(key model.EventKey) (model.EventMatch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.eventMatches {
		for platform, e := range g.Events {
			if e.Platform == platform && e.Key() == key {
				return g, true
			}
		}
	}
	return model.EventMatch{}, false
}

func (s *Scheduler) eventsInTier(tier model.PriorityTier, now time.Time) []*model.TrackedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.TrackedEvent
	for _, te := range s.trackedEvents {
		if model.ClassifyPriority(te.DaysUntil(now)) == tier {
			out = append(out, te)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Event.DateTime.Before(out[j].Event.DateTime)
	})
	if len(out) > s.cfg.MaxEventsPerCycle {
		out = out[:s.cfg.MaxEventsPerCycle]
	}
	return out
}
