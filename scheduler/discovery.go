package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/seatsniper/engine/adapter"
	"github.com/seatsniper/engine/matching"
	"github.com/seatsniper/engine/model"
)

const discoveryCycleName = "discovery"

// runDiscovery prunes past events, fans out SearchEvents over every
// (city, adapter) pair, folds newly seen events into the tracked-events
// map, then re-runs the matcher over the full discovered set.
func (s *Scheduler) runDiscovery(ctx context.Context) {
	if !s.enterCycle(discoveryCycleName) {
		return
	}
	defer s.exitCycle(discoveryCycleName)

	start := time.Now()
	s.prunePastEvents(start)

	discovered := s.fanOutSearch(ctx, start)
	if s.metrics != nil {
		s.metrics.EventsDiscovered.Add(float64(len(discovered)))
	}
	s.mergeTrackedEvents(discovered)

	groups := matching.Match(discovered)
	for _, g := range groups {
		s.mu.Lock()
		s.eventMatches[g.GroupID] = g
		s.mu.Unlock()
		if err := s.st.UpsertEventGroup(ctx, g); err != nil {
			s.log.Warn().Err(err).Str("group_id", g.GroupID).Msg("failed to persist event group")
		}
	}

	s.log.Info().
		Int("discovered", len(discovered)).
		Int("groups", len(groups)).
		Dur("elapsed", time.Since(start)).
		Msg("discovery cycle complete")
}

// prunePastEvents drops tracked events whose date is more than
// PastEventCutoff behind now, bounding trackedEvents' memory footprint.
func (s *Scheduler) prunePastEvents(now time.Time) {
	cutoff := now.Add(-s.cfg.PastEventCutoff)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, te := range s.trackedEvents {
		if te.Event.DateTime.Before(cutoff) {
			delete(s.trackedEvents, key)
		}
	}
}

// fanOutSearch calls SearchEvents for every (city, active adapter) pair
// concurrently and joins via a settled-all barrier: one adapter or city
// failing never cancels the others.
func (s *Scheduler) fanOutSearch(ctx context.Context, now time.Time) []model.NormalizedEvent {
	adapters := s.registry.Active()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var all []model.NormalizedEvent

	for _, city := range s.cfg.Cities {
		for _, a := range adapters {
			wg.Add(1)
			go func(city string, a adapter.Adapter) {
				defer wg.Done()

				params := adapter.SearchParams{
					City:      city,
					StartDate: now,
					EndDate:   now.Add(s.cfg.DiscoveryLookahead),
					Limit:     s.cfg.DiscoveryLimit,
				}
				events, err := a.SearchEvents(ctx, params)
				if err != nil {
					s.log.Warn().Err(err).Str("adapter", a.Name()).Str("city", city).Msg("search events failed")
					return
				}

				mu.Lock()
				all = append(all, events...)
				mu.Unlock()
			}(city, a)
		}
	}

	wg.Wait()
	return all
}

// mergeTrackedEvents inserts any (platform, platformId) not already
// tracked. Existing entries are left untouched so lastPolled/lastListingCount
// bookkeeping from the listings cycles survives rediscovery.
func (s *Scheduler) mergeTrackedEvents(events []model.NormalizedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		key := e.Key()
		if _, exists := s.trackedEvents[key]; exists {
			continue
		}
		s.trackedEvents[key] = &model.TrackedEvent{Event: e}
	}
}
