package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seatsniper/engine/adapter"
	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/scoring"
)

// ScanResult is one event found by an on-demand city scan, with the
// scored listings sampled for it (empty when the event's adapter serves
// no per-seat inventory, or the event fell outside the sample).
type ScanResult struct {
	Event    model.NormalizedEvent
	Listings []model.ScoredListing
}

// ScanCity runs an on-demand, interactive scan of one city: every active
// adapter is searched concurrently, and the first ScanSampleSize events
// per adapter get their listings fetched and scored. The whole operation
// is bounded by ScanDeadline, independent of any running cycle. Adapter
// failures are isolated the same way discovery isolates them: one
// adapter erroring never hides another's results.
func (s *Scheduler) ScanCity(ctx context.Context, city string) []ScanResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScanDeadline)
	defer cancel()

	now := time.Now()
	adapters := s.registry.Active()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var results []ScanResult

	for _, a := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			events, err := a.SearchEvents(ctx, adapter.SearchParams{
				City:      city,
				StartDate: now,
				EndDate:   now.Add(s.cfg.DiscoveryLookahead),
				Limit:     s.cfg.DiscoveryLimit,
			})
			if err != nil {
				s.log.Warn().Err(err).Str("adapter", a.Name()).Str("city", city).Msg("scan-city search failed")
				return
			}

			scanned := s.scanListings(ctx, a, events, now)
			mu.Lock()
			results = append(results, scanned...)
			mu.Unlock()
		}(a)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Event.DateTime.Before(results[j].Event.DateTime)
	})
	return results
}

// scanListings fetches and scores listings for the first ScanSampleSize
// events; the rest are returned event-only so the caller can still show
// them. The sample size is configurable; the default of 3 keeps the
// interactive path inside its deadline even with slow adapters.
func (s *Scheduler) scanListings(ctx context.Context, a adapter.Adapter, events []model.NormalizedEvent, now time.Time) []ScanResult {
	out := make([]ScanResult, 0, len(events))
	for i, e := range events {
		result := ScanResult{Event: e}
		if i < s.cfg.ScanSampleSize {
			listings, err := a.GetEventListings(ctx, e.PlatformID)
			if err != nil {
				s.log.Debug().Err(err).Str("adapter", a.Name()).Str("event_id", e.PlatformID).
					Msg("scan-city listings fetch failed")
			} else if len(listings) > 0 {
				result.Listings = s.scoreScanListings(listings, e, now)
			}
		}
		out = append(out, result)
	}
	return out
}

func (s *Scheduler) scoreScanListings(listings []model.NormalizedListing, e model.NormalizedEvent, now time.Time) []model.ScoredListing {
	avg := averagePrice(listings)
	rowCounts := sectionRowCounts(listings)
	daysUntil := model.TrackedEvent{Event: e}.DaysUntil(now)
	scored := make([]model.ScoredListing, 0, len(listings))
	for _, l := range listings {
		result := s.engine.Score(scoring.ValueScoreInput{
			Listing:            l,
			AveragePrice:       avg,
			TotalRowsInSection: rowCounts[l.Section],
			EventPopularity:    defaultEventPopularity,
			DaysUntilEvent:     daysUntil,
		})
		scored = append(scored, model.ScoredListing{Listing: l, Score: result})
	}
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score.TotalScore > scored[j].Score.TotalScore
	})
	return scored
}
