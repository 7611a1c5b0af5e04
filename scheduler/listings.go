package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/scoring"
)

const defaultEventPopularity = 50 // see scoring.ValueScoreInput doc comment

// runListingsCycle processes every tracked event in tier: fetch
// listings, score them, record a price snapshot, and dispatch the top
// picks that clear the alert threshold. Skip-empty: with zero
// subscriptions the cycle returns without polling anything.
func (s *Scheduler) runListingsCycle(ctx context.Context, tier model.PriorityTier) {
	name := string(tier)
	if !s.enterCycle(name) {
		return
	}
	defer s.exitCycle(name)

	if s.subs.Count() == 0 {
		s.log.Debug().Str("tier", name).Msg("no subscriptions, skipping listings cycle")
		return
	}

	start := time.Now()
	events := s.eventsInTier(tier, start)
	if len(events) == 0 {
		return
	}

	processed := 0
	for i := 0; i < len(events); i += s.cfg.BatchSize {
		end := i + s.cfg.BatchSize
		if end > len(events) {
			end = len(events)
		}
		s.processBatch(ctx, events[i:end])
		processed += end - i
	}

	s.log.Info().
		Str("tier", name).
		Int("events_processed", processed).
		Dur("elapsed", time.Since(start)).
		Msg("listings cycle complete")
}

// processBatch runs one batch of events concurrently and joins via a
// settled-all barrier, matching the discovery cycle's fan-out shape.
func (s *Scheduler) processBatch(ctx context.Context, batch []*model.TrackedEvent) {
	var wg sync.WaitGroup
	wg.Add(len(batch))
	for _, te := range batch {
		go func(te *model.TrackedEvent) {
			defer wg.Done()
			s.processEvent(ctx, te)
		}(te)
	}
	wg.Wait()
}

func (s *Scheduler) processEvent(ctx context.Context, te *model.TrackedEvent) {
	a, ok := s.registry.Get(te.Event.Platform)
	if !ok {
		return
	}

	listings, err := a.GetEventListings(ctx, te.Event.PlatformID)
	if err != nil {
		s.log.Warn().Err(err).Str("adapter", te.Event.Platform).Str("event_id", te.Event.PlatformID).
			Msg("get event listings failed")
		return
	}

	now := time.Now()
	s.mu.Lock()
	te.LastPolled = now
	te.LastListingCount = len(listings)
	s.mu.Unlock()

	if len(listings) == 0 {
		return
	}

	avg := averagePrice(listings)
	rowCounts := sectionRowCounts(listings)
	s.recordPriceSnapshot(ctx, te.Event.PlatformID, listings, avg)

	history := s.historicalContext(ctx, te.Event.PlatformID)
	daysUntil := te.DaysUntil(now)

	scored := make([]model.ScoredListing, 0, len(listings))
	for _, l := range listings {
		result := s.engine.Score(scoring.ValueScoreInput{
			Listing:             l,
			AveragePrice:        avg,
			TotalRowsInSection:  rowCounts[l.Section],
			HistoricalPriceData: history[l.Section],
			EventPopularity:     defaultEventPopularity,
			DaysUntilEvent:      daysUntil,
		})
		scored = append(scored, model.ScoredListing{Listing: l, Score: result})
	}

	if s.metrics != nil {
		tier := string(model.ClassifyPriority(daysUntil))
		s.metrics.ListingsScored.WithLabelValues(tier).Add(float64(len(scored)))
		for _, sc := range scored {
			s.metrics.ValueScore.WithLabelValues(tier).Observe(float64(sc.Score.TotalScore))
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score.TotalScore > scored[j].Score.TotalScore
	})

	var topPicks []model.ScoredListing
	for _, sc := range scored {
		if sc.Score.TotalScore < s.cfg.AlertScoreThreshold {
			break
		}
		topPicks = append(topPicks, sc)
		if len(topPicks) >= s.cfg.TopPicksPerEvent {
			break
		}
	}
	if len(topPicks) == 0 {
		return
	}

	s.dispatcher.Dispatch(ctx, te.Event, topPicks)
}

// sectionRowCounts estimates how many rows each section has from the
// rows visible in the current snapshot: the deepest parsed row rank seen
// per section. A single snapshot undercounts sparsely listed sections,
// but it keeps the row-position sub-score live without a venue-layout
// data source.
func sectionRowCounts(listings []model.NormalizedListing) map[string]int {
	counts := make(map[string]int)
	for _, l := range listings {
		if rank := scoring.ParseRowRank(l.Row); rank > counts[l.Section] {
			counts[l.Section] = rank
		}
	}
	return counts
}

func averagePrice(listings []model.NormalizedListing) float64 {
	if len(listings) == 0 {
		return 0
	}
	var sum float64
	for _, l := range listings {
		sum += l.PricePerTicket
	}
	return sum / float64(len(listings))
}

// recordPriceSnapshot persists one HistoricalPrice per section. Best-effort:
// a store failure is logged and otherwise ignored.
func (s *Scheduler) recordPriceSnapshot(ctx context.Context, eventID string, listings []model.NormalizedListing, overallAvg float64) {
	bySection := make(map[string][]model.NormalizedListing)
	for _, l := range listings {
		bySection[l.Section] = append(bySection[l.Section], l)
	}
	now := time.Now().Unix()
	for section, group := range bySection {
		lowest, highest := group[0].PricePerTicket, group[0].PricePerTicket
		var sum float64
		for _, l := range group {
			sum += l.PricePerTicket
			if l.PricePerTicket < lowest {
				lowest = l.PricePerTicket
			}
			if l.PricePerTicket > highest {
				highest = l.PricePerTicket
			}
		}
		if lowest <= 0 || highest <= 0 {
			continue
		}
		snapshot := model.HistoricalPrice{
			EventID:      eventID,
			Section:      section,
			AveragePrice: sum / float64(len(group)),
			LowestPrice:  lowest,
			HighestPrice: highest,
			ListingCount: len(group),
			RecordedAt:   now,
		}
		if err := s.st.RecordPriceSnapshot(ctx, snapshot); err != nil {
			s.log.Debug().Err(err).Str("event_id", eventID).Str("section", section).
				Msg("failed to record price snapshot")
		}
	}
}

// historicalContext fetches recent HistoricalPrice points per section for
// eventID, keyed by section. Best-effort: returns an empty map on store
// failure rather than blocking scoring.
func (s *Scheduler) historicalContext(ctx context.Context, eventID string) map[string][]model.HistoricalPrice {
	out := make(map[string][]model.HistoricalPrice)
	prices, err := s.st.HistoricalPrices(ctx, eventID, "", 0)
	if err != nil {
		return out
	}
	for _, p := range prices {
		out[p.Section] = append(out[p.Section], p)
	}
	return out
}
