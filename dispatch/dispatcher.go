// Package dispatch implements the alert dispatcher: it filters
// subscribers against a matched (event, scored listings) pair, enforces
// per-user-per-event cooldown, routes to the right notifier, and
// auto-deactivates subscriptions on unrecoverable delivery errors.
package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/notifier"
	"github.com/seatsniper/engine/observability"
	"github.com/seatsniper/engine/store"
	"github.com/seatsniper/engine/subscription"
)

// DefaultCooldown is the minimum time between two alerts for the same
// (event, user) pair.
const DefaultCooldown = 30 * time.Minute

// SeatMapLookup resolves a venue name to a display URL via any adapter
// that exposes one. Failures are non-fatal: the dispatcher proceeds
// without a seat map rather than blocking the alert.
type SeatMapLookup interface {
	LookupSeatMapURL(ctx context.Context, venueName string) (string, bool)
}

// Comparator enriches an alert payload with a best-effort cross-platform
// price comparison summary for the event, if one is available.
type Comparator interface {
	CompareSummary(ctx context.Context, eventKey model.EventKey) (string, bool)
}

// Dispatcher is the alert dispatch pipeline.
type Dispatcher struct {
	subs      *subscription.Registry
	st        store.Store
	ring      *AlertRing
	notifiers map[model.Channel]notifier.Notifier
	seatMaps  SeatMapLookup // optional
	comparator Comparator    // optional
	metrics   *observability.Metrics // optional
	cooldown  time.Duration
	log       zerolog.Logger
}

// SetMetrics attaches a Prometheus metrics bundle. Optional; nil is
// checked before every use.
func (d *Dispatcher) SetMetrics(m *observability.Metrics) {
	d.metrics = m
}

// New builds a Dispatcher. seatMaps and comparator may be nil; both
// enrichments are best-effort.
func New(subs *subscription.Registry, st store.Store, ring *AlertRing, notifiers map[model.Channel]notifier.Notifier,
	seatMaps SeatMapLookup, comparator Comparator, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		subs:       subs,
		st:         st,
		ring:       ring,
		notifiers:  notifiers,
		seatMaps:   seatMaps,
		comparator: comparator,
		cooldown:   DefaultCooldown,
		log:        log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch runs the full pipeline for one event's top picks: candidate
// selection, cooldown, per-subscriber budget/quantity filtering, payload
// enrichment, and notifier routing. It never returns an error: every
// failure is logged and/or reflected in subscription state.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.NormalizedEvent, topPicks []model.ScoredListing) {
	if len(topPicks) == 0 {
		return
	}

	for _, sub := range d.candidateSubscribers(event) {
		if d.onCooldown(ctx, event, sub) {
			continue
		}

		picks := filterPicksForSubscriber(sub, topPicks)
		if len(picks) == 0 {
			continue
		}

		d.sendToSubscriber(ctx, event, sub, picks)
	}
}

// candidateSubscribers applies the city/category/keyword/active/paused
// filter, the first stage of the dispatch pipeline.
func (d *Dispatcher) candidateSubscribers(event model.NormalizedEvent) []model.Subscription {
	var out []model.Subscription
	cityLower := strings.ToLower(event.Venue.City)
	for _, sub := range d.subs.Dispatchable() {
		if _, ok := sub.CitySet()[cityLower]; !ok {
			continue
		}
		if len(sub.Categories) > 0 && !containsCategory(sub.Categories, event.Category) {
			continue
		}
		if len(sub.Keywords) > 0 && !anyKeywordMatches(sub.Keywords, event.Name) {
			continue
		}
		out = append(out, sub)
	}
	return out
}

func containsCategory(cats []model.Category, c model.Category) bool {
	for _, want := range cats {
		if want == c {
			return true
		}
	}
	return false
}

func anyKeywordMatches(keywords []string, name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// onCooldown checks the in-memory ring first (cheap), then the durable
// ledger (authoritative across restarts). If the store is unavailable,
// the in-memory result alone decides.
func (d *Dispatcher) onCooldown(ctx context.Context, event model.NormalizedEvent, sub model.Subscription) bool {
	eventID := event.PlatformID

	if rec, ok := d.ring.LastSuccessful(eventID, sub.UserID); ok {
		if time.Since(rec.SentAt) < d.cooldown {
			return true
		}
	}

	rec, err := d.st.LastSuccessfulAlert(ctx, eventID, sub.UserID)
	if err == store.ErrNotFound {
		return false
	}
	if err != nil {
		d.log.Debug().Err(err).Msg("durable cooldown lookup failed, relying on in-memory ring only")
		return false
	}
	return time.Since(rec.SentAt) < d.cooldown
}

// filterPicksForSubscriber applies per-subscriber minQuantity and budget
// filters (step 3).
func filterPicksForSubscriber(sub model.Subscription, picks []model.ScoredListing) []model.ScoredListing {
	var out []model.ScoredListing
	for _, p := range picks {
		if p.Score.TotalScore < sub.MinScore {
			continue
		}
		if sub.MinQuantity > 0 && p.Listing.Quantity < sub.MinQuantity {
			continue
		}
		if sub.MaxPricePerTicket > 0 && p.Listing.PricePerTicket > sub.MaxPricePerTicket {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (d *Dispatcher) sendToSubscriber(ctx context.Context, event model.NormalizedEvent, sub model.Subscription, picks []model.ScoredListing) {
	n, ok := d.notifiers[sub.Channel]
	if !ok {
		d.log.Warn().Str("channel", string(sub.Channel)).Msg("no notifier registered for channel")
		return
	}

	payload := notifier.AlertPayload{
		RecipientID:   sub.UserID,
		EventName:     event.Name,
		VenueName:     event.Venue.Name,
		City:          event.Venue.City,
		EventDateTime: event.DateTime.Format(time.RFC1123),
		TopPicks:      picks,
		DeepLink:      event.URL,
	}
	payload.SeatMapURL = d.resolveSeatMapURL(ctx, event)
	if d.comparator != nil {
		if summary, ok := d.comparator.CompareSummary(ctx, event.Key()); ok {
			payload.Comparison = summary
		}
	}

	result, err := n.SendAlert(ctx, payload)
	if err != nil {
		d.log.Warn().Err(err).Str("user_id", sub.UserID).Msg("notifier call errored")
		return
	}

	record := model.AlertRecord{
		AlertID:  uuid.NewString(),
		EventID:  event.PlatformID,
		UserID:   sub.UserID,
		SentAt:   time.Now().UTC(),
		TopScore: picks[0].Score.TotalScore,
		Channel:  sub.Channel,
		Success:  result.Success,
	}

	if result.Success {
		d.ring.Record(record)
		if err := d.st.RecordAlert(ctx, record); err != nil {
			d.log.Warn().Err(err).Msg("failed to persist alert record")
		}
		if d.metrics != nil {
			d.metrics.AlertsDispatched.WithLabelValues(string(sub.Channel)).Inc()
		}
		return
	}

	if d.metrics != nil {
		d.metrics.AlertsFailed.WithLabelValues(string(sub.Channel)).Inc()
	}
	if notifier.IsHardFailure(result.Error) {
		d.log.Info().Str("user_id", sub.UserID).Str("error", result.Error).Msg("auto-deactivating subscription after hard delivery failure")
		d.subs.Deactivate(ctx, sub.UserID, sub.Channel)
	}
}

func (d *Dispatcher) resolveSeatMapURL(ctx context.Context, event model.NormalizedEvent) string {
	if event.SeatMapURL != "" {
		return event.SeatMapURL
	}
	if d.seatMaps == nil {
		return ""
	}
	url, ok := d.seatMaps.LookupSeatMapURL(ctx, event.Venue.Name)
	if !ok {
		return ""
	}
	return url
}
