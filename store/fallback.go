package store

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/model"
)

// Fallback wraps a durable Store with an in-memory Store that absorbs
// writes and reads whenever the durable store errors. It guarantees
// forward progress at the cost of durability: entries written during an
// outage are lost on process restart, since the two stores share no
// persistence beyond the in-process map. Keys are identical between the
// two backends so a later-recovered durable store and the memory store
// never disagree about identity, only about history.
type Fallback struct {
	durable Store
	memory  *Memory
	log     zerolog.Logger
}

// NewFallback wraps durable with a fresh in-memory store.
func NewFallback(durable Store, log zerolog.Logger) *Fallback {
	return &Fallback{durable: durable, memory: NewMemory(), log: log.With().Str("component", "store_fallback").Logger()}
}

func (f *Fallback) warn(op string, err error) {
	f.log.Warn().Str("op", op).Err(err).Msg("durable store call failed, falling back to in-memory store")
}

func (f *Fallback) Init(ctx context.Context) error {
	if err := f.durable.Init(ctx); err != nil {
		f.warn("init", err)
	}
	return nil
}

func (f *Fallback) Close() { f.durable.Close() }

func (f *Fallback) UpsertSubscription(ctx context.Context, sub model.Subscription) error {
	if err := f.durable.UpsertSubscription(ctx, sub); err != nil {
		f.warn("upsert_subscription", err)
		return f.memory.UpsertSubscription(ctx, sub)
	}
	return f.memory.UpsertSubscription(ctx, sub)
}

func (f *Fallback) DeactivateSubscription(ctx context.Context, userID string, channel model.Channel) error {
	err := f.durable.DeactivateSubscription(ctx, userID, channel)
	if err != nil && err != ErrNotFound {
		f.warn("deactivate_subscription", err)
	}
	_ = f.memory.DeactivateSubscription(ctx, userID, channel)
	return nil
}

func (f *Fallback) ListActiveSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	subs, err := f.durable.ListActiveSubscriptions(ctx)
	if err != nil {
		f.warn("list_active_subscriptions", err)
		return f.memory.ListActiveSubscriptions(ctx)
	}
	return subs, nil
}

func (f *Fallback) RecordPriceSnapshot(ctx context.Context, p model.HistoricalPrice) error {
	if err := f.durable.RecordPriceSnapshot(ctx, p); err != nil {
		f.warn("record_price_snapshot", err)
	}
	return f.memory.RecordPriceSnapshot(ctx, p)
}

func (f *Fallback) HistoricalPrices(ctx context.Context, eventID, section string, limit int) ([]model.HistoricalPrice, error) {
	prices, err := f.durable.HistoricalPrices(ctx, eventID, section, limit)
	if err != nil {
		f.warn("historical_prices", err)
		return f.memory.HistoricalPrices(ctx, eventID, section, limit)
	}
	return prices, nil
}

func (f *Fallback) RecordAlert(ctx context.Context, a model.AlertRecord) error {
	if err := f.durable.RecordAlert(ctx, a); err != nil {
		f.warn("record_alert", err)
	}
	return f.memory.RecordAlert(ctx, a)
}

func (f *Fallback) LastSuccessfulAlert(ctx context.Context, eventID, userID string) (model.AlertRecord, error) {
	a, err := f.durable.LastSuccessfulAlert(ctx, eventID, userID)
	if err != nil && err != ErrNotFound {
		f.warn("last_successful_alert", err)
		return f.memory.LastSuccessfulAlert(ctx, eventID, userID)
	}
	return a, err
}

func (f *Fallback) UpsertEventGroup(ctx context.Context, g model.EventMatch) error {
	if err := f.durable.UpsertEventGroup(ctx, g); err != nil {
		f.warn("upsert_event_group", err)
	}
	return f.memory.UpsertEventGroup(ctx, g)
}

func (f *Fallback) AddWatchlistEntry(ctx context.Context, e WatchlistEntry) error {
	if err := f.durable.AddWatchlistEntry(ctx, e); err != nil {
		f.warn("add_watchlist_entry", err)
		return f.memory.AddWatchlistEntry(ctx, e)
	}
	return f.memory.AddWatchlistEntry(ctx, e)
}

func (f *Fallback) RemoveWatchlistEntry(ctx context.Context, userID, platform, platformEventID string) error {
	err := f.durable.RemoveWatchlistEntry(ctx, userID, platform, platformEventID)
	if err != nil && err != ErrNotFound {
		f.warn("remove_watchlist_entry", err)
	}
	memErr := f.memory.RemoveWatchlistEntry(ctx, userID, platform, platformEventID)
	if err == nil {
		return nil
	}
	return memErr
}

func (f *Fallback) ListWatchlist(ctx context.Context, userID string) ([]WatchlistEntry, error) {
	entries, err := f.durable.ListWatchlist(ctx, userID)
	if err != nil {
		f.warn("list_watchlist", err)
		return f.memory.ListWatchlist(ctx, userID)
	}
	return entries, nil
}
