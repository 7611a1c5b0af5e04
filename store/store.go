// Package store defines the durable-storage contract shared by the
// subscription registry, alert dispatcher, polling scheduler, and
// watchlist, plus a Postgres implementation and an in-memory fallback.
// Every method is called best-effort: callers log and continue on error
// rather than treating a store failure as fatal; subscription-wizard
// commits are the one exception, held authoritatively in memory and
// persisted best-effort.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/seatsniper/engine/model"
)

// ErrNotFound is returned by lookup methods that find nothing, so callers
// can distinguish "no rows" from a transport failure.
var ErrNotFound = errors.New("store: not found")

// WatchlistEntry is one event a user has explicitly asked to track.
type WatchlistEntry struct {
	UserID          string
	Platform        string
	PlatformEventID string
	EventName       string
	LastSeenPrice   float64
	AddedAt         time.Time
}

// Store is the durable-storage contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Init idempotently creates every collection this store needs, using
	// "IF NOT EXISTS" style migrations so repeated calls are free.
	Init(ctx context.Context) error
	Close()

	UpsertSubscription(ctx context.Context, sub model.Subscription) error
	DeactivateSubscription(ctx context.Context, userID string, channel model.Channel) error
	ListActiveSubscriptions(ctx context.Context) ([]model.Subscription, error)

	RecordPriceSnapshot(ctx context.Context, p model.HistoricalPrice) error
	HistoricalPrices(ctx context.Context, eventID, section string, limit int) ([]model.HistoricalPrice, error)

	RecordAlert(ctx context.Context, a model.AlertRecord) error
	// LastSuccessfulAlert returns the most recent successful send for
	// (eventID, userID), used by the dispatcher's durable cooldown check.
	LastSuccessfulAlert(ctx context.Context, eventID, userID string) (model.AlertRecord, error)

	UpsertEventGroup(ctx context.Context, g model.EventMatch) error

	AddWatchlistEntry(ctx context.Context, e WatchlistEntry) error
	RemoveWatchlistEntry(ctx context.Context, userID, platform, platformEventID string) error
	ListWatchlist(ctx context.Context, userID string) ([]WatchlistEntry, error)
}
