// Package watchlist implements the per-user watchlist: an explicit set
// of individually tracked events, capped at 50 per user. The
// durable store is primary; store.Fallback handles the DB-then-memory
// degradation transparently, so this package only enforces the cap and
// shapes the domain API.
package watchlist

import (
	"context"
	"fmt"

	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/store"
)

// MaxEntriesPerUser is the per-user watchlist cap.
const MaxEntriesPerUser = 50

// Watchlist is a thin domain wrapper around a store.Store (typically a
// *store.Fallback) enforcing the per-user entry cap.
type Watchlist struct {
	st store.Store
}

// New builds a Watchlist backed by st.
func New(st store.Store) *Watchlist {
	return &Watchlist{st: st}
}

// ErrWatchlistFull is returned by Add once a user already has
// MaxEntriesPerUser entries.
var ErrWatchlistFull = fmt.Errorf("watchlist: at capacity (%d entries)", MaxEntriesPerUser)

// Add tracks event for userID, rejecting the add once the user is at
// MaxEntriesPerUser. Re-adding an already-tracked event is an update, not
// a new entry, so it never counts against the cap.
func (w *Watchlist) Add(ctx context.Context, userID string, event model.NormalizedEvent, lastSeenPrice float64) error {
	existing, err := w.st.ListWatchlist(ctx, userID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Platform == event.Platform && e.PlatformEventID == event.PlatformID {
			return w.st.AddWatchlistEntry(ctx, store.WatchlistEntry{
				UserID: userID, Platform: event.Platform, PlatformEventID: event.PlatformID,
				EventName: event.Name, LastSeenPrice: lastSeenPrice,
			})
		}
	}
	if len(existing) >= MaxEntriesPerUser {
		return ErrWatchlistFull
	}
	return w.st.AddWatchlistEntry(ctx, store.WatchlistEntry{
		UserID: userID, Platform: event.Platform, PlatformEventID: event.PlatformID,
		EventName: event.Name, LastSeenPrice: lastSeenPrice,
	})
}

// Remove stops tracking (platform, platformEventID) for userID.
func (w *Watchlist) Remove(ctx context.Context, userID, platform, platformEventID string) error {
	return w.st.RemoveWatchlistEntry(ctx, userID, platform, platformEventID)
}

// List returns every event userID is tracking.
func (w *Watchlist) List(ctx context.Context, userID string) ([]store.WatchlistEntry, error) {
	return w.st.ListWatchlist(ctx, userID)
}

// UpdatePrice refreshes the last-seen price for a tracked event. It is an
// upsert: an event not yet tracked is added without the cap check.
func (w *Watchlist) UpdatePrice(ctx context.Context, userID, platform, platformEventID, eventName string, price float64) error {
	return w.st.AddWatchlistEntry(ctx, store.WatchlistEntry{
		UserID: userID, Platform: platform, PlatformEventID: platformEventID,
		EventName: eventName, LastSeenPrice: price,
	})
}
