package dispatch

import (
	"sync"
	"time"

	"github.com/seatsniper/engine/model"
)

// ringRetention is how long the in-memory cooldown ring keeps records.
// It is wider than the cooldown window itself so the fast path can serve
// the 24h alert history view alongside the 30-minute cooldown.
const ringRetention = 24 * time.Hour

// AlertRing is the cheap, in-memory mirror of the durable alert ledger,
// used as the dispatcher's first cooldown check before falling through to
// the authoritative store. It is pruned hourly by the scheduler.
type AlertRing struct {
	mu      sync.RWMutex
	entries []model.AlertRecord
}

// NewAlertRing builds an empty ring.
func NewAlertRing() *AlertRing {
	return &AlertRing{}
}

// Record appends a successful alert to the ring. Failed sends are not
// recorded: they must not suppress a future retry.
func (r *AlertRing) Record(rec model.AlertRecord) {
	if !rec.Success {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, rec)
}

// LastSuccessful returns the most recent successful alert for
// (eventID, userID) in the ring, if any.
func (r *AlertRing) LastSuccessful(eventID, userID string) (model.AlertRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best model.AlertRecord
	found := false
	for _, e := range r.entries {
		if e.EventID != eventID || e.UserID != userID {
			continue
		}
		if !found || e.SentAt.After(best.SentAt) {
			best = e
			found = true
		}
	}
	return best, found
}

// Prune drops entries older than ringRetention relative to now. Called
// hourly by the scheduler's alert-ring prune cycle.
func (r *AlertRing) Prune(now time.Time) {
	cutoff := now.Add(-ringRetention)
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.SentAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	r.entries = kept
}

// Len reports the current ring size, for observability.
func (r *AlertRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
