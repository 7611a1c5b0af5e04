// Package subscription implements the in-memory subscription index the
// alert dispatcher reads and the wizard/pause/resume/deactivate
// operations write, persisted best-effort to the durable store.
package subscription

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/store"
)

// Registry is the read-mostly, safe-for-concurrent-use index of
// subscriptions keyed by (userID, channel). Reads come from the
// dispatcher's hot path; writes come from the wizard and pause/resume/
// deactivate operations, which are comparatively rare.
type Registry struct {
	mu    sync.RWMutex
	byKey map[key]model.Subscription
	st    store.Store
	log   zerolog.Logger
}

type key struct {
	userID  string
	channel model.Channel
}

// New builds a Registry backed by st for persistence. Call Load at
// startup to hydrate it from the durable store.
func New(st store.Store, log zerolog.Logger) *Registry {
	return &Registry{
		byKey: make(map[key]model.Subscription),
		st:    st,
		log:   log.With().Str("component", "subscription_registry").Logger(),
	}
}

// Load hydrates the registry from the durable store's active
// subscriptions. Call once at startup, after the store is connected.
func (r *Registry) Load(ctx context.Context) error {
	subs, err := r.st.ListActiveSubscriptions(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range subs {
		r.byKey[key{s.UserID, s.Channel}] = s
	}
	return nil
}

// Upsert adds or replaces a subscription, persisting it best-effort.
func (r *Registry) Upsert(ctx context.Context, sub model.Subscription) {
	r.mu.Lock()
	r.byKey[key{sub.UserID, sub.Channel}] = sub
	r.mu.Unlock()

	if err := r.st.UpsertSubscription(ctx, sub); err != nil {
		r.log.Warn().Err(err).Str("user_id", sub.UserID).Msg("failed to persist subscription upsert")
	}
}

// Pause mutes a subscription without clearing its settings.
func (r *Registry) Pause(ctx context.Context, userID string, channel model.Channel) {
	r.mutate(ctx, userID, channel, func(s *model.Subscription) { s.Paused = true })
}

// Resume unmutes a previously paused subscription. It never reactivates a
// subscription that was auto-deactivated: deactivation is monotonic.
func (r *Registry) Resume(ctx context.Context, userID string, channel model.Channel) {
	r.mutate(ctx, userID, channel, func(s *model.Subscription) { s.Paused = false })
}

// Deactivate soft-deletes a subscription. Once deactivated, a
// subscription never reactivates within a process lifetime.
func (r *Registry) Deactivate(ctx context.Context, userID string, channel model.Channel) {
	r.mu.Lock()
	sub, ok := r.byKey[key{userID, channel}]
	if ok {
		sub.Active = false
		r.byKey[key{userID, channel}] = sub
	}
	r.mu.Unlock()

	if err := r.st.DeactivateSubscription(ctx, userID, channel); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("failed to persist subscription deactivation")
	}
}

func (r *Registry) mutate(ctx context.Context, userID string, channel model.Channel, fn func(*model.Subscription)) {
	r.mu.Lock()
	sub, ok := r.byKey[key{userID, channel}]
	if !ok {
		r.mu.Unlock()
		return
	}
	fn(&sub)
	r.byKey[key{userID, channel}] = sub
	r.mu.Unlock()

	if err := r.st.UpsertSubscription(ctx, sub); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("failed to persist subscription mutation")
	}
}

// Get returns a copy of the subscription for (userID, channel), if any.
func (r *Registry) Get(userID string, channel model.Channel) (model.Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[key{userID, channel}]
	return s, ok
}

// Dispatchable returns every subscription eligible to receive an alert
// right now (active and not paused). The dispatcher further filters this
// list by city/category/keyword/cooldown/budget.
func (r *Registry) Dispatchable() []model.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Subscription, 0, len(r.byKey))
	for _, s := range r.byKey {
		if s.Dispatchable() {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the total number of subscriptions known to the registry,
// active or not. The scheduler uses this for its skip-empty rule.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
