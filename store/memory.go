package store

import (
	"context"
	"sort"
	"sync"

	"github.com/seatsniper/engine/model"
)

// Memory is a process-local Store used both in tests and as the fallback
// behind Postgres when the database is unavailable. Its keys mirror the
// Postgres schema exactly so a restart onto a healthy database is a clean
// cutover rather than a migration.
type Memory struct {
	mu sync.RWMutex

	subscriptions map[subKey]model.Subscription
	prices        map[string][]model.HistoricalPrice // eventID -> points, newest last
	alerts        map[alertKey]model.AlertRecord      // latest successful send per (event,user)
	groups        map[string]model.EventMatch
	watchlist     map[string][]WatchlistEntry // userID -> entries
}

type subKey struct {
	userID  string
	channel model.Channel
}

type alertKey struct {
	eventID string
	userID  string
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		subscriptions: make(map[subKey]model.Subscription),
		prices:        make(map[string][]model.HistoricalPrice),
		alerts:        make(map[alertKey]model.AlertRecord),
		groups:        make(map[string]model.EventMatch),
		watchlist:     make(map[string][]WatchlistEntry),
	}
}

func (m *Memory) Init(ctx context.Context) error { return nil }
func (m *Memory) Close()                         {}

func (m *Memory) UpsertSubscription(ctx context.Context, sub model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[subKey{sub.UserID, sub.Channel}] = sub
	return nil
}

func (m *Memory) DeactivateSubscription(ctx context.Context, userID string, channel model.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subKey{userID, channel}
	sub, ok := m.subscriptions[key]
	if !ok {
		return ErrNotFound
	}
	sub.Active = false
	m.subscriptions[key] = sub
	return nil
}

func (m *Memory) ListActiveSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Subscription, 0, len(m.subscriptions))
	for _, s := range m.subscriptions {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) RecordPriceSnapshot(ctx context.Context, p model.HistoricalPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[p.EventID] = append(m.prices[p.EventID], p)
	return nil
}

func (m *Memory) HistoricalPrices(ctx context.Context, eventID, section string, limit int) ([]model.HistoricalPrice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.prices[eventID]
	out := make([]model.HistoricalPrice, 0, len(all))
	for _, p := range all {
		if section == "" || p.Section == section {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt > out[j].RecordedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) RecordAlert(ctx context.Context, a model.AlertRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !a.Success {
		return nil
	}
	key := alertKey{a.EventID, a.UserID}
	if existing, ok := m.alerts[key]; ok && existing.SentAt.After(a.SentAt) {
		return nil
	}
	m.alerts[key] = a
	return nil
}

func (m *Memory) LastSuccessfulAlert(ctx context.Context, eventID, userID string) (model.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.alerts[alertKey{eventID, userID}]
	if !ok {
		return model.AlertRecord{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) UpsertEventGroup(ctx context.Context, g model.EventMatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[g.GroupID] = g
	return nil
}

func (m *Memory) AddWatchlistEntry(ctx context.Context, e WatchlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.watchlist[e.UserID]
	for i, existing := range entries {
		if existing.Platform == e.Platform && existing.PlatformEventID == e.PlatformEventID {
			entries[i] = e
			return nil
		}
	}
	m.watchlist[e.UserID] = append(entries, e)
	return nil
}

func (m *Memory) RemoveWatchlistEntry(ctx context.Context, userID, platform, platformEventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.watchlist[userID]
	for i, e := range entries {
		if e.Platform == platform && e.PlatformEventID == platformEventID {
			m.watchlist[userID] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListWatchlist(ctx context.Context, userID string) ([]WatchlistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]WatchlistEntry, len(m.watchlist[userID]))
	copy(out, m.watchlist[userID])
	return out, nil
}
