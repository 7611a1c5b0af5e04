package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/adapter"
	"github.com/seatsniper/engine/dispatch"
	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/notifier"
	"github.com/seatsniper/engine/scoring"
	"github.com/seatsniper/engine/store"
	"github.com/seatsniper/engine/subscription"
)

type fakeAdapter struct {
	name          string
	searchErr     error
	searchDelay   time.Duration
	events        []model.NormalizedEvent
	listings      map[string][]model.NormalizedListing
	searchCalls   int32
	listingsCalls int32
}

func (f *fakeAdapter) Name() string                          { return f.name }
func (f *fakeAdapter) Initialize(ctx context.Context) error   { return nil }
func (f *fakeAdapter) HealthStatus() adapter.HealthStatus     { return adapter.HealthStatus{Healthy: true} }
func (f *fakeAdapter) SearchEvents(ctx context.Context, p adapter.SearchParams) ([]model.NormalizedEvent, error) {
	atomic.AddInt32(&f.searchCalls, 1)
	if f.searchDelay > 0 {
		time.Sleep(f.searchDelay)
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.events, nil
}
func (f *fakeAdapter) GetEventListings(ctx context.Context, platformEventID string) ([]model.NormalizedListing, error) {
	atomic.AddInt32(&f.listingsCalls, 1)
	return f.listings[platformEventID], nil
}

func newTestScheduler(t *testing.T, cities []string, adapters ...adapter.Adapter) (*Scheduler, *store.Memory, *subscription.Registry) {
	t.Helper()
	reg := adapter.NewRegistry()
	for _, a := range adapters {
		reg.Register(a)
	}
	st := store.NewMemory()
	subs := subscription.New(st, zerolog.Nop())
	engine := scoring.MustNewEngine(scoring.DefaultWeights())
	ring := dispatch.NewAlertRing()
	disp := dispatch.New(subs, st, ring, map[model.Channel]notifier.Notifier{}, nil, nil, zerolog.Nop())

	cfg := Config{Cities: cities}
	s := New(cfg, reg, subs, st, engine, disp, ring, zerolog.Nop())
	return s, st, subs
}

func TestDiscoveryIsolatesAdapterFailures(t *testing.T) {
	good := &fakeAdapter{name: "good", events: []model.NormalizedEvent{
		{Platform: "good", PlatformID: "1", Name: "Show", Venue: model.Venue{City: "Portland"}, DateTime: time.Now().Add(48 * time.Hour)},
	}}
	bad := &fakeAdapter{name: "bad", searchErr: errors.New("upstream 500")}

	s, _, _ := newTestScheduler(t, []string{"portland"}, good, bad)
	s.runDiscovery(context.Background())

	if s.TrackedEventCount() != 1 {
		t.Fatalf("expected 1 tracked event despite the failing adapter, got %d", s.TrackedEventCount())
	}
	if atomic.LoadInt32(&bad.searchCalls) != 1 {
		t.Fatalf("expected the failing adapter to still be called once, got %d", bad.searchCalls)
	}
}

func TestCycleOverlapGuardSkipsConcurrentEntry(t *testing.T) {
	s, _, _ := newTestScheduler(t, []string{"portland"})

	if !s.enterCycle("discovery") {
		t.Fatal("expected first entry to succeed")
	}
	if s.enterCycle("discovery") {
		t.Fatal("expected second concurrent entry to be rejected")
	}
	s.exitCycle("discovery")
	if !s.enterCycle("discovery") {
		t.Fatal("expected entry to succeed again after exit")
	}
}

func TestListingsCycleSkipsWhenNoSubscriptions(t *testing.T) {
	calls := int32(0)
	a := &fakeAdapter{name: "good", listings: map[string][]model.NormalizedListing{}}
	s, _, _ := newTestScheduler(t, []string{"portland"}, a)

	s.mu.Lock()
	s.trackedEvents[model.EventKey{Platform: "good", PlatformID: "1"}] = &model.TrackedEvent{
		Event: model.NormalizedEvent{Platform: "good", PlatformID: "1", DateTime: time.Now().Add(24 * time.Hour)},
	}
	s.mu.Unlock()

	s.runListingsCycle(context.Background(), model.TierHigh)

	if atomic.LoadInt32(&a.listingsCalls) != calls {
		t.Fatalf("expected zero GetEventListings calls with no subscriptions, got %d", a.listingsCalls)
	}
}

func TestPastEventsArePruned(t *testing.T) {
	s, _, _ := newTestScheduler(t, []string{"portland"})

	pastKey := model.EventKey{Platform: "good", PlatformID: "old"}
	futureKey := model.EventKey{Platform: "good", PlatformID: "new"}

	now := time.Now()
	s.mu.Lock()
	s.trackedEvents[pastKey] = &model.TrackedEvent{Event: model.NormalizedEvent{Platform: "good", PlatformID: "old", DateTime: now.Add(-48 * time.Hour)}}
	s.trackedEvents[futureKey] = &model.TrackedEvent{Event: model.NormalizedEvent{Platform: "good", PlatformID: "new", DateTime: now.Add(48 * time.Hour)}}
	s.mu.Unlock()

	s.prunePastEvents(now)

	if s.TrackedEventCount() != 1 {
		t.Fatalf("expected exactly 1 tracked event to survive pruning, got %d", s.TrackedEventCount())
	}
	s.mu.RLock()
	_, stillThere := s.trackedEvents[futureKey]
	s.mu.RUnlock()
	if !stillThere {
		t.Fatal("expected the future event to survive pruning")
	}
}

func TestScanCityIsolatesAdapterOutage(t *testing.T) {
	good := &fakeAdapter{
		name: "good",
		events: []model.NormalizedEvent{
			{Platform: "good", PlatformID: "1", Name: "Show", Venue: model.Venue{City: "Portland"}, DateTime: time.Now().Add(48 * time.Hour)},
		},
		listings: map[string][]model.NormalizedListing{
			"1": {{Platform: "good", PlatformListingID: "l1", EventID: "1", Section: "104", Row: "A", Quantity: 2, PricePerTicket: 80}},
		},
	}
	bad := &fakeAdapter{name: "bad", searchErr: errors.New("upstream down")}

	s, _, _ := newTestScheduler(t, []string{"portland"}, good, bad)
	results := s.ScanCity(context.Background(), "portland")

	if len(results) != 1 {
		t.Fatalf("expected the healthy adapter's event despite the outage, got %d results", len(results))
	}
	if len(results[0].Listings) == 0 {
		t.Fatal("expected the sampled event to carry scored listings")
	}
}

func TestScanCitySamplesOnlyFirstEventsForListings(t *testing.T) {
	events := make([]model.NormalizedEvent, 5)
	listings := make(map[string][]model.NormalizedListing, 5)
	for i := range events {
		id := string(rune('1' + i))
		events[i] = model.NormalizedEvent{Platform: "good", PlatformID: id, Name: "Show " + id, DateTime: time.Now().Add(time.Duration(i+1) * 24 * time.Hour)}
		listings[id] = []model.NormalizedListing{{Platform: "good", PlatformListingID: "l" + id, EventID: id, Quantity: 2, PricePerTicket: 50}}
	}
	a := &fakeAdapter{name: "good", events: events, listings: listings}

	s, _, _ := newTestScheduler(t, []string{"portland"}, a)
	results := s.ScanCity(context.Background(), "portland")

	if len(results) != 5 {
		t.Fatalf("expected all 5 events returned, got %d", len(results))
	}
	if got := atomic.LoadInt32(&a.listingsCalls); got != int32(s.cfg.ScanSampleSize) {
		t.Fatalf("expected listings fetched for the first %d events only, got %d calls", s.cfg.ScanSampleSize, got)
	}
}

func TestEmptyListingsStillUpdatesBookkeeping(t *testing.T) {
	a := &fakeAdapter{name: "good", listings: map[string][]model.NormalizedListing{}}
	s, _, subs := newTestScheduler(t, []string{"portland"}, a)
	subs.Upsert(context.Background(), model.Subscription{
		UserID: "u1", Channel: model.ChannelTelegram, Active: true,
		Cities: []string{"portland"}, MinScore: 50, MinQuantity: 1,
	})

	te := &model.TrackedEvent{
		Event:            model.NormalizedEvent{Platform: "good", PlatformID: "1", DateTime: time.Now().Add(24 * time.Hour)},
		LastListingCount: 7,
	}
	s.mu.Lock()
	s.trackedEvents[te.Event.Key()] = te
	s.mu.Unlock()

	s.runListingsCycle(context.Background(), model.TierHigh)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if te.LastListingCount != 0 {
		t.Fatalf("expected lastListingCount reset to 0 on an empty poll, got %d", te.LastListingCount)
	}
	if te.LastPolled.IsZero() {
		t.Fatal("expected lastPolled to be stamped on an empty poll")
	}
}

func TestSectionRowCountsUsesDeepestSeenRow(t *testing.T) {
	listings := []model.NormalizedListing{
		{Section: "104", Row: "A"},
		{Section: "104", Row: "M"},
		{Section: "104", Row: "C"},
		{Section: "GA Floor", Row: "GA"},
		{Section: "305", Row: "???"},
	}
	counts := sectionRowCounts(listings)

	if counts["104"] != 13 {
		t.Fatalf(`expected section 104 depth 13 (row M), got %d`, counts["104"])
	}
	if counts["GA Floor"] != 1 {
		t.Fatalf("expected GA section depth 1, got %d", counts["GA Floor"])
	}
	if counts["305"] != 0 {
		t.Fatalf("expected unparseable rows to contribute no depth, got %d", counts["305"])
	}
}

func TestFanOutSearchJoinsAllCitiesAndAdapters(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	a1 := &fakeAdapter{name: "a1"}
	a2 := &fakeAdapter{name: "a2"}
	s, _, _ := newTestScheduler(t, []string{"portland", "seattle"}, a1, a2)

	_ = s.fanOutSearch(context.Background(), time.Now())

	mu.Lock()
	defer mu.Unlock()
	_ = seen // fan-out correctness is verified via call counts below
	if atomic.LoadInt32(&a1.searchCalls) != 2 || atomic.LoadInt32(&a2.searchCalls) != 2 {
		t.Fatalf("expected each adapter called once per city, got a1=%d a2=%d", a1.searchCalls, a2.searchCalls)
	}
}
