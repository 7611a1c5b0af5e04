// End-to-end pipeline test: a fake marketplace adapter feeds the real
// scheduler, scoring engine, and dispatcher, and a fake notifier captures
// what a subscriber would receive. Everything runs in-process against the
// in-memory store; no external services are needed.
package integration_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/adapter"
	"github.com/seatsniper/engine/dispatch"
	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/notifier"
	"github.com/seatsniper/engine/scheduler"
	"github.com/seatsniper/engine/scoring"
	"github.com/seatsniper/engine/store"
	"github.com/seatsniper/engine/subscription"
)

type pipelineAdapter struct {
	events   []model.NormalizedEvent
	listings map[string][]model.NormalizedListing
}

func (p *pipelineAdapter) Name() string                        { return "fakemarket" }
func (p *pipelineAdapter) Initialize(ctx context.Context) error { return nil }
func (p *pipelineAdapter) HealthStatus() adapter.HealthStatus   { return adapter.HealthStatus{Healthy: true} }
func (p *pipelineAdapter) SearchEvents(ctx context.Context, params adapter.SearchParams) ([]model.NormalizedEvent, error) {
	return p.events, nil
}
func (p *pipelineAdapter) GetEventListings(ctx context.Context, platformEventID string) ([]model.NormalizedListing, error) {
	return p.listings[platformEventID], nil
}

type capturingNotifier struct {
	mu   sync.Mutex
	sent []notifier.AlertPayload
}

func (c *capturingNotifier) Channel() model.Channel { return model.ChannelTelegram }
func (c *capturingNotifier) SendAlert(ctx context.Context, payload notifier.AlertPayload) (notifier.SendResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, payload)
	return notifier.SendResult{Success: true, DeliveryStatus: notifier.StatusDelivered}, nil
}

func (c *capturingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func TestPipelineDiscoveryToAlert(t *testing.T) {
	eventDate := time.Now().Add(48 * time.Hour)
	fake := &pipelineAdapter{
		events: []model.NormalizedEvent{{
			Platform:   "fakemarket",
			PlatformID: "evt-1",
			Name:       "Big Show",
			Venue:      model.Venue{Name: "Test Arena", City: "Portland", State: "OR"},
			DateTime:   eventDate,
			Category:   model.CategoryConcerts,
		}},
		listings: map[string][]model.NormalizedListing{
			"evt-1": {
				{Platform: "fakemarket", PlatformListingID: "l1", EventID: "evt-1", Section: "Floor", Row: "A", Quantity: 2, PricePerTicket: 40},
				{Platform: "fakemarket", PlatformListingID: "l2", EventID: "evt-1", Section: "305", Row: "M", Quantity: 2, PricePerTicket: 120},
				{Platform: "fakemarket", PlatformListingID: "l3", EventID: "evt-1", Section: "310", Row: "N", Quantity: 2, PricePerTicket: 120},
			},
		},
	}

	reg := adapter.NewRegistry()
	reg.Register(fake)

	st := store.NewMemory()
	subs := subscription.New(st, zerolog.Nop())
	subs.Upsert(context.Background(), model.Subscription{
		UserID: "u1", Channel: model.ChannelTelegram, Active: true,
		Cities: []string{"portland"}, MinScore: 60, MinQuantity: 1,
	})

	cn := &capturingNotifier{}
	ring := dispatch.NewAlertRing()
	disp := dispatch.New(subs, st, ring, map[model.Channel]notifier.Notifier{model.ChannelTelegram: cn}, nil, nil, zerolog.Nop())

	sched := scheduler.New(scheduler.Config{
		Cities:            []string{"portland"},
		DiscoveryInterval: time.Hour, // runs once at startup; the ticker never fires in-test
		HighTierInterval:  20 * time.Millisecond,
	}, reg, subs, st, scoring.MustNewEngine(scoring.DefaultWeights()), disp, ring, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for cn.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if cn.count() == 0 {
		t.Fatal("expected the pipeline to deliver at least one alert")
	}

	// Further high-tier cycles keep firing, but the (event, user) cooldown
	// must suppress every one of them inside the window.
	time.Sleep(150 * time.Millisecond)
	if got := cn.count(); got != 1 {
		t.Fatalf("expected cooldown to hold the alert count at 1, got %d", got)
	}

	cn.mu.Lock()
	payload := cn.sent[0]
	cn.mu.Unlock()
	if payload.EventName != "Big Show" {
		t.Fatalf("unexpected event in alert payload: %q", payload.EventName)
	}
	if len(payload.TopPicks) == 0 || payload.TopPicks[0].Listing.PricePerTicket != 40 {
		t.Fatalf("expected the $40 bargain to lead the top picks, got %+v", payload.TopPicks)
	}

	if sched.TrackedEventCount() != 1 {
		t.Fatalf("expected 1 tracked event after discovery, got %d", sched.TrackedEventCount())
	}
}
