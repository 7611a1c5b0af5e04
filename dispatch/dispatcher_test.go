package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/notifier"
	"github.com/seatsniper/engine/store"
	"github.com/seatsniper/engine/subscription"
)

type fakeNotifier struct {
	channel model.Channel
	sent    []notifier.AlertPayload
	result  notifier.SendResult
	err     error
}

func (f *fakeNotifier) Channel() model.Channel { return f.channel }
func (f *fakeNotifier) SendAlert(ctx context.Context, p notifier.AlertPayload) (notifier.SendResult, error) {
	f.sent = append(f.sent, p)
	return f.result, f.err
}

func testEvent() model.NormalizedEvent {
	return model.NormalizedEvent{
		Platform:   "stubhub",
		PlatformID: "evt-1",
		Name:       "Test Show",
		Venue:      model.Venue{Name: "Test Arena", City: "Portland"},
		DateTime:   time.Now().Add(48 * time.Hour),
		Category:   model.CategoryConcerts,
	}
}

func testPick(price float64, score int, qty int) model.ScoredListing {
	return model.ScoredListing{
		Listing: model.NormalizedListing{Platform: "stubhub", Section: "104", Row: "A", PricePerTicket: price, Quantity: qty},
		Score:   model.ValueScoreResult{TotalScore: score, Recommendation: model.RecommendationGood},
	}
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *subscription.Registry, *fakeNotifier) {
	t.Helper()
	st := store.NewMemory()
	subs := subscription.New(st, zerolog.Nop())
	fn := &fakeNotifier{channel: model.ChannelTelegram, result: notifier.SendResult{Success: true, DeliveryStatus: notifier.StatusDelivered}}
	d := New(subs, st, NewAlertRing(), map[model.Channel]notifier.Notifier{model.ChannelTelegram: fn}, nil, nil, zerolog.Nop())
	return d, subs, fn
}

func TestDispatchCooldownSuppressesSecondAlert(t *testing.T) {
	d, subs, fn := newTestDispatcher(t)
	ctx := context.Background()
	subs.Upsert(ctx, model.Subscription{
		UserID: "u1", Channel: model.ChannelTelegram, Active: true,
		Cities: []string{"portland"}, MinScore: 50, MinQuantity: 1,
	})

	event := testEvent()
	d.Dispatch(ctx, event, []model.ScoredListing{testPick(80, 90, 2)})
	d.Dispatch(ctx, event, []model.ScoredListing{testPick(80, 92, 2)})

	if len(fn.sent) != 1 {
		t.Fatalf("expected exactly one alert delivered, got %d", len(fn.sent))
	}
}

func TestDispatchBudgetFilter(t *testing.T) {
	d, subs, fn := newTestDispatcher(t)
	ctx := context.Background()
	subs.Upsert(ctx, model.Subscription{
		UserID: "u1", Channel: model.ChannelTelegram, Active: true,
		Cities: []string{"portland"}, MinScore: 50, MinQuantity: 1, MaxPricePerTicket: 100,
	})

	event := testEvent()
	d.Dispatch(ctx, event, []model.ScoredListing{testPick(150, 95, 2), testPick(80, 90, 2)})

	if len(fn.sent) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(fn.sent))
	}
	if len(fn.sent[0].TopPicks) != 1 || fn.sent[0].TopPicks[0].Listing.PricePerTicket != 80 {
		t.Fatalf("expected only the $80 listing in the payload, got %+v", fn.sent[0].TopPicks)
	}
}

func TestDispatchPausedSubscriptionGetsNoAlert(t *testing.T) {
	d, subs, fn := newTestDispatcher(t)
	ctx := context.Background()
	subs.Upsert(ctx, model.Subscription{
		UserID: "u1", Channel: model.ChannelTelegram, Active: true, Paused: true,
		Cities: []string{"portland"}, MinScore: 50, MinQuantity: 1,
	})

	d.Dispatch(ctx, testEvent(), []model.ScoredListing{testPick(80, 90, 2)})

	if len(fn.sent) != 0 {
		t.Fatalf("expected zero alerts for paused subscription, got %d", len(fn.sent))
	}
	if _, ok := subs.Get("u1", model.ChannelTelegram); !ok {
		t.Fatal("paused subscription must remain in the registry")
	}
}

func TestDispatchAutoDeactivatesOnHardFailure(t *testing.T) {
	d, subs, fn := newTestDispatcher(t)
	ctx := context.Background()
	subs.Upsert(ctx, model.Subscription{
		UserID: "u1", Channel: model.ChannelTelegram, Active: true,
		Cities: []string{"portland"}, MinScore: 50, MinQuantity: 1,
	})
	fn.result = notifier.SendResult{Success: false, Error: "Forbidden: bot was blocked by the user", DeliveryStatus: notifier.StatusFailed}

	d.Dispatch(ctx, testEvent(), []model.ScoredListing{testPick(80, 90, 2)})

	sub, ok := subs.Get("u1", model.ChannelTelegram)
	if !ok || sub.Active {
		t.Fatal("expected subscription to be auto-deactivated after a hard failure")
	}

	// Next cycle: dispatch again, should not even attempt a send.
	fn.sent = nil
	d.Dispatch(ctx, testEvent(), []model.ScoredListing{testPick(80, 90, 2)})
	if len(fn.sent) != 0 {
		t.Fatalf("expected no further sends to a deactivated subscription, got %d", len(fn.sent))
	}
}

func TestDispatchWrongCityFiltered(t *testing.T) {
	d, subs, fn := newTestDispatcher(t)
	ctx := context.Background()
	subs.Upsert(ctx, model.Subscription{
		UserID: "u1", Channel: model.ChannelTelegram, Active: true,
		Cities: []string{"seattle"}, MinScore: 50, MinQuantity: 1,
	})

	d.Dispatch(ctx, testEvent(), []model.ScoredListing{testPick(80, 90, 2)})
	if len(fn.sent) != 0 {
		t.Fatalf("expected zero alerts for non-matching city, got %d", len(fn.sent))
	}
}
