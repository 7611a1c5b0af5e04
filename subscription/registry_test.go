package subscription

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/store"
)

func newTestRegistry() *Registry {
	return New(store.NewMemory(), zerolog.Nop())
}

func TestPausedSubscriptionNotDispatchable(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	sub := model.Subscription{UserID: "u1", Channel: model.ChannelTelegram, Active: true, Cities: []string{"portland"}}
	r.Upsert(ctx, sub)
	r.Pause(ctx, "u1", model.ChannelTelegram)

	if got := r.Dispatchable(); len(got) != 0 {
		t.Fatalf("expected zero dispatchable subscriptions while paused, got %d", len(got))
	}

	if _, ok := r.Get("u1", model.ChannelTelegram); !ok {
		t.Fatal("paused subscription should still be present in the registry")
	}
}

func TestDeactivationIsMonotonic(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	sub := model.Subscription{UserID: "u1", Channel: model.ChannelSMS, Active: true}
	r.Upsert(ctx, sub)
	r.Deactivate(ctx, "u1", model.ChannelSMS)

	// A later Resume (mute toggle) must not reactivate a deactivated sub.
	r.Resume(ctx, "u1", model.ChannelSMS)

	got, ok := r.Get("u1", model.ChannelSMS)
	if !ok {
		t.Fatal("expected subscription to still exist")
	}
	if got.Active {
		t.Fatal("deactivation must be monotonic: Resume must not flip Active back to true")
	}
}

func TestDispatchableFiltersInactiveAndPaused(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	r.Upsert(ctx, model.Subscription{UserID: "active", Channel: model.ChannelTelegram, Active: true})
	r.Upsert(ctx, model.Subscription{UserID: "inactive", Channel: model.ChannelTelegram, Active: false})
	r.Upsert(ctx, model.Subscription{UserID: "paused", Channel: model.ChannelTelegram, Active: true, Paused: true})

	got := r.Dispatchable()
	if len(got) != 1 || got[0].UserID != "active" {
		t.Fatalf("expected exactly the active, unpaused subscription, got %+v", got)
	}
}
