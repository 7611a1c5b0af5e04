package wizard

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestPutGetRoundTripsOnFallback(t *testing.T) {
	s := NewStore(nil, zerolog.Nop())
	ctx := context.Background()

	sess := Session{ChatID: "chat1", Step: StepAwaitingCity, SelectedCities: []string{"portland"}}
	if err := s.Put(ctx, sess); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok := s.Get(ctx, "chat1")
	if !ok {
		t.Fatal("expected session to be found")
	}
	if got.Step != StepAwaitingCity || len(got.SelectedCities) != 1 || got.SelectedCities[0] != "portland" {
		t.Fatalf("unexpected round-tripped session: %+v", got)
	}
}

func TestGetMissingReturnsFalse(t *testing.T) {
	s := NewStore(nil, zerolog.Nop())
	if _, ok := s.Get(context.Background(), "nope"); ok {
		t.Fatal("expected no session for unknown chat id")
	}
}

func TestClearRemovesSession(t *testing.T) {
	s := NewStore(nil, zerolog.Nop())
	ctx := context.Background()

	if err := s.Put(ctx, Session{ChatID: "chat2", Step: StepAwaitingBudget}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(ctx, "chat2"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get(ctx, "chat2"); ok {
		t.Fatal("expected session to be gone after Clear")
	}
}

func TestPruneExpiredRemovesStaleFallbackEntries(t *testing.T) {
	s := NewStore(nil, zerolog.Nop())
	ctx := context.Background()
	if err := s.Put(ctx, Session{ChatID: "chat3", Step: StepIdle}); err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	entry := s.fallback["chat3"]
	entry.expiresAt = entry.expiresAt.Add(-2 * SessionTTL)
	s.fallback["chat3"] = entry
	s.mu.Unlock()

	s.pruneExpired()

	if _, ok := s.Get(ctx, "chat3"); ok {
		t.Fatal("expected expired session to be pruned")
	}
}
