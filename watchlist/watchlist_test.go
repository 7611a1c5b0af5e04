package watchlist

import (
	"context"
	"testing"

	"github.com/seatsniper/engine/model"
	"github.com/seatsniper/engine/store"
)

func TestAddEnforcesCap(t *testing.T) {
	w := New(store.NewMemory())
	ctx := context.Background()

	for i := 0; i < MaxEntriesPerUser; i++ {
		ev := model.NormalizedEvent{Platform: "stubhub", PlatformID: itoa(i), Name: "Event"}
		if err := w.Add(ctx, "u1", ev, 10); err != nil {
			t.Fatalf("unexpected error at entry %d: %v", i, err)
		}
	}

	overflow := model.NormalizedEvent{Platform: "stubhub", PlatformID: "overflow", Name: "Event"}
	if err := w.Add(ctx, "u1", overflow, 10); err != ErrWatchlistFull {
		t.Fatalf("expected ErrWatchlistFull, got %v", err)
	}
}

func TestReaddingExistingEventNeverCounts(t *testing.T) {
	w := New(store.NewMemory())
	ctx := context.Background()
	ev := model.NormalizedEvent{Platform: "stubhub", PlatformID: "1", Name: "Event"}

	for i := 0; i < MaxEntriesPerUser+5; i++ {
		if err := w.Add(ctx, "u1", ev, float64(i)); err != nil {
			t.Fatalf("unexpected error on repeat add: %v", err)
		}
	}

	entries, err := w.List(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 entry after repeated adds of the same event, got %d", len(entries))
	}
}

func itoa(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return string(b)
}
