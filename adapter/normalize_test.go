package adapter

import (
	"testing"
	"time"

	"github.com/seatsniper/engine/model"
)

func TestResolveDateTimeOrder(t *testing.T) {
	tests := []struct {
		name      string
		utc       string
		localDate string
		localTime string
		human     string
		want      string
		wantOK    bool
	}{
		{"utc field wins", "2026-09-01T19:30:00Z", "2026-09-02", "20:00:00", "", "2026-09-01T19:30:00Z", true},
		{"local date plus time", "", "2026-09-02", "20:00:00", "", "2026-09-02T20:00:00Z", true},
		{"local date defaults to 19:00", "", "2026-09-02", "", "", "2026-09-02T19:00:00Z", true},
		{"human string fallback", "", "", "", "January 2, 2027", "2027-01-02T00:00:00Z", true},
		{"nothing resolvable", "", "", "", "next friday probably", "", false},
		{"empty everything", "", "", "", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveDateTime(tc.utc, tc.localDate, tc.localTime, tc.human)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			want, err := time.Parse(time.RFC3339, tc.want)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(want) {
				t.Fatalf("got %v, want %v", got, want)
			}
		})
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		classification string
		want           model.Category
	}{
		{"Sports Basketball", model.CategorySports},
		{"Arts & Theatre Musical", model.CategoryTheater},
		{"Comedy Stand-Up", model.CategoryComedy},
		{"Music Rock", model.CategoryConcerts},
		{"Festival", model.CategoryFestivals},
		{"", model.CategoryConcerts},
		{"something unrecognizable", model.CategoryConcerts},
	}
	for _, tc := range tests {
		if got := InferCategory(tc.classification); got != tc.want {
			t.Errorf("InferCategory(%q) = %q, want %q", tc.classification, got, tc.want)
		}
	}
}

func TestInferDeliveryTypeFirstMatchWins(t *testing.T) {
	tests := []struct {
		desc string
		want model.DeliveryType
	}{
		{"Instant Download", model.DeliveryInstant},
		{"Mobile Entry", model.DeliveryInstant},
		{"Electronic Ticket", model.DeliveryElectronic},
		{"UPS 2-day", model.DeliveryPhysical},
		{"Will Call window", model.DeliveryWillCall},
		{"", model.DeliveryElectronic},
		{"carrier pigeon", model.DeliveryElectronic},
	}
	for _, tc := range tests {
		if got := InferDeliveryType(tc.desc); got != tc.want {
			t.Errorf("InferDeliveryType(%q) = %q, want %q", tc.desc, got, tc.want)
		}
	}
}

func TestPriceRangeRequiresBothBoundsPositive(t *testing.T) {
	if got := PriceRangeFrom(0, 100, "USD"); got != nil {
		t.Fatalf("expected nil range with zero lower bound, got %+v", got)
	}
	if got := PriceRangeFrom(25, 0, "USD"); got != nil {
		t.Fatalf("expected nil range with zero upper bound, got %+v", got)
	}
	got := PriceRangeFrom(25, 100, "USD")
	if got == nil || got.Min != 25 || got.Max != 100 {
		t.Fatalf("expected a populated range, got %+v", got)
	}
}
