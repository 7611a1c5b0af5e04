package matching

import (
	"testing"
	"time"

	"github.com/seatsniper/engine/model"
)

func TestMatchCrossPlatformBlazersLakers(t *testing.T) {
	base := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	events := []model.NormalizedEvent{
		{
			Platform:   "ticketmaster",
			PlatformID: "tm-1",
			Name:       "Blazers vs Lakers",
			Venue:      model.Venue{Name: "Moda Center", City: "Portland"},
			DateTime:   base,
		},
		{
			Platform:   "stubhub",
			PlatformID: "sh-1",
			Name:       "Portland Trail Blazers v. LA Lakers tickets",
			Venue:      model.Venue{Name: "Rose Garden Arena", City: "Portland"},
			DateTime:   base.Add(10 * time.Minute),
		},
	}

	groups := Match(events)
	if len(groups) != 1 {
		t.Fatalf("expected exactly one group, got %d", len(groups))
	}
	g := groups[0]
	if len(g.Events) != 2 {
		t.Fatalf("expected 2 members, got %d", len(g.Events))
	}
	if g.Confidence < 85 {
		t.Errorf("expected confidence >= 85, got %d", g.Confidence)
	}
	if _, ok := g.Events["ticketmaster"]; !ok {
		t.Error("missing ticketmaster member")
	}
	if _, ok := g.Events["stubhub"]; !ok {
		t.Error("missing stubhub member")
	}
}

func TestMatchNeverMergesSamePlatform(t *testing.T) {
	base := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	events := []model.NormalizedEvent{
		{Platform: "ticketmaster", PlatformID: "tm-1", Name: "Blazers vs Lakers", Venue: model.Venue{Name: "Moda Center"}, DateTime: base},
		{Platform: "ticketmaster", PlatformID: "tm-2", Name: "Blazers vs Lakers", Venue: model.Venue{Name: "Moda Center"}, DateTime: base},
	}
	if groups := Match(events); len(groups) != 0 {
		t.Fatalf("expected no groups for same-platform duplicates, got %d", len(groups))
	}
}

func TestMatchRequiresTwoPlatforms(t *testing.T) {
	base := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	events := []model.NormalizedEvent{
		{Platform: "ticketmaster", PlatformID: "tm-1", Name: "Solo Event", Venue: model.Venue{Name: "Arena"}, DateTime: base},
	}
	if groups := Match(events); len(groups) != 0 {
		t.Fatalf("single-platform event should never form a group, got %d", len(groups))
	}
}

func TestMatchRejectsTimeBeyondThreshold(t *testing.T) {
	base := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	events := []model.NormalizedEvent{
		{Platform: "a", PlatformID: "1", Name: "Same Name Event", Venue: model.Venue{Name: "Arena"}, DateTime: base},
		{Platform: "b", PlatformID: "2", Name: "Same Name Event", Venue: model.Venue{Name: "Arena"}, DateTime: base.Add(90 * time.Minute)},
	}
	if groups := Match(events); len(groups) != 0 {
		t.Fatalf("expected no match beyond 30 minute window, got %d", len(groups))
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	in := "Blazers VS. Lakers Live Tickets"
	once := NormalizeName(in)
	twice := NormalizeName(once)
	if once != twice {
		t.Errorf("NormalizeName not idempotent: %q != %q", once, twice)
	}
}

func TestVenueCanonicalIdempotent(t *testing.T) {
	in := "rose garden arena"
	once := VenueCanonical(in)
	twice := VenueCanonical(once)
	if once != twice {
		t.Errorf("VenueCanonical not idempotent: %q != %q", once, twice)
	}
}

func TestNormalizeSectionIdempotent(t *testing.T) {
	cases := []string{"Sec. 104, Row A", "GA Floor", "Section 12"}
	for _, c := range cases {
		once := NormalizeSection(c)
		twice := NormalizeSection(once)
		if once != twice {
			t.Errorf("NormalizeSection(%q) not idempotent: %q != %q", c, once, twice)
		}
	}
}
