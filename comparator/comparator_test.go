package comparator

import (
	"testing"

	"github.com/seatsniper/engine/model"
)

func listing(platform, section string, price float64) model.NormalizedListing {
	return model.NormalizedListing{Platform: platform, Section: section, PricePerTicket: price, Quantity: 1}
}

func TestCompareRequiresTwoPlatforms(t *testing.T) {
	result := Compare(PlatformListings{
		"stubhub": {listing("stubhub", "104", 100)},
	})
	if len(result.Sections) != 0 || result.HasDeal {
		t.Fatal("single-platform input must return an empty result")
	}
}

func TestCompareFindsBestDeal(t *testing.T) {
	result := Compare(PlatformListings{
		"stubhub":    {listing("stubhub", "Section 104", 120), listing("stubhub", "GA", 60)},
		"seatgeek":   {listing("seatgeek", "Sec. 104", 90)},
		"ticketmaster": {listing("ticketmaster", "GA Floor", 55)},
	})
	if !result.HasDeal {
		t.Fatal("expected a best deal")
	}
	if result.BestDeal.Listing.PricePerTicket != 55 {
		t.Errorf("expected best deal 55, got %.2f", result.BestDeal.Listing.PricePerTicket)
	}
	// "Section 104" and "Sec. 104" merge; "GA" and "GA Floor" normalize to
	// "general admission" and "general admission floor", which stay apart.
	if len(result.Sections) != 3 {
		t.Fatalf("expected 3 normalized sections, got %d: %+v", len(result.Sections), result.Sections)
	}
}

func TestCompareSectionSavings(t *testing.T) {
	result := Compare(PlatformListings{
		"a": {listing("a", "104", 100)},
		"b": {listing("b", "104", 80)},
	})
	var sec model.SectionComparison
	for _, s := range result.Sections {
		sec = s
	}
	if sec.Savings != 20 {
		t.Errorf("expected savings 20, got %.2f", sec.Savings)
	}
	// Savings are a share of the next-cheapest price: 20 / 100.
	if sec.SavingsPercent != 20 {
		t.Errorf("expected 20%% savings, got %d", sec.SavingsPercent)
	}
}
