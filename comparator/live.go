package comparator

import (
	"context"
	"fmt"

	"github.com/seatsniper/engine/adapter"
	"github.com/seatsniper/engine/model"
)

// MatchLookup resolves an event key to the cross-platform group it
// belongs to, if the matcher has found one.
type MatchLookup interface {
	MatchContaining(key model.EventKey) (model.EventMatch, bool)
}

// Live implements dispatch.Comparator by fetching each matched platform's
// current listings and running Compare over them. Every fetch is
// best-effort: a single platform erroring just narrows the comparison.
type Live struct {
	registry *adapter.Registry
	matches  MatchLookup
}

// NewLive builds a Live comparator.
func NewLive(registry *adapter.Registry, matches MatchLookup) *Live {
	return &Live{registry: registry, matches: matches}
}

// CompareSummary returns a one-line cross-platform deal summary for
// eventKey, if it participates in a matched group with fetchable listings
// from at least two platforms.
func (l *Live) CompareSummary(ctx context.Context, eventKey model.EventKey) (string, bool) {
	group, ok := l.matches.MatchContaining(eventKey)
	if !ok {
		return "", false
	}

	byPlatform := make(PlatformListings, len(group.Events))
	for platform, event := range group.Events {
		a, ok := l.registry.Get(platform)
		if !ok {
			continue
		}
		listings, err := a.GetEventListings(ctx, event.PlatformID)
		if err != nil || len(listings) == 0 {
			continue
		}
		byPlatform[platform] = listings
	}

	result := Compare(byPlatform)
	if !result.HasDeal {
		return "", false
	}

	return fmt.Sprintf("Best cross-platform deal: $%.2f on %s", result.BestDeal.Listing.PricePerTicket, result.BestDeal.Platform), true
}
