package seatmap

import (
	"context"

	"github.com/seatsniper/engine/adapter"
)

// AdapterLookup implements dispatch.SeatMapLookup by trying every active
// adapter that opts into adapter.VenueSeatMapProvider. None of the
// current marketplace adapters expose this; it exists so a future
// adapter can wire in without changing the dispatcher.
type AdapterLookup struct {
	registry *adapter.Registry
}

// NewAdapterLookup wraps registry for venue seat-map URL lookups.
func NewAdapterLookup(registry *adapter.Registry) *AdapterLookup {
	return &AdapterLookup{registry: registry}
}

// LookupSeatMapURL tries every active adapter in turn and returns the
// first hit. A lookup failure on one adapter never blocks checking the
// rest.
func (l *AdapterLookup) LookupSeatMapURL(ctx context.Context, venueName string) (string, bool) {
	for _, a := range l.registry.Active() {
		provider, ok := a.(adapter.VenueSeatMapProvider)
		if !ok {
			continue
		}
		if url, ok := provider.SeatMapURL(ctx, venueName); ok {
			return url, true
		}
	}
	return "", false
}
