// Package adapter defines the uniform marketplace contract and the
// concrete Ticketmaster, StubHub, SeatGeek, and Apify implementations that
// sit behind it. Every outbound call an adapter makes is routed through its
// own rate limiter and resilience envelope before it reaches the network.
package adapter

import (
	"context"
	"time"

	"github.com/seatsniper/engine/model"
)

// SearchParams bounds an event search request.
type SearchParams struct {
	City       string
	StartDate  time.Time
	EndDate    time.Time
	Categories []model.Category
	Keyword    string
	Limit      int
}

// HealthStatus is the adapter's self-reported health, surfaced on the
// admin health endpoint.
type HealthStatus struct {
	Healthy      bool
	LatencyMs    int64
	LastChecked  time.Time
	CircuitState string
	ErrorMessage string
}

// Adapter is the uniform interface every marketplace integration
// implements. Consumers never see platform-specific response shapes;
// everything crossing this boundary is a model.NormalizedEvent or
// model.NormalizedListing.
type Adapter interface {
	// Name identifies the adapter for logging, metrics, and registry lookup.
	Name() string

	// Initialize validates credentials and, for OAuth adapters, obtains an
	// initial access token. A failure here is permanent for the process
	// lifetime: the caller should not retry Initialize, only skip the
	// adapter.
	Initialize(ctx context.Context) error

	SearchEvents(ctx context.Context, params SearchParams) ([]model.NormalizedEvent, error)
	GetEventListings(ctx context.Context, platformEventID string) ([]model.NormalizedListing, error)
	HealthStatus() HealthStatus
}

// VenueSeatMapProvider is an optional capability an adapter may implement
// if its platform exposes a static seat-map URL lookup by venue name. The
// dispatcher type-asserts for it when an event carries no seat map URL of
// its own; an adapter that doesn't implement it is simply skipped.
type VenueSeatMapProvider interface {
	SeatMapURL(ctx context.Context, venueName string) (string, bool)
}
