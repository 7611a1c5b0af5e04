package model

import "time"

// EventMatch groups the same real-world event as listed on two or more
// platforms. Confidence is the lowest confidence between the group's seed
// event and each other member; pairs of non-seed members are not scored.
type EventMatch struct {
	GroupID       string
	CanonicalName string
	VenueName     string
	EventDate     time.Time
	Events        map[string]NormalizedEvent // platform -> event
	Confidence    int
}

// Platforms returns the distinct platform names participating in the group.
func (m EventMatch) Platforms() []string {
	out := make([]string, 0, len(m.Events))
	for p := range m.Events {
		out = append(out, p)
	}
	return out
}

// AlertRecord is an append-only entry in the alert ledger, used for
// per-(event,user) cooldown lookups.
type AlertRecord struct {
	AlertID  string // idempotency key for at-least-once delivery
	EventID  string
	UserID   string
	SentAt   time.Time
	TopScore int
	Channel  Channel
	Success  bool
}

// SectionComparison is one normalized section's cross-platform price
// comparison, sorted ascending by price within Listings.
type SectionComparison struct {
	NormalizedSection string
	Listings          []PlatformListing
	BestDeal          PlatformListing
	Savings           float64
	SavingsPercent    int
}

// PlatformListing pairs a listing with the platform it came from, used by
// the price comparator where the platform is not otherwise recoverable from
// NormalizedListing alone (it is, via .Platform, but this keeps comparator
// call sites explicit about what they're sorting).
type PlatformListing struct {
	Platform string
	Listing  NormalizedListing
}
