// Package wizard implements the subscription wizard's conversational
// session state: a TTL-expiring map from chat id to the multi-step
// "subscribe" flow's current position.
package wizard

import (
	"time"

	"github.com/seatsniper/engine/model"
)

// Step is the wizard's current position in the multi-step subscribe
// flow.
type Step string

const (
	StepIdle                  Step = "idle"
	StepAwaitingCity          Step = "awaiting_city"
	StepAwaitingQuantity      Step = "awaiting_quantity"
	StepAwaitingBudget        Step = "awaiting_budget"
	StepAwaitingScore         Step = "awaiting_score"
	StepAwaitingSearchKeyword Step = "awaiting_search_keyword"
	StepAwaitingSearchCity    Step = "awaiting_search_city"
)

// PendingSubscription accumulates wizard answers before they're committed
// as a model.Subscription.
type PendingSubscription struct {
	Cities            []string
	MinQuantity       int
	MaxPricePerTicket float64
	MinScore          int
	Categories        []model.Category
}

// Session is one chat's wizard state.
type Session struct {
	ChatID         string
	Step           Step
	Pending        PendingSubscription
	SelectedCities []string
	PendingKeyword string
	CreatedAt      time.Time
}

// SessionTTL is how long an idle session lives before expiring.
const SessionTTL = 10 * time.Minute

// PrunerInterval is how often the in-memory fallback's background pruner
// sweeps for expired sessions.
const PrunerInterval = 5 * time.Minute
