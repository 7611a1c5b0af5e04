// Package notifier defines the uniform outbound alert-delivery contract
// and the concrete Telegram and Twilio (SMS/WhatsApp) implementations.
package notifier

import (
	"context"

	"github.com/seatsniper/engine/model"
)

// DeliveryStatus is the coarse outcome of a send attempt.
type DeliveryStatus string

const (
	StatusDelivered DeliveryStatus = "delivered"
	StatusPending   DeliveryStatus = "pending"
	StatusFailed    DeliveryStatus = "failed"
	StatusUnknown   DeliveryStatus = "unknown"
)

// AlertPayload is everything a notifier needs to render one alert.
type AlertPayload struct {
	RecipientID   string // chat id for Telegram, E.164 phone for Twilio
	EventName     string
	VenueName     string
	City          string
	EventDateTime string // pre-formatted for display
	TopPicks      []model.ScoredListing
	SeatMapURL    string
	DeepLink      string
	Comparison    string // optional pre-rendered cross-platform comparison summary
}

// SendResult is the outcome of one SendAlert call.
type SendResult struct {
	Success        bool
	MessageID      string
	Error          string
	DeliveryStatus DeliveryStatus
}

// Notifier is the uniform send-alert interface every transport
// implements. A notifier error never propagates past the dispatcher: it
// is classified there and, for hard failures, triggers subscription
// auto-deactivation.
type Notifier interface {
	Channel() model.Channel
	SendAlert(ctx context.Context, payload AlertPayload) (SendResult, error)
}
