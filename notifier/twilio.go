package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/seatsniper/engine/model"
)

// TwilioTransport distinguishes the two Twilio-backed channels this
// package implements; both route through the Messages API, differing
// only in the "whatsapp:" prefix on From/To.
type TwilioTransport struct {
	client    *twilio.RestClient
	from      string // E.164 number, or WhatsApp-enabled sender number
	whatsApp  bool
	channel   model.Channel
}

// NewTwilioSMS builds an SMS notifier sending from fromNumber (E.164).
func NewTwilioSMS(accountSID, authToken, fromNumber string) *TwilioTransport {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioTransport{client: client, from: fromNumber, whatsApp: false, channel: model.ChannelSMS}
}

// NewTwilioWhatsApp builds a WhatsApp notifier sending from fromNumber
// (E.164). The "whatsapp:" prefix is applied to both From and To.
func NewTwilioWhatsApp(accountSID, authToken, fromNumber string) *TwilioTransport {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioTransport{client: client, from: fromNumber, whatsApp: true, channel: model.ChannelWhatsApp}
}

func (t *TwilioTransport) Channel() model.Channel { return t.channel }

func (t *TwilioTransport) SendAlert(ctx context.Context, payload AlertPayload) (SendResult, error) {
	to := payload.RecipientID
	from := t.from
	if t.whatsApp {
		to = "whatsapp:" + to
		from = "whatsapp:" + from
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(renderSMSText(payload))

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		code, hard := extractTwilioCode(err)
		if hard {
			return SendResult{Success: false, DeliveryStatus: StatusFailed, Error: fmt.Sprintf("twilio code %d: %s", code, err.Error())}, nil
		}
		return SendResult{Success: false, DeliveryStatus: StatusFailed, Error: err.Error()}, nil
	}

	status := StatusPending
	if resp.Status != nil {
		switch strings.ToLower(*resp.Status) {
		case "delivered", "sent":
			status = StatusDelivered
		case "failed", "undelivered":
			status = StatusFailed
		case "queued", "sending", "accepted":
			status = StatusPending
		default:
			status = StatusUnknown
		}
	}

	id := ""
	if resp.Sid != nil {
		id = *resp.Sid
	}
	return SendResult{Success: status != StatusFailed, MessageID: id, DeliveryStatus: status}, nil
}

func renderSMSText(p AlertPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s, %s\n", p.EventName, p.VenueName, p.City)
	for i, pick := range p.TopPicks {
		if i >= 3 {
			break // keep SMS bodies short
		}
		fmt.Fprintf(&b, "%s row %s: $%.2f (score %d)\n", pick.Listing.Section, pick.Listing.Row, pick.Listing.PricePerTicket, pick.Score.TotalScore)
	}
	if p.DeepLink != "" {
		b.WriteString(p.DeepLink)
	}
	return b.String()
}

// extractTwilioCode best-effort-parses the Twilio REST exception's numeric
// error code out of its string representation, since twilio-go does not
// expose a typed error with a Code() accessor on every error path.
func extractTwilioCode(err error) (code int, hard bool) {
	msg := err.Error()
	for c := range twilioHardCodes {
		if strings.Contains(msg, fmt.Sprintf("%d", c)) {
			return c, true
		}
	}
	return 0, IsHardFailure(msg)
}
