package notifier

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/seatsniper/engine/model"
)

// Telegram sends alerts via a Telegram bot. RecipientID on AlertPayload is
// the chat id, formatted as a decimal string.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

// NewTelegram builds a Telegram notifier from a bot token.
func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}
	return &Telegram{bot: bot}, nil
}

func (t *Telegram) Channel() model.Channel { return model.ChannelTelegram }

// SendAlert renders the payload as a Markdown message and sends it to the
// payload's chat id.
func (t *Telegram) SendAlert(ctx context.Context, payload AlertPayload) (SendResult, error) {
	chatID, err := strconv.ParseInt(payload.RecipientID, 10, 64)
	if err != nil {
		return SendResult{Success: false, DeliveryStatus: StatusFailed, Error: "invalid chat id"}, nil
	}

	msg := tgbotapi.NewMessage(chatID, renderTelegramText(payload))
	msg.ParseMode = tgbotapi.ModeMarkdown

	sent, err := t.bot.Send(msg)
	if err != nil {
		return SendResult{Success: false, DeliveryStatus: StatusFailed, Error: err.Error()}, nil
	}
	return SendResult{
		Success:        true,
		MessageID:      strconv.Itoa(sent.MessageID),
		DeliveryStatus: StatusDelivered,
	}, nil
}

func renderTelegramText(p AlertPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", p.EventName)
	if p.VenueName != "" || p.City != "" {
		fmt.Fprintf(&b, "%s, %s\n", p.VenueName, p.City)
	}
	if p.EventDateTime != "" {
		fmt.Fprintf(&b, "%s\n", p.EventDateTime)
	}
	b.WriteString("\n")
	for i, pick := range p.TopPicks {
		fmt.Fprintf(&b, "%d. %s row %s — $%.2f (score %d, %s)\n",
			i+1, pick.Listing.Section, pick.Listing.Row, pick.Listing.PricePerTicket,
			pick.Score.TotalScore, pick.Score.Recommendation)
	}
	if p.Comparison != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Comparison)
	}
	if p.DeepLink != "" {
		fmt.Fprintf(&b, "\n[View listing](%s)", p.DeepLink)
	}
	return b.String()
}
