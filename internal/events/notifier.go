package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

// QuoteNotifier forwards a quote request to an operator channel.
type QuoteNotifier interface {
	Name() string
	NotifyQuote(ctx context.Context, evt QuoteRequestedEvent) error
}

// FormatQuoteMessage renders the operator-facing text for a quote request.
func FormatQuoteMessage(evt QuoteRequestedEvent) string {
	var b strings.Builder
	b.WriteString("New transfer quote request\n")
	fmt.Fprintf(&b, "Origin: %s\n", displayName(evt.OriginName, evt.OriginID))
	fmt.Fprintf(&b, "Destination: %s\n", displayName(evt.DestinationName, evt.DestinationID))
	fmt.Fprintf(&b, "Passengers: %d\n", evt.Passengers)
	fmt.Fprintf(&b, "Vehicles found: %d", evt.VehicleCount)
	if evt.VehicleCount > 0 {
		fmt.Fprintf(&b, "\nFrom: %s %s", domain.Cents(evt.LowestPriceCents), evt.Currency)
	}
	return b.String()
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return name
}

// DiscordNotifier posts quote requests to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a DiscordNotifier posting to webhookURL.
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *DiscordNotifier) Name() string { return "discord" }

// NotifyQuote implements QuoteNotifier.
func (n *DiscordNotifier) NotifyQuote(ctx context.Context, evt QuoteRequestedEvent) error {
	body, err := json.Marshal(map[string]string{"content": FormatQuoteMessage(evt)})
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// telegramSender is the part of *tgbotapi.BotAPI the notifier uses.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends quote requests to a Telegram chat.
type TelegramNotifier struct {
	bot    telegramSender
	chatID int64
}

// NewTelegramNotifier creates a TelegramNotifier. Use NewTelegramBot to
// obtain a connected bot.
func NewTelegramNotifier(bot telegramSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

// NewTelegramBot authenticates against the Telegram API with token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

func (n *TelegramNotifier) Name() string { return "telegram" }

// NotifyQuote implements QuoteNotifier.
func (n *TelegramNotifier) NotifyQuote(_ context.Context, evt QuoteRequestedEvent) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatQuoteMessage(evt))
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
