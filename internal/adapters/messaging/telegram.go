package messaging

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sony/gobreaker"

	"github.com/raktsetu/blood-request-service/internal/config"
	"github.com/raktsetu/blood-request-service/internal/core/domain"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBroadcaster mirrors notifications into a coordinators' chat.
type TelegramBroadcaster struct {
	api    telegramSender
	chatID int64
	cb     *gobreaker.CircuitBreaker
}

var _ ports.NotificationPublisher = (*TelegramBroadcaster)(nil)

func NewTelegramBroadcaster(token string, chatID int64) (*TelegramBroadcaster, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return newTelegramBroadcaster(api, chatID, config.NewCircuitBreaker(config.BreakerTelegram)), nil
}

func newTelegramBroadcaster(api telegramSender, chatID int64, cb *gobreaker.CircuitBreaker) *TelegramBroadcaster {
	return &TelegramBroadcaster{api: api, chatID: chatID, cb: cb}
}

func (t *TelegramBroadcaster) Name() string {
	return "telegram"
}

func (t *TelegramBroadcaster) Publish(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, formatTelegram(n))
	_, err := t.cb.Execute(func() (interface{}, error) {
		return t.api.Send(msg)
	})
	return err
}

func formatTelegram(n domain.Notification) string {
	icon := "🩸"
	switch n.Type {
	case domain.NotificationDonorArrived:
		icon = "📍"
	case domain.NotificationRequestCancelled:
		icon = "❌"
	case domain.NotificationDonationCompleted:
		icon = "✅"
	}
	return fmt.Sprintf("%s [%s] %s\nrequest: %s", icon, n.Type, n.Message, n.RequestID)
}
