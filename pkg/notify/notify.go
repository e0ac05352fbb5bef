package notify

import (
	"context"

	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/metrics"
	"github.com/cuemby/vigil/pkg/types"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier delivers notification intents. Delivery failures are handled
// by the implementation and never returned to the caller.
type Notifier interface {
	Notify(ctx context.Context, intent types.Intent)
}

// Sender is the part of the Telegram Bot API used for delivery.
// *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends HTML messages to one chat
type TelegramNotifier struct {
	sender Sender
	chatID int64
	logger zerolog.Logger
}

// NewTelegramNotifier creates a notifier for chatID
func NewTelegramNotifier(sender Sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{
		sender: sender,
		chatID: chatID,
		logger: log.WithComponent("notify"),
	}
}

// Notify formats and sends intent. The startup summary carries the
// control keyboard. The transition behind intent is already persisted, so
// the send happens even when ctx is cancelled.
func (t *TelegramNotifier) Notify(_ context.Context, intent types.Intent) {
	msg := tgbotapi.NewMessage(t.chatID, Format(intent))
	msg.ParseMode = tgbotapi.ModeHTML
	if intent.Kind == types.IntentStartup {
		msg.ReplyMarkup = Keyboard()
	}

	logger := t.logger.With().
		Str("intent_id", intent.ID).
		Str("kind", string(intent.Kind)).
		Str("container", intent.Name).
		Logger()

	if _, err := t.sender.Send(msg); err != nil {
		metrics.NotificationFailuresTotal.Inc()
		logger.Error().Err(err).Msg("Failed to send Telegram message")
		return
	}
	logger.Debug().Msg("Notification delivered")
}

// LogNotifier writes intents to the structured log. It is used by dry runs
// and as a fallback when no chat is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: log.WithComponent("notify")}
}

// Notify logs intent
func (l *LogNotifier) Notify(_ context.Context, intent types.Intent) {
	event := l.logger.Info().
		Str("intent_id", intent.ID).
		Str("kind", string(intent.Kind)).
		Time("at", intent.At)

	switch intent.Kind {
	case types.IntentStartup:
		event = event.Strs("containers", intent.Names)
	case types.IntentRecovered:
		event = event.Str("container", intent.Name).Int64("downtime_seconds", intent.DowntimeSeconds)
	default:
		event = event.Str("container", intent.Name).
			Str("status", string(intent.Status)).
			Str("old_status", string(intent.OldStatus)).
			Str("health", string(intent.Health))
	}
	event.Msg("Notification")
}
