package bot

import (
	"context"
	"fmt"

	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/notify"
	"github.com/cuemby/vigil/pkg/runtime"
	"github.com/cuemby/vigil/pkg/types"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const welcomeText = "👋 <b>Welcome to container monitoring!</b>\n\n" +
	"Use the buttons below to manage:"

// API is the part of the Telegram Bot API the command surface uses.
// *tgbotapi.BotAPI satisfies it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Inspector is the read-only view of the runtime the bot needs
type Inspector interface {
	runtime.Lister
	Inspect(ctx context.Context, name string) (types.Observation, error)
}

// Bot answers /start and the control keyboard callbacks
type Bot struct {
	api       API
	inspector Inspector
	discovery *runtime.Discovery

	// allowedChat restricts interaction to one chat when non-zero
	allowedChat int64
	logger      zerolog.Logger
}

// New creates the command surface
func New(api API, inspector Inspector, discovery *runtime.Discovery, allowedChat int64) *Bot {
	return &Bot{
		api:         api,
		inspector:   inspector,
		discovery:   discovery,
		allowedChat: allowedChat,
		logger:      log.WithComponent("bot"),
	}
}

// RegisterCommands publishes the bot command menu
func (b *Bot) RegisterCommands() error {
	cmds := tgbotapi.NewSetMyCommands(tgbotapi.BotCommand{
		Command:     "start",
		Description: "Start the bot and show the control menu",
	})
	if _, err := b.api.Request(cmds); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	b.logger.Info().Msg("Bot command menu configured")
	return nil
}

// Run dispatches updates until ctx is cancelled or the channel closes
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes one update
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		if !b.allowed(update.Message.Chat) {
			return
		}
		b.handleCommand(update.Message)

	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		if query.Message == nil || !b.allowed(query.Message.Chat) {
			return
		}
		b.handleCallback(ctx, query)
	}
}

func (b *Bot) allowed(chat *tgbotapi.Chat) bool {
	if b.allowedChat == 0 {
		return true
	}
	if chat != nil && chat.ID == b.allowedChat {
		return true
	}
	b.logger.Warn().Msg("Ignoring update from unauthorized chat")
	return false
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	if msg.Command() != "start" {
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, welcomeText)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = notify.Keyboard()
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error().Err(err).Msg("Failed to answer /start")
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to answer callback query")
	}

	var text string
	switch query.Data {
	case notify.CallbackList:
		text = b.ListText(ctx)
	case notify.CallbackStatus:
		text = b.StatusText(ctx)
	default:
		b.logger.Debug().Str("data", query.Data).Msg("Unknown callback")
		return
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(
		query.Message.Chat.ID,
		query.Message.MessageID,
		text,
		notify.Keyboard(),
	)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error().Err(err).Str("callback", query.Data).Msg("Failed to edit message")
	}
}

// ListText renders the monitored container list
func (b *Bot) ListText(ctx context.Context) string {
	names, err := b.discovery.Candidates(ctx, b.inspector)
	if err != nil {
		b.logger.Error().Err(err).Msg("Container discovery failed")
		return notify.FormatList(nil)
	}
	return notify.FormatList(names)
}

// StatusText renders the live status of every monitored container
func (b *Bot) StatusText(ctx context.Context) string {
	names, err := b.discovery.Candidates(ctx, b.inspector)
	if err != nil {
		b.logger.Error().Err(err).Msg("Container discovery failed")
		return notify.FormatStatuses(nil)
	}

	rows := make([]notify.ContainerStatus, 0, len(names))
	for _, name := range names {
		obs, err := b.inspector.Inspect(ctx, name)
		if err != nil {
			b.logger.Error().Err(err).Str("container", name).Msg("Failed to inspect container")
			obs = types.Observation{Status: types.StatusUnknown}
		}
		rows = append(rows, notify.ContainerStatus{Name: name, Observation: obs})
	}
	return notify.FormatStatuses(rows)
}
