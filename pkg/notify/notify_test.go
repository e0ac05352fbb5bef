package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/vigil/pkg/types"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

var at = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{-5, "0s"},
		{59, "59s"},
		{60, "1m"},
		{3600, "1h"},
		{3661, "1h 1m 1s"},
		{86400 + 2*3600 + 3*60 + 4, "1d 2h 3m 4s"},
		{2 * 86400, "2d"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.seconds))
		})
	}
}

func TestFormat(t *testing.T) {
	down := Format(types.Intent{Kind: types.IntentDown, Name: "shop_bi_api", Status: types.StatusExited, At: at})
	assert.Contains(t, down, "Container is down")
	assert.Contains(t, down, "<code>shop_bi_api</code>")
	assert.Contains(t, down, "Status: exited")
	assert.Contains(t, down, "2024-05-01 10:30:00 UTC")
	assert.NotContains(t, down, "Health")

	recovered := Format(types.Intent{Kind: types.IntentRecovered, Name: "shop_bi_api", DowntimeSeconds: 90, At: at})
	assert.Contains(t, recovered, "Container recovered")
	assert.Contains(t, recovered, "Downtime: 1m 30s")

	changed := Format(types.Intent{
		Kind:      types.IntentChanged,
		Name:      "shop_bi_api",
		OldStatus: types.StatusPaused,
		Status:    types.StatusRestarting,
		Health:    types.HealthStarting,
		At:        at,
	})
	assert.Contains(t, changed, "paused → restarting")
	assert.Contains(t, changed, "Health: starting")

	startup := Format(types.Intent{Kind: types.IntentStartup, Names: []string{"a", "b"}, At: at})
	assert.Contains(t, startup, "  • <code>a</code>\n  • <code>b</code>")
}

func TestFormatEscapesNames(t *testing.T) {
	msg := Format(types.Intent{Kind: types.IntentDown, Name: "a<b>", Status: types.StatusExited, At: at})
	assert.Contains(t, msg, "<code>a&lt;b&gt;</code>")
}

func TestFormatListAndStatuses(t *testing.T) {
	assert.Equal(t, "❌ No containers found", FormatList(nil))
	assert.Contains(t, FormatList([]string{"x"}), "Monitored containers (1)")

	table := FormatStatuses([]ContainerStatus{
		{Name: "shop_bi_api", Observation: types.Observation{Status: types.StatusRunning, Health: types.HealthHealthy, Exists: true}},
		{Name: "shop_bi_db", Observation: types.NotFound()},
		{Name: "shop_bi_x", Observation: types.Observation{Status: types.StatusUnknown, Exists: true}},
	})
	assert.Contains(t, table, "🟢 <code>shop_bi_api</code>: running ✅ healthy")
	assert.Contains(t, table, "❌ <code>shop_bi_db</code>: not_found")
	assert.Contains(t, table, "⚪ <code>shop_bi_x</code>: unknown")
}

func TestTelegramNotifier(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifier(sender, 42)

	notifier.Notify(context.Background(), types.Intent{ID: "1", Kind: types.IntentStartup, Names: []string{"a"}, At: at})
	notifier.Notify(context.Background(), types.Intent{ID: "2", Kind: types.IntentDown, Name: "a", Status: types.StatusExited, At: at})

	require.Len(t, sender.sent, 2)

	startup, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), startup.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, startup.ParseMode)
	assert.NotNil(t, startup.ReplyMarkup)

	down := sender.sent[1].(tgbotapi.MessageConfig)
	assert.Nil(t, down.ReplyMarkup)
}

func TestTelegramNotifierSwallowsErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("Bad Request: chat not found")}
	notifier := NewTelegramNotifier(sender, 42)

	assert.NotPanics(t, func() {
		notifier.Notify(context.Background(), types.Intent{Kind: types.IntentDown, Name: "a", At: at})
	})
	assert.Len(t, sender.sent, 1)
}

func TestTelegramNotifierDeliversAfterCancel(t *testing.T) {
	sender := &fakeSender{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewTelegramNotifier(sender, 42).Notify(ctx, types.Intent{Kind: types.IntentDown, Name: "shop_bi_api", Status: types.StatusExited, At: at})

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "shop_bi_api")
}

func TestKeyboard(t *testing.T) {
	kb := Keyboard()
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, CallbackList, *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, CallbackStatus, *kb.InlineKeyboard[0][1].CallbackData)
}
