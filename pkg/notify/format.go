package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/cuemby/vigil/pkg/types"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TimeLayout is used for every timestamp shown to users
const TimeLayout = "2006-01-02 15:04:05 UTC"

// Callback data of the control keyboard buttons
const (
	CallbackList   = "list_containers"
	CallbackStatus = "status_containers"
)

var statusEmoji = map[types.Status]string{
	types.StatusRunning:    "🟢",
	types.StatusExited:     "🔴",
	types.StatusStopped:    "🔴",
	types.StatusRestarting: "🟡",
	types.StatusPaused:     "⏸️",
	types.StatusNotFound:   "❌",
}

var healthEmoji = map[types.Health]string{
	types.HealthHealthy:   "✅",
	types.HealthUnhealthy: "⚠️",
	types.HealthStarting:  "🔄",
}

// FormatDuration renders whole seconds as "1d 2h 3m 4s", omitting zero
// units, and "0s" for zero or negative input
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}

	days := seconds / 86400
	hours := seconds % 86400 / 3600
	minutes := seconds % 3600 / 60
	secs := seconds % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// FormatTime renders t in UTC with TimeLayout
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Format renders an intent as an HTML message
func Format(intent types.Intent) string {
	name := code(intent.Name)

	switch intent.Kind {
	case types.IntentDown:
		var b strings.Builder
		b.WriteString("🔴 <b>Container is down!</b>\n\n")
		fmt.Fprintf(&b, "📦 Container: %s\n", name)
		fmt.Fprintf(&b, "❌ Status: %s\n", html.EscapeString(string(intent.Status)))
		if intent.Health != types.HealthNone {
			fmt.Fprintf(&b, "🏥 Health: %s\n", intent.Health)
		}
		fmt.Fprintf(&b, "🕐 Down since: %s\n", FormatTime(intent.At))
		b.WriteString("⚠️ Tracking downtime...")
		return b.String()

	case types.IntentRecovered:
		return "🟢 <b>Container recovered!</b>\n\n" +
			fmt.Sprintf("📦 Container: %s\n", name) +
			"✅ Status: running\n" +
			fmt.Sprintf("⏱️ Downtime: %s\n", FormatDuration(intent.DowntimeSeconds)) +
			fmt.Sprintf("🕐 Recovered at: %s", FormatTime(intent.At))

	case types.IntentChanged:
		healthInfo := ""
		if intent.Health != types.HealthNone {
			healthInfo = fmt.Sprintf("\n🏥 Health: %s", intent.Health)
		}
		return "🟡 <b>Container status changed</b>\n\n" +
			fmt.Sprintf("📦 Container: %s\n", name) +
			fmt.Sprintf("📊 Status: %s → %s%s\n",
				html.EscapeString(string(intent.OldStatus)),
				html.EscapeString(string(intent.Status)),
				healthInfo) +
			fmt.Sprintf("🕐 Time: %s", FormatTime(intent.At))

	case types.IntentStartup:
		return "🔵 <b>Monitoring started</b>\n\n" +
			"📊 Monitored containers:\n" + bulletList(intent.Names) + "\n\n" +
			fmt.Sprintf("🕐 Started at: %s\n\n", FormatTime(intent.At)) +
			"Use the buttons below to manage:"

	default:
		return fmt.Sprintf("ℹ️ %s: %s", html.EscapeString(string(intent.Kind)), name)
	}
}

// FormatList renders the monitored container names
func FormatList(names []string) string {
	if len(names) == 0 {
		return "❌ No containers found"
	}
	return fmt.Sprintf("📋 <b>Monitored containers (%d):</b>\n\n%s", len(names), bulletList(names))
}

// ContainerStatus is one row of the status table
type ContainerStatus struct {
	Name        string
	Observation types.Observation
}

// FormatStatuses renders a live status table, one line per container
func FormatStatuses(rows []ContainerStatus) string {
	if len(rows) == 0 {
		return "❌ Failed to get container statuses"
	}

	lines := []string{"📊 <b>Container statuses:</b>\n"}
	for _, row := range rows {
		status := row.Observation.Status
		emoji, ok := statusEmoji[status]
		if !ok {
			emoji = "⚪"
		}

		healthText := ""
		if h := row.Observation.Health; h != types.HealthNone {
			healthText = " " + healthEmoji[h] + " " + string(h)
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s%s", emoji, code(row.Name), status, healthText))
	}
	return strings.Join(lines, "\n")
}

// Keyboard returns the inline control keyboard
func Keyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Container list", CallbackList),
			tgbotapi.NewInlineKeyboardButtonData("📊 Container statuses", CallbackStatus),
		),
	)
}

func bulletList(names []string) string {
	lines := make([]string, 0, len(names))
	for _, n := range names {
		lines = append(lines, "  • "+code(n))
	}
	return strings.Join(lines, "\n")
}

func code(s string) string {
	return "<code>" + html.EscapeString(s) + "</code>"
}
