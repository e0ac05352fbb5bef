package events

import (
	"strings"
	"time"
)

// CategoryContainer is the only event category the filter accepts
const CategoryContainer = "container"

// healthStatusPrefix starts every health transition action, e.g.
// "health_status: unhealthy"
const healthStatusPrefix = "health_status"

// lifecycleActions are the runtime actions worth a re-observation
var lifecycleActions = map[string]bool{
	"start":   true,
	"stop":    true,
	"die":     true,
	"kill":    true,
	"pause":   true,
	"unpause": true,
	"restart": true,
}

// RawEvent is one lifecycle event as delivered by the runtime
type RawEvent struct {
	Category   string
	Action     string
	Attributes map[string]string
	Time       time.Time
}

// Name returns the container name carried by the event attributes
func (e RawEvent) Name() string {
	return e.Attributes["name"]
}

// Hint signals that a container may have changed and should be re-observed.
// It carries no authoritative state.
type Hint struct {
	Name string
	At   time.Time
}

// Filter reduces raw runtime events to hints for monitored containers
type Filter struct {
	monitored func(name string) bool
}

// NewFilter creates a filter accepting containers for which monitored
// returns true. A nil predicate accepts every container.
func NewFilter(monitored func(name string) bool) *Filter {
	return &Filter{monitored: monitored}
}

// Classify returns the hint for ev, or false when the event is irrelevant
func (f *Filter) Classify(ev RawEvent) (Hint, bool) {
	if ev.Category != CategoryContainer {
		return Hint{}, false
	}
	if !IsRelevantAction(ev.Action) {
		return Hint{}, false
	}

	name := ev.Name()
	if name == "" {
		return Hint{}, false
	}
	if f.monitored != nil && !f.monitored(name) {
		return Hint{}, false
	}

	return Hint{Name: name, At: ev.Time}, true
}

// IsRelevantAction reports whether action is in the lifecycle allow-list
func IsRelevantAction(action string) bool {
	return lifecycleActions[action] || strings.HasPrefix(action, healthStatusPrefix)
}
