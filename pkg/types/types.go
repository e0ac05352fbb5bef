package types

import (
	"encoding/json"
	"time"
)

// Status is the coarse lifecycle value reported by the container runtime
type Status string

const (
	StatusRunning    Status = "running"
	StatusExited     Status = "exited"
	StatusStopped    Status = "stopped"
	StatusRestarting Status = "restarting"
	StatusPaused     Status = "paused"
	StatusNotFound   Status = "not_found"
	StatusUnknown    Status = "unknown"
)

// Health is the result of a container health probe.
// The zero value means no probe is configured, not unhealthy.
type Health string

const (
	HealthNone      Health = ""
	HealthHealthy   Health = "healthy"
	HealthUnhealthy Health = "unhealthy"
	HealthStarting  Health = "starting"
)

// MarshalJSON encodes an absent health as null
func (h Health) MarshalJSON() ([]byte, error) {
	if h == HealthNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(h))
}

// Observation is a single point-in-time answer from the inspector
type Observation struct {
	Status Status
	Health Health
	Exists bool
}

// Available reports whether a container counts as up: running, and either
// without a health probe or with a healthy one.
func Available(status Status, health Health) bool {
	return status == StatusRunning && (health == HealthNone || health == HealthHealthy)
}

// Available applies the availability predicate to the observation
func (o Observation) Available() bool {
	return Available(o.Status, o.Health)
}

// NotFound returns the observation for a container that no longer exists
func NotFound() Observation {
	return Observation{Status: StatusNotFound}
}

// ContainerState is the last known state of one monitored container
type ContainerState struct {
	Name          string     `json:"name"`
	Status        Status     `json:"status"`
	Health        Health     `json:"health"`
	LastCheck     time.Time  `json:"last_check"`
	DowntimeStart *time.Time `json:"downtime_start"`

	// LastStatus is the most recent status that has been announced
	LastStatus Status `json:"last_status"`
}

// Available applies the availability predicate to the stored state
func (c *ContainerState) Available() bool {
	return Available(c.Status, c.Health)
}

// Clone returns a deep copy of the state
func (c *ContainerState) Clone() *ContainerState {
	cp := *c
	if c.DowntimeStart != nil {
		t := *c.DowntimeStart
		cp.DowntimeStart = &t
	}
	return &cp
}

// Snapshot is the full persisted monitor state
type Snapshot struct {
	Containers map[string]*ContainerState `json:"containers"`
	LastUpdate time.Time                  `json:"last_update"`
}

// NewSnapshot returns an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Containers: make(map[string]*ContainerState),
		LastUpdate: time.Now().UTC(),
	}
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	cp := &Snapshot{
		Containers: make(map[string]*ContainerState, len(s.Containers)),
		LastUpdate: s.LastUpdate,
	}
	for name, state := range s.Containers {
		cp.Containers[name] = state.Clone()
	}
	return cp
}

// IntentKind identifies the kind of notification
type IntentKind string

const (
	IntentDown      IntentKind = "down"
	IntentRecovered IntentKind = "recovered"
	IntentChanged   IntentKind = "changed"
	IntentStartup   IntentKind = "startup"
)

// Intent is a request to deliver one notification
type Intent struct {
	ID   string
	Kind IntentKind
	Name string
	At   time.Time

	// Status is the observed status for down and changed intents
	Status    Status
	OldStatus Status
	Health    Health

	// DowntimeSeconds is set on recovered intents
	DowntimeSeconds int64

	// Names lists the monitored containers on startup intents
	Names []string
}
