package metrics

import (
	"sort"
	"sync"
	"time"
)

// Component names reported to the health registry
const (
	ComponentRuntime     = "runtime"
	ComponentStateStore  = "state_store"
	ComponentEventStream = "event_stream"
	ComponentNotifier    = "notifier"
	ComponentAPI         = "api"
)

// criticalComponents must be registered and healthy for readiness
var criticalComponents = []string{ComponentRuntime, ComponentStateStore}

// HealthStatus is the aggregate view served by /health and /ready
type HealthStatus struct {
	Status     string            `json:"status"` // healthy|unhealthy, ready|not_ready
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// ComponentHealth is the last reported state of one component
type ComponentHealth struct {
	Name    string
	Healthy bool
	Message string
	Updated time.Time
}

type registry struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	startTime  time.Time
	version    string
}

func newRegistry() *registry {
	return &registry{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
}

var components = newRegistry()

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	components.mu.Lock()
	defer components.mu.Unlock()
	components.version = version
}

// RegisterComponent records the state of a component, replacing any
// earlier report
func RegisterComponent(name string, healthy bool, message string) {
	components.mu.Lock()
	defer components.mu.Unlock()

	components.components[name] = ComponentHealth{
		Name:    name,
		Healthy: healthy,
		Message: message,
		Updated: time.Now(),
	}
}

// UpdateComponent is RegisterComponent under the name callers use after
// startup
func UpdateComponent(name string, healthy bool, message string) {
	RegisterComponent(name, healthy, message)
}

// GetHealth reports every registered component. The status is unhealthy
// when any of them is.
func GetHealth() HealthStatus {
	components.mu.RLock()
	defer components.mu.RUnlock()

	status := components.status("healthy")
	status.Components = make(map[string]string, len(components.components))
	for name, comp := range components.components {
		if comp.Healthy {
			status.Components[name] = "healthy"
			continue
		}
		status.Status = "unhealthy"
		status.Components[name] = "unhealthy: " + comp.Message
	}
	return status
}

// GetReadiness reports the critical components only. A component that has
// not registered yet counts as not ready.
func GetReadiness() HealthStatus {
	components.mu.RLock()
	defer components.mu.RUnlock()

	status := components.status("ready")
	status.Components = make(map[string]string, len(criticalComponents))

	var waiting []string
	for _, name := range criticalComponents {
		comp, ok := components.components[name]
		switch {
		case !ok:
			status.Components[name] = "not registered"
			waiting = append(waiting, name)
		case !comp.Healthy:
			status.Components[name] = "not ready: " + comp.Message
			waiting = append(waiting, name)
		default:
			status.Components[name] = "ready"
		}
	}

	if len(waiting) > 0 {
		sort.Strings(waiting)
		status.Status = "not_ready"
		status.Message = "waiting for " + waiting[0]
	}
	return status
}

// status must be called with mu held
func (r *registry) status(initial string) HealthStatus {
	return HealthStatus{
		Status:    initial,
		Timestamp: time.Now(),
		Version:   r.version,
		Uptime:    time.Since(r.startTime).Round(time.Second).String(),
	}
}
