package health

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cuemby/vigil/pkg/events"
	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/types"
	"github.com/rs/zerolog"
)

// eventBuffer bounds the pending health transition events
const eventBuffer = 64

// Probe declares a health check for one container
type Probe struct {
	Container string    `yaml:"container"`
	Type      CheckType `yaml:"type"`

	// Target is the URL for http probes and host:port for tcp probes
	Target string `yaml:"target"`

	// Command is the argv for exec probes
	Command []string `yaml:"command"`

	// HTTP only
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`
	Accept  []int             `yaml:"accept"`

	Config `yaml:",inline"`
}

// Prober runs the configured probes and supplies health for containers
// whose runtime reports none
type Prober struct {
	mu       sync.RWMutex
	monitors map[string]*containerHealthMonitor
	events   chan events.RawEvent
	logger   zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// containerHealthMonitor tracks health check state for a single container
type containerHealthMonitor struct {
	name    string
	checker Checker
	status  *Status
	config  Config
}

// NewProber creates a prober for the given probes. Probes are not run
// until Start is called.
func NewProber(probes []Probe) (*Prober, error) {
	p := &Prober{
		monitors: make(map[string]*containerHealthMonitor),
		events:   make(chan events.RawEvent, eventBuffer),
		logger:   log.WithComponent("health"),
	}

	for _, probe := range probes {
		if probe.Container == "" {
			return nil, fmt.Errorf("probe without container name")
		}
		if _, dup := p.monitors[probe.Container]; dup {
			return nil, fmt.Errorf("duplicate probe for container %s", probe.Container)
		}

		config := probe.Config.WithDefaults()
		checker, err := createChecker(probe, config)
		if err != nil {
			return nil, fmt.Errorf("failed to create health checker for %s: %w", probe.Container, err)
		}

		p.monitors[probe.Container] = &containerHealthMonitor{
			name:    probe.Container,
			checker: checker,
			status:  NewStatus(),
			config:  config,
		}
	}

	return p, nil
}

// Start runs every probe once, waits for the results, then launches one
// check loop per probe. Health reported right after Start is a probe
// result, not the initial starting value.
func (p *Prober) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	var initial sync.WaitGroup
	for _, monitor := range p.monitors {
		initial.Add(1)
		go func(m *containerHealthMonitor) {
			defer initial.Done()
			p.runHealthCheck(ctx, m)
		}(monitor)
	}
	initial.Wait()

	for _, monitor := range p.monitors {
		p.wg.Add(1)
		go p.healthCheckLoop(ctx, monitor)
	}

	p.logger.Info().Int("probes", len(p.monitors)).Msg("Health prober started")
}

// Stop cancels all check loops and waits for them to exit
func (p *Prober) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Has reports whether a probe is configured for name
func (p *Prober) Has(name string) bool {
	_, ok := p.monitors[name]
	return ok
}

// Health returns the probe health for name, or HealthNone when no probe
// is configured
func (p *Prober) Health(name string) types.Health {
	monitor, ok := p.monitors[name]
	if !ok {
		return types.HealthNone
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return monitor.status.Health()
}

// Events returns health transitions as runtime-style lifecycle events
func (p *Prober) Events() <-chan events.RawEvent {
	return p.events
}

// healthCheckLoop runs health checks for a container
func (p *Prober) healthCheckLoop(ctx context.Context, monitor *containerHealthMonitor) {
	defer p.wg.Done()

	ticker := time.NewTicker(monitor.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.runHealthCheck(ctx, monitor)
		case <-ctx.Done():
			return
		}
	}
}

// runHealthCheck performs a single health check and publishes a transition
func (p *Prober) runHealthCheck(ctx context.Context, monitor *containerHealthMonitor) {
	checkCtx, cancel := context.WithTimeout(ctx, monitor.config.Timeout)
	defer cancel()

	result := monitor.checker.Check(checkCtx)
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	before := monitor.status.Health()
	monitor.status.Update(result, monitor.config)
	after := monitor.status.Health()
	p.mu.Unlock()

	logger := p.logger.With().Str("container", monitor.name).Logger()
	logger.Debug().
		Bool("healthy", result.Healthy).
		Str("message", result.Message).
		Dur("duration", result.Duration).
		Msg("Health check completed")

	if before == after {
		return
	}

	logger.Info().Str("from", string(before)).Str("to", string(after)).Msg("Health changed")
	ev := events.RawEvent{
		Category:   events.CategoryContainer,
		Action:     "health_status: " + string(after),
		Attributes: map[string]string{"name": monitor.name},
		Time:       result.CheckedAt,
	}
	select {
	case p.events <- ev:
	default:
		logger.Warn().Msg("Health event buffer full, relying on poll")
	}
}

// createChecker creates the appropriate health checker for a probe
func createChecker(probe Probe, config Config) (Checker, error) {
	switch probe.Type {
	case CheckTypeHTTP:
		if probe.Target == "" {
			return nil, fmt.Errorf("http probe requires a target URL")
		}
		checker := NewHTTPChecker(probe.Target, config.Timeout)
		if probe.Method != "" {
			checker.Method = strings.ToUpper(probe.Method)
		}
		for key, value := range probe.Headers {
			checker.Headers[key] = value
		}
		checker.Accept = probe.Accept
		return checker, nil

	case CheckTypeTCP:
		if probe.Target == "" {
			return nil, fmt.Errorf("tcp probe requires a target address")
		}
		return NewTCPChecker(probe.Target, config.Timeout), nil

	case CheckTypeExec:
		if len(probe.Command) == 0 {
			return nil, fmt.Errorf("exec probe requires a command")
		}
		return NewExecChecker(probe.Command, config.Timeout), nil

	default:
		return nil, fmt.Errorf("unsupported health check type: %s", probe.Type)
	}
}
