package health

import (
	"context"
	"time"

	"github.com/cuemby/vigil/pkg/types"
)

// CheckType selects how a probe reaches the container
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
	CheckTypeExec CheckType = "exec"
)

// Result is the outcome of one probe run
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker runs a single probe
type Checker interface {
	Check(ctx context.Context) Result
	Type() CheckType
}

// Config holds the timing of a probe. Zero fields take the defaults below.
type Config struct {
	Interval    time.Duration `yaml:"interval"`     // default 30s
	Timeout     time.Duration `yaml:"timeout"`      // default 10s
	Retries     int           `yaml:"retries"`      // default 3
	StartPeriod time.Duration `yaml:"start_period"` // failures ignored while it lasts
}

// WithDefaults fills zero fields
func (c Config) WithDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	return c
}

// Status folds probe results for one container into a health value. It
// reports starting until the first success or until Retries consecutive
// failures have been seen outside the start period.
type Status struct {
	ConsecutiveFailures int

	startedAt time.Time
	health    types.Health
}

// NewStatus returns a Status reporting starting
func NewStatus() *Status {
	return &Status{
		startedAt: time.Now(),
		health:    types.HealthStarting,
	}
}

// Update records result
func (s *Status) Update(result Result, config Config) {
	if result.Healthy {
		s.ConsecutiveFailures = 0
		s.health = types.HealthHealthy
		return
	}

	if config.StartPeriod > 0 && time.Since(s.startedAt) < config.StartPeriod {
		return
	}

	s.ConsecutiveFailures++
	if s.ConsecutiveFailures >= config.Retries {
		s.health = types.HealthUnhealthy
	}
}

// Health returns starting, healthy or unhealthy
func (s *Status) Health() types.Health {
	return s.health
}
