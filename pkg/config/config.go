package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/vigil/pkg/health"
	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/runtime"
	"github.com/cuemby/vigil/pkg/storage"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned when the bot token or chat ID is unset
var ErrMissingCredentials = errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set")

// Config is the monitor configuration, read from the environment
type Config struct {
	BotToken string
	ChatID   int64
	chatRaw  string

	Interval      time.Duration // MONITOR_INTERVAL, seconds
	StateFile     string
	StateBackend  string // "file" | "bolt"
	Monitored     []string
	Prefix        string
	QueueSize     int
	StreamBackoff time.Duration // STREAM_BACKOFF, seconds

	Runtime             string // "docker" | "containerd"
	ContainerdAddress   string
	ContainerdNamespace string

	MetricsAddr string // empty disables the HTTP server
	ProbesFile  string

	LogLevel string
	LogJSON  bool
}

// Load reads the configuration from the environment. Malformed values are
// reported together; missing credentials are checked by RequireCredentials.
func Load() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		BotToken: getenv("TELEGRAM_BOT_TOKEN", ""),
		chatRaw:  getenv("TELEGRAM_CHAT_ID", ""),

		Interval:      p.seconds("MONITOR_INTERVAL", 60),
		StateFile:     getenv("MONITOR_STATE_FILE", storage.DefaultStatePath),
		StateBackend:  getenv("STATE_BACKEND", storage.BackendFile),
		Monitored:     splitList(getenv("MONITORED_CONTAINERS", "")),
		Prefix:        getenv("MONITOR_PREFIX", runtime.DefaultPrefix),
		QueueSize:     p.int("HINT_QUEUE_SIZE", 100),
		StreamBackoff: p.seconds("STREAM_BACKOFF", 5),

		Runtime:             getenv("MONITOR_RUNTIME", runtime.KindDocker),
		ContainerdAddress:   getenv("CONTAINERD_ADDRESS", runtime.DefaultSocketPath),
		ContainerdNamespace: getenv("CONTAINERD_NAMESPACE", runtime.DefaultNamespace),

		MetricsAddr: getenv("METRICS_ADDR", ""),
		ProbesFile:  getenv("PROBES_FILE", ""),

		LogLevel: getenv("LOG_LEVEL", string(log.InfoLevel)),
		LogJSON:  p.bool("LOG_JSON", false),
	}

	if cfg.chatRaw != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(cfg.chatRaw), 10, 64)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("TELEGRAM_CHAT_ID: %q is not a numeric chat id", cfg.chatRaw))
		}
		cfg.ChatID = id
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequireCredentials fails with ErrMissingCredentials when the bot token or
// chat ID is unset
func (c *Config) RequireCredentials() error {
	if c.BotToken == "" || c.chatRaw == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	var errs []error

	if c.Interval < time.Second {
		errs = append(errs, fmt.Errorf("MONITOR_INTERVAL must be at least 1 second"))
	}
	if c.StreamBackoff < time.Second {
		errs = append(errs, fmt.Errorf("STREAM_BACKOFF must be at least 1 second"))
	}
	if c.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("HINT_QUEUE_SIZE must be positive"))
	}
	if c.StateFile == "" {
		errs = append(errs, fmt.Errorf("MONITOR_STATE_FILE must not be empty"))
	}
	switch c.StateBackend {
	case storage.BackendFile, storage.BackendBolt:
	default:
		errs = append(errs, fmt.Errorf("STATE_BACKEND %q is not one of file, bolt", c.StateBackend))
	}
	switch c.Runtime {
	case runtime.KindDocker, runtime.KindContainerd:
	default:
		errs = append(errs, fmt.Errorf("%w: MONITOR_RUNTIME %q", runtime.ErrUnsupportedRuntime, c.Runtime))
	}
	if len(c.Monitored) == 0 && c.Prefix == "" {
		errs = append(errs, fmt.Errorf("either MONITORED_CONTAINERS or MONITOR_PREFIX must be set"))
	}

	return errors.Join(errs...)
}

// RuntimeOptions returns the inspector connection options
func (c *Config) RuntimeOptions() runtime.Options {
	return runtime.Options{
		Kind:                c.Runtime,
		ContainerdAddress:   c.ContainerdAddress,
		ContainerdNamespace: c.ContainerdNamespace,
	}
}

// LogConfig returns the logger configuration
func (c *Config) LogConfig() log.Config {
	return log.Config{
		Level:      log.ParseLevel(c.LogLevel),
		JSONOutput: c.LogJSON,
	}
}

// probesFile is the YAML layout of PROBES_FILE
type probesFile struct {
	Probes []health.Probe `yaml:"probes"`
}

// LoadProbes reads health probe declarations from a YAML file
func LoadProbes(path string) ([]health.Probe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read probes file: %w", err)
	}

	var file probesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse probes file %s: %w", path, err)
	}
	return file.Probes, nil
}

// helpers

type parser struct {
	errs []error
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (p *parser) seconds(key string, def int) time.Duration {
	return time.Duration(p.int(key, def)) * time.Second
}

func (p *parser) bool(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
