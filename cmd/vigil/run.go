package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/vigil/pkg/api"
	"github.com/cuemby/vigil/pkg/bot"
	"github.com/cuemby/vigil/pkg/config"
	"github.com/cuemby/vigil/pkg/health"
	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/metrics"
	"github.com/cuemby/vigil/pkg/notify"
	"github.com/cuemby/vigil/pkg/reconciler"
	"github.com/cuemby/vigil/pkg/runtime"
	"github.com/cuemby/vigil/pkg/scheduler"
	"github.com/cuemby/vigil/pkg/storage"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start monitoring containers",
	Long: `Start the monitor in the foreground.

Configuration is read from the environment. TELEGRAM_BOT_TOKEN and
TELEGRAM_CHAT_ID are required unless --dry-run is given, in which case
notifications are written to the log instead of Telegram.

Startup fails with a non-zero exit code when:
  - credentials are missing
  - the probes file cannot be read or is invalid
  - the state store cannot be opened
  - the container runtime is unreachable
  - the metrics address cannot be bound

Once monitoring has started, only SIGINT or SIGTERM stops the process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		log.Init(cfg.LogConfig())
		logger := log.WithComponent("main")

		if !dryRun {
			if err := cfg.RequireCredentials(); err != nil {
				logger.Error().Err(err).Msg("Missing configuration")
				return err
			}
		}

		metrics.SetVersion(Version)

		store, err := storage.New(cfg.StateBackend, cfg.StateFile)
		if err != nil {
			return fmt.Errorf("failed to open state store: %v", err)
		}
		defer store.Close()
		metrics.RegisterComponent(metrics.ComponentStateStore, true, "")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Optional health probes for containers without a runtime health check
		var probes runtime.HealthSource
		var prober *health.Prober
		if cfg.ProbesFile != "" {
			declared, err := config.LoadProbes(cfg.ProbesFile)
			if err != nil {
				return err
			}
			prober, err = health.NewProber(declared)
			if err != nil {
				return fmt.Errorf("invalid probes: %v", err)
			}
			prober.Start(ctx)
			defer prober.Stop()
			probes = prober
		}

		inspector, err := runtime.New(cfg.RuntimeOptions(), probes)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %v", cfg.Runtime, err)
		}
		defer inspector.Close()
		metrics.RegisterComponent(metrics.ComponentRuntime, true, "")

		discovery := runtime.NewDiscovery(cfg.Monitored, cfg.Prefix)
		engine := reconciler.NewEngine(store)

		var server *api.HealthServer
		if cfg.MetricsAddr != "" {
			server = api.NewHealthServer(engine.Snapshot, Version)
			if err := server.Listen(cfg.MetricsAddr); err != nil {
				return err
			}
			metrics.RegisterComponent(metrics.ComponentAPI, true, "")
			go func() {
				// Monitoring outlives the HTTP endpoints
				if err := server.Serve(); err != nil {
					logger.Error().Err(err).Msg("HTTP server failed")
					metrics.UpdateComponent(metrics.ComponentAPI, false, err.Error())
				}
			}()
		}

		var notifier notify.Notifier
		if dryRun {
			notifier = notify.NewLogNotifier()
		} else {
			botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
			if err != nil {
				// The monitor keeps running; alerts land in the log until restart
				logger.Error().Err(err).Msg("Telegram unreachable, falling back to log notifications")
				metrics.RegisterComponent(metrics.ComponentNotifier, false, err.Error())
				notifier = notify.NewLogNotifier()
			} else {
				metrics.RegisterComponent(metrics.ComponentNotifier, true, "")
				notifier = notify.NewTelegramNotifier(botAPI, cfg.ChatID)

				b := bot.New(botAPI, inspector, discovery, cfg.ChatID)
				if err := b.RegisterCommands(); err != nil {
					logger.Warn().Err(err).Msg("Failed to register bot commands")
				}

				u := tgbotapi.NewUpdate(0)
				u.Timeout = 60
				updates := botAPI.GetUpdatesChan(u)
				defer botAPI.StopReceivingUpdates()
				go b.Run(ctx, updates)
			}
		}

		collector := metrics.NewCollector(engine.Snapshot, 15*time.Second)
		collector.Start()
		defer collector.Stop()

		sched := scheduler.NewScheduler(engine, inspector, discovery, notifier, scheduler.Config{
			Interval:      cfg.Interval,
			StreamBackoff: cfg.StreamBackoff,
			QueueSize:     cfg.QueueSize,
		})
		sched.Start(ctx)

		logger.Info().
			Str("runtime", cfg.Runtime).
			Dur("interval", cfg.Interval).
			Str("state_file", cfg.StateFile).
			Str("prefix", discovery.Prefix()).
			Bool("explicit", discovery.Explicit()).
			Bool("dry_run", dryRun).
			Msg("Monitor is running")

		<-ctx.Done()
		logger.Info().Msg("Shutting down")

		// A failed final save is logged by the scheduler
		_ = sched.Stop()

		if server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				logger.Warn().Err(err).Msg("HTTP server shutdown failed")
			}
		}

		logger.Info().Msg("Shutdown complete")
		return nil
	},
}

// loadConfig reads the environment and applies command-line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("interval") {
		cfg.Interval, _ = flags.GetDuration("interval")
	}
	if flags.Changed("state-file") {
		cfg.StateFile, _ = flags.GetString("state-file")
	}
	if flags.Changed("state-backend") {
		cfg.StateBackend, _ = flags.GetString("state-backend")
	}
	if flags.Changed("runtime") {
		cfg.Runtime, _ = flags.GetString("runtime")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("probes") {
		cfg.ProbesFile, _ = flags.GetString("probes")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// addConfigFlags registers the overrides understood by loadConfig. Only
// flags present on cmd are consulted.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("state-file", storage.DefaultStatePath, "Path of the persisted state (MONITOR_STATE_FILE)")
	cmd.Flags().String("state-backend", storage.BackendFile, "State backend: file or bolt (STATE_BACKEND)")
	cmd.Flags().String("runtime", runtime.KindDocker, "Container runtime: docker or containerd (MONITOR_RUNTIME)")
}

func init() {
	addConfigFlags(runCmd)
	runCmd.Flags().Duration("interval", scheduler.DefaultInterval, "Poll interval (MONITOR_INTERVAL)")
	runCmd.Flags().String("metrics-addr", "", "Address for /health, /ready, /state and /metrics (METRICS_ADDR)")
	runCmd.Flags().String("probes", "", "YAML file with health probes (PROBES_FILE)")
	runCmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error (LOG_LEVEL)")
	runCmd.Flags().Bool("dry-run", false, "Log notifications instead of sending them to Telegram")
}
