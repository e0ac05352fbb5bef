package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/vigil/pkg/events"
	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/metrics"
	"github.com/cuemby/vigil/pkg/notify"
	"github.com/cuemby/vigil/pkg/reconciler"
	"github.com/cuemby/vigil/pkg/runtime"
	"github.com/cuemby/vigil/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultInterval is the poll period
	DefaultInterval = 60 * time.Second

	// DefaultStreamBackoff is the wait before resubscribing to the runtime
	DefaultStreamBackoff = 5 * time.Second
)

// Config tunes the scheduler
type Config struct {
	Interval      time.Duration
	StreamBackoff time.Duration
	QueueSize     int
}

// Scheduler drives the reconciliation engine from two producers: the
// runtime event stream and a fixed-interval poll. Hints and poll ticks are
// handled by a single worker goroutine, so reconciliations never overlap.
type Scheduler struct {
	engine    *reconciler.Engine
	inspector runtime.Inspector
	discovery *runtime.Discovery
	notifier  notify.Notifier
	filter    *events.Filter
	queue     *events.HintQueue

	interval time.Duration
	backoff  time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	cancel   context.CancelFunc
	stopCh   chan struct{}
	doneCh   chan error
	stopOnce sync.Once
	stopErr  error
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(engine *reconciler.Engine, inspector runtime.Inspector, discovery *runtime.Discovery, notifier notify.Notifier, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.StreamBackoff <= 0 {
		cfg.StreamBackoff = DefaultStreamBackoff
	}

	return &Scheduler{
		engine:    engine,
		inspector: inspector,
		discovery: discovery,
		notifier:  notifier,
		filter:    events.NewFilter(discovery.Match),
		queue:     events.NewHintQueue(cfg.QueueSize),
		interval:  cfg.Interval,
		backoff:   cfg.StreamBackoff,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    log.WithComponent("scheduler"),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan error, 1),
	}
}

// Start begins the stream consumer and the worker loop
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.consumeStream(ctx)

	go func() {
		s.doneCh <- s.run(ctx)
	}()
}

// Stop stops accepting hints, waits for the in-flight reconciliation and
// its notifications, persists the snapshot once more and releases the
// event subscription. It returns the error of the final save. Stop
// before Start is a no-op; repeated calls return the first result.
func (s *Scheduler) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.stopErr = <-s.doneCh
	})
	return s.stopErr
}

// run is the single worker: every reconciliation happens here
func (s *Scheduler) run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	names := s.candidates(ctx)
	if len(names) > 0 {
		s.logger.Info().Strs("containers", names).Msg("Starting monitoring")
		s.deliver(ctx, &types.Intent{
			ID:    uuid.NewString(),
			Kind:  types.IntentStartup,
			At:    s.now(),
			Names: names,
		})
	} else {
		s.logger.Warn().Msg("No containers to monitor yet")
	}
	s.reconcileAll(ctx, names)

	for {
		select {
		case <-ticker.C:
			s.Poll(ctx)
		case hint, ok := <-s.queue.C():
			if !ok {
				continue
			}
			s.handleHint(ctx, hint)
		case <-s.stopCh:
			return s.shutdown()
		case <-ctx.Done():
			return s.shutdown()
		}
	}
}

func (s *Scheduler) shutdown() error {
	s.cancel()
	s.queue.Close()
	s.wg.Wait()

	if pending := s.queue.Len(); pending > 0 {
		s.logger.Debug().Int("pending", pending).Msg("Discarding queued hints")
	}

	if err := s.engine.Flush(); err != nil {
		s.logger.Error().Err(err).Msg("Final state save failed")
		return err
	}
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// Poll observes every monitored container once. It must only be called
// from the worker goroutine or before Start.
func (s *Scheduler) Poll(ctx context.Context) {
	s.reconcileAll(ctx, s.candidates(ctx))
}

func (s *Scheduler) candidates(ctx context.Context) []string {
	names, err := s.discovery.Candidates(ctx, s.inspector)
	if err != nil {
		metrics.ObservationErrorsTotal.Inc()
		metrics.UpdateComponent(metrics.ComponentRuntime, false, err.Error())
		s.logger.Error().Err(err).Msg("Container discovery failed")
		return nil
	}
	return names
}

func (s *Scheduler) reconcileAll(ctx context.Context, names []string) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PollCycleDuration)

	s.logger.Info().Int("containers", len(names)).Msg("Periodic check")

	batch := make([]reconciler.Observed, 0, len(names))
	for _, name := range names {
		obs, err := s.inspector.Inspect(ctx, name)
		if err != nil {
			metrics.ObservationErrorsTotal.Inc()
			s.logger.Error().Err(err).Str("container", name).Msg("Failed to inspect container, skipping")
			continue
		}
		batch = append(batch, reconciler.Observed{Name: name, Observation: obs})
	}

	if len(names) > 0 {
		if len(batch) == 0 {
			metrics.UpdateComponent(metrics.ComponentRuntime, false, "all inspections failed")
		} else {
			metrics.UpdateComponent(metrics.ComponentRuntime, true, "")
		}
	}
	metrics.ReconciliationsTotal.WithLabelValues("poll").Add(float64(len(batch)))

	for _, intent := range s.engine.ReconcileBatch(batch, s.now()) {
		s.deliver(ctx, intent)
	}
}

func (s *Scheduler) handleHint(ctx context.Context, hint events.Hint) {
	obs, err := s.inspector.Inspect(ctx, hint.Name)
	if err != nil {
		metrics.ObservationErrorsTotal.Inc()
		s.logger.Error().Err(err).Str("container", hint.Name).Msg("Failed to inspect container after event")
		return
	}

	metrics.ReconciliationsTotal.WithLabelValues("event").Inc()
	if intent := s.engine.Reconcile(hint.Name, obs, s.now()); intent != nil {
		s.deliver(ctx, intent)
	}
}

func (s *Scheduler) deliver(ctx context.Context, intent *types.Intent) {
	s.notifier.Notify(ctx, *intent)
}

// consumeStream feeds filtered events into the hint queue and resubscribes
// after a fixed backoff whenever the stream ends
func (s *Scheduler) consumeStream(ctx context.Context) {
	defer s.wg.Done()

	for {
		err := s.drain(ctx)
		if ctx.Err() != nil {
			return
		}

		metrics.StreamReconnectsTotal.Inc()
		metrics.UpdateComponent(metrics.ComponentEventStream, false, "disconnected")
		s.logger.Warn().Err(err).Dur("backoff", s.backoff).Msg("Event stream lost, reconnecting")

		select {
		case <-time.After(s.backoff):
		case <-ctx.Done():
			return
		}
	}
}

// drain reads one subscription until it fails or ctx is cancelled
func (s *Scheduler) drain(ctx context.Context) error {
	stream, errs := s.inspector.Subscribe(ctx)
	metrics.UpdateComponent(metrics.ComponentEventStream, true, "")
	s.logger.Info().Msg("Listening for container events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return err
		case ev, ok := <-stream:
			if !ok {
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}
			hint, relevant := s.filter.Classify(ev)
			if !relevant {
				continue
			}
			s.logger.Debug().Str("container", hint.Name).Str("action", ev.Action).Msg("Event received")
			s.queue.Offer(hint)
		}
	}
}
