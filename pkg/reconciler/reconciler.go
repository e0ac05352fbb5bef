package reconciler

import (
	"sync"
	"time"

	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/metrics"
	"github.com/cuemby/vigil/pkg/storage"
	"github.com/cuemby/vigil/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Observed pairs a container name with a fresh observation
type Observed struct {
	Name        string
	Observation types.Observation
}

// Engine merges observations into the monitor snapshot and classifies
// transitions. It owns the only mutable reference to the snapshot; every
// mutation happens under mu and is followed by a save.
//
// Engine performs no runtime I/O: callers inspect containers first and
// hand the results in, so a reconciliation is bounded by memory work plus
// one store write.
type Engine struct {
	mu     sync.Mutex
	snap   *types.Snapshot
	store  storage.Store
	logger zerolog.Logger
	newID  func() string
}

// NewEngine creates an engine seeded with the store's last snapshot
func NewEngine(store storage.Store) *Engine {
	return &Engine{
		snap:   store.Load(),
		store:  store,
		logger: log.WithComponent("reconciler"),
		newID:  uuid.NewString,
	}
}

// Reconcile applies one observation, persists the snapshot and returns the
// notification to deliver, or nil.
func (e *Engine) Reconcile(name string, obs types.Observation, now time.Time) *types.Intent {
	e.mu.Lock()
	defer e.mu.Unlock()

	intent := e.apply(name, obs, now)
	e.persist()
	return intent
}

// ReconcileBatch applies a full poll cycle and persists once at the end
func (e *Engine) ReconcileBatch(batch []Observed, now time.Time) []*types.Intent {
	e.mu.Lock()
	defer e.mu.Unlock()

	var intents []*types.Intent
	for _, o := range batch {
		if intent := e.apply(o.Name, o.Observation, now); intent != nil {
			intents = append(intents, intent)
		}
	}
	e.persist()
	return intents
}

// Flush persists the current snapshot and returns the store error, if any
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.Save(e.snap)
}

// Snapshot returns a deep copy of the current snapshot
func (e *Engine) Snapshot() *types.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.snap.Clone()
}

// State returns a copy of the stored state for one container
func (e *Engine) State(name string) (*types.ContainerState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.snap.Containers[name]
	if !ok {
		return nil, false
	}
	return state.Clone(), true
}

// apply runs the transition state machine for one container. Must hold mu.
func (e *Engine) apply(name string, obs types.Observation, now time.Time) *types.Intent {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReconciliationDuration)

	now = now.UTC()
	logger := e.logger.With().Str("container", name).Logger()
	isAvailable := obs.Available()

	prev, known := e.snap.Containers[name]
	if !known {
		state := &types.ContainerState{
			Name:       name,
			Status:     obs.Status,
			Health:     obs.Health,
			LastCheck:  now,
			LastStatus: obs.Status,
		}
		e.snap.Containers[name] = state
		e.touch(now)

		if isAvailable {
			logger.Info().Str("status", string(obs.Status)).Msg("Container observed for the first time")
			return nil
		}

		start := now
		state.DowntimeStart = &start
		logger.Warn().Str("status", string(obs.Status)).Msg("Container is down on first observation")
		return e.newIntent(types.IntentDown, name, now, func(i *types.Intent) {
			i.Status = obs.Status
			i.Health = obs.Health
		})
	}

	// lastCheck never moves backwards; a late observation is evaluated at
	// the last recorded check time.
	if now.Before(prev.LastCheck) {
		now = prev.LastCheck
	}

	wasAvailable := prev.Available()
	oldStatus := prev.Status

	prev.Status = obs.Status
	prev.Health = obs.Health
	prev.LastCheck = now
	e.touch(now)

	var intent *types.Intent
	switch {
	case wasAvailable && !isAvailable:
		start := now
		prev.DowntimeStart = &start
		prev.LastStatus = obs.Status
		logger.Warn().
			Str("status", string(obs.Status)).
			Str("health", string(obs.Health)).
			Msg("Container went down")
		intent = e.newIntent(types.IntentDown, name, now, func(i *types.Intent) {
			i.Status = obs.Status
			i.OldStatus = oldStatus
			i.Health = obs.Health
		})

	case !wasAvailable && isAvailable:
		var downtime int64
		if prev.DowntimeStart != nil {
			if d := now.Sub(*prev.DowntimeStart); d > 0 {
				downtime = int64(d / time.Second)
			}
		}
		prev.DowntimeStart = nil
		prev.LastStatus = obs.Status
		logger.Info().Int64("downtime_seconds", downtime).Msg("Container recovered")
		intent = e.newIntent(types.IntentRecovered, name, now, func(i *types.Intent) {
			i.Status = obs.Status
			i.OldStatus = oldStatus
			i.Health = obs.Health
			i.DowntimeSeconds = downtime
		})

	case obs.Status != oldStatus && obs.Status != prev.LastStatus:
		prev.LastStatus = obs.Status
		logger.Info().
			Str("old_status", string(oldStatus)).
			Str("status", string(obs.Status)).
			Msg("Container status changed")
		intent = e.newIntent(types.IntentChanged, name, now, func(i *types.Intent) {
			i.Status = obs.Status
			i.OldStatus = oldStatus
			i.Health = obs.Health
		})

	default:
		logger.Debug().Str("status", string(obs.Status)).Msg("No transition")
	}

	// Keep downtimeStart consistent with availability for records written
	// by older versions or edited by hand.
	switch {
	case !isAvailable && prev.DowntimeStart == nil:
		start := now
		prev.DowntimeStart = &start
	case isAvailable && prev.DowntimeStart != nil:
		prev.DowntimeStart = nil
	}

	return intent
}

func (e *Engine) touch(now time.Time) {
	if now.After(e.snap.LastUpdate) {
		e.snap.LastUpdate = now
	}
}

func (e *Engine) newIntent(kind types.IntentKind, name string, at time.Time, fill func(*types.Intent)) *types.Intent {
	intent := &types.Intent{
		ID:   e.newID(),
		Kind: kind,
		Name: name,
		At:   at,
	}
	fill(intent)
	metrics.NotificationsTotal.WithLabelValues(string(kind)).Inc()
	return intent
}

// persist saves the snapshot; a failure is logged and the in-memory
// snapshot remains authoritative until the next successful save.
func (e *Engine) persist() {
	if err := e.store.Save(e.snap); err != nil {
		metrics.StateSaveFailuresTotal.Inc()
		e.logger.Error().Err(err).Msg("Failed to persist monitor state")
	}
}
