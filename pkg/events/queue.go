package events

import (
	"sync"

	"github.com/cuemby/vigil/pkg/log"
	"github.com/cuemby/vigil/pkg/metrics"
	"github.com/rs/zerolog"
)

// DefaultQueueSize is the hint queue capacity when none is configured
const DefaultQueueSize = 100

// HintQueue is a bounded hand-off between the event stream and the worker.
// When full, the incoming hint is dropped; the periodic poll re-observes
// every container, so a dropped hint only delays detection.
type HintQueue struct {
	ch     chan Hint
	mu     sync.RWMutex
	closed bool
	logger zerolog.Logger
}

// NewHintQueue creates a queue holding up to size pending hints
func NewHintQueue(size int) *HintQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &HintQueue{
		ch:     make(chan Hint, size),
		logger: log.WithComponent("events"),
	}
}

// Offer enqueues h without blocking and reports whether it was accepted
func (q *HintQueue) Offer(h Hint) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.ch <- h:
		metrics.HintsTotal.Inc()
		return true
	default:
		metrics.HintsDropped.Inc()
		q.logger.Warn().
			Str("container", h.Name).
			Int("capacity", cap(q.ch)).
			Msg("Hint queue is full, dropping event")
		return false
	}
}

// C returns the channel the consumer drains
func (q *HintQueue) C() <-chan Hint {
	return q.ch
}

// Len returns the number of pending hints
func (q *HintQueue) Len() int {
	return len(q.ch)
}

// Close stops accepting hints; pending hints stay readable
func (q *HintQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
