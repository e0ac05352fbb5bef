package metrics

import (
	"time"

	"github.com/cuemby/vigil/pkg/types"
)

// SnapshotSource returns a copy of the current monitor snapshot
type SnapshotSource func() *types.Snapshot

// Collector periodically refreshes gauges derived from the snapshot
type Collector struct {
	source   SnapshotSource
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source SnapshotSource, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops collecting metrics
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	snap := c.source()
	if snap == nil {
		return
	}

	var up, down int
	for _, state := range snap.Containers {
		if state.Available() {
			up++
		} else {
			down++
		}
	}

	ContainersTotal.WithLabelValues("available").Set(float64(up))
	ContainersTotal.WithLabelValues("unavailable").Set(float64(down))
}
