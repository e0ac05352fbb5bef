package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reconciliation metrics
	ReconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_reconciliations_total",
			Help: "Total number of reconciliations by trigger source",
		},
		[]string{"source"},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_reconciliation_duration_seconds",
			Help:    "Time spent applying one observation to the snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	PollCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_poll_cycle_duration_seconds",
			Help:    "Time taken by a full poll cycle including inspector calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_notifications_total",
			Help: "Total number of notification intents by kind",
		},
		[]string{"kind"},
	)

	NotificationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_notification_failures_total",
			Help: "Total number of notifications that could not be delivered",
		},
	)

	ContainersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vigil_containers",
			Help: "Number of tracked containers by availability",
		},
		[]string{"availability"},
	)

	// Event stream metrics
	HintsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_hints_total",
			Help: "Total number of runtime events accepted by the filter",
		},
	)

	HintsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_hints_dropped_total",
			Help: "Total number of hints dropped because the queue was full",
		},
	)

	StreamReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_stream_reconnects_total",
			Help: "Total number of event stream reconnections",
		},
	)

	// Error metrics
	ObservationErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_observation_errors_total",
			Help: "Total number of failed inspector queries",
		},
	)

	StateSaveFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_state_save_failures_total",
			Help: "Total number of failed state snapshot writes",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ReconciliationsTotal)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(PollCycleDuration)
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(NotificationFailuresTotal)
	prometheus.MustRegister(ContainersTotal)
	prometheus.MustRegister(HintsTotal)
	prometheus.MustRegister(HintsDropped)
	prometheus.MustRegister(StreamReconnectsTotal)
	prometheus.MustRegister(ObservationErrorsTotal)
	prometheus.MustRegister(StateSaveFailuresTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the duration of an operation
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in seconds on a histogram
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}
