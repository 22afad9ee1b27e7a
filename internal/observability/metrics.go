package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the scheduler metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reactive").
	Namespace string

	// Subsystem is the metrics subsystem (default: "scheduler").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

type MetricsOption func(*MetricsConfig)

func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "reactive",
		Subsystem: "scheduler",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics records scheduler activity. A nil *Metrics records nothing.
type Metrics struct {
	flushes       prometheus.Counter
	flushDuration prometheus.Histogram
	queueLength   prometheus.Histogram
	flushRuns     prometheus.Histogram
	enqueued      prometheus.Counter
	watchersRun   prometheus.Counter
	runaways      prometheus.Counter
	evalErrors    *prometheus.CounterVec
}

// NewMetrics creates and registers the scheduler metrics. Registering twice
// on the same registry panics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of completed flushes.",
			ConstLabels: config.ConstLabels,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Flush duration in seconds.",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		queueLength: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "queue_length",
			Help:        "Number of watchers queued per flush.",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
		}),

		flushRuns: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_watcher_runs",
			Help:        "Number of watchers run per flush.",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
		}),

		enqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "watchers_enqueued_total",
			Help:        "Total number of watchers added to the flush queue.",
			ConstLabels: config.ConstLabels,
		}),

		watchersRun: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "watcher_runs_total",
			Help:        "Total number of watcher runs performed by flushes.",
			ConstLabels: config.ConstLabels,
		}),

		runaways: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "runaway_flushes_total",
			Help:        "Total number of flushes aborted by the update limit.",
			ConstLabels: config.ConstLabels,
		}),

		evalErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "eval_errors_total",
			Help:        "Total number of watcher getter and callback faults.",
			ConstLabels: config.ConstLabels,
		}, []string{"phase", "user"}),
	}
}

func (m *Metrics) Enqueued() {
	if m == nil {
		return
	}
	m.enqueued.Inc()
}

func (m *Metrics) WatcherRan() {
	if m == nil {
		return
	}
	m.watchersRun.Inc()
}

// Flushed records a completed flush of queued watchers, ran of which ran.
func (m *Metrics) Flushed(duration time.Duration, queued, ran int) {
	if m == nil {
		return
	}
	m.flushes.Inc()
	m.flushDuration.Observe(duration.Seconds())
	m.queueLength.Observe(float64(queued))
	m.flushRuns.Observe(float64(ran))
}

func (m *Metrics) Runaway() {
	if m == nil {
		return
	}
	m.runaways.Inc()
}

func (m *Metrics) EvalError(user bool, phase string) {
	if m == nil {
		return
	}
	m.evalErrors.WithLabelValues(phase, strconv.FormatBool(user)).Inc()
}
