package internal

import (
	"github.com/rs/zerolog"

	"github.com/AnatoleLucet/reactive/internal/observability"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithAsync selects whether invalidations are flushed on the next tick (true,
// the default) or synchronously as soon as they are queued.
func WithAsync(async bool) Option {
	return func(r *Runtime) { r.async = async }
}

// WithMaxUpdateCount sets how many times a watcher may re-queue itself within
// one flush before the flush is aborted.
func WithMaxUpdateCount(n int) Option {
	return func(r *Runtime) { r.maxUpdateCount = n }
}

// WithDriver sets the driver that runs tick drains.
func WithDriver(d Driver) Option {
	return func(r *Runtime) { r.driver = d }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

// WithSilent suppresses warnings.
func WithSilent(silent bool) Option {
	return func(r *Runtime) { r.silent = silent }
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Runtime) { r.errorHandler = h }
}

func WithWarnHandler(h WarnHandler) Option {
	return func(r *Runtime) { r.warnHandler = h }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runtime) { r.metrics = m }
}

// WithTracer sets the tracer used for flush spans. A nil tracer disables tracing.
func WithTracer(t *observability.Tracer) Option {
	return func(r *Runtime) { r.tracer = t }
}
