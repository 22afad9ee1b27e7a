package internal

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AnatoleLucet/reactive/internal/logging"
	"github.com/AnatoleLucet/reactive/internal/observability"
)

// ErrorHandler receives errors no owner handled.
type ErrorHandler func(err error, owner *Owner, info string)

// WarnHandler receives diagnostic warnings.
type WarnHandler func(msg string, owner *Owner)

// Runtime holds the whole reactive state: deps, watchers, the scheduler and
// the tick coalescer. A runtime is not safe for concurrent use; each
// goroutine gets its own through GetRuntime.
type Runtime struct {
	id uuid.UUID

	nextDepID     uint64
	nextWatcherID uint64

	// every live watcher by id; deps refer to subscribers by id
	watchers map[uint64]*Watcher

	// observers of the wrappers built for raw maps and slices
	adopted map[rawKey]*Observer

	tracker   *Tracker
	batcher   *Batcher
	scheduler *Scheduler
	ticker    *Ticker

	// observation of new values is enabled
	observing bool

	async          bool
	maxUpdateCount int
	silent         bool

	logger       zerolog.Logger
	errorHandler ErrorHandler
	warnHandler  WarnHandler

	metrics *observability.Metrics
	tracer  *observability.Tracer

	driver Driver
}

func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		id:       uuid.New(),
		watchers: make(map[uint64]*Watcher),
		adopted:  make(map[rawKey]*Observer),

		tracker: NewTracker(),
		batcher: NewBatcher(),

		observing:      true,
		async:          true,
		maxUpdateCount: MaxUpdateCount,

		logger: defaultLogger(),
		tracer: observability.NewTracer(observability.DefaultTracerName),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.driver == nil {
		r.driver = NewManualDriver()
	}
	if r.maxUpdateCount <= 0 {
		r.maxUpdateCount = MaxUpdateCount
	}

	r.scheduler = NewScheduler(r)
	r.ticker = NewTicker(r, r.driver)

	return r
}

func defaultLogger() zerolog.Logger {
	logger, err := logging.New(logging.Options{Timestamp: true})
	if err != nil {
		return zerolog.Nop()
	}
	return logger
}

func (r *Runtime) ID() uuid.UUID { return r.id }

func (r *Runtime) Logger() zerolog.Logger { return r.logger }

func (r *Runtime) Tracker() *Tracker { return r.tracker }

func (r *Runtime) Scheduler() *Scheduler { return r.scheduler }

func (r *Runtime) Ticker() *Ticker { return r.ticker }

func (r *Runtime) Metrics() *observability.Metrics { return r.metrics }

func (r *Runtime) Async() bool { return r.async }

func (r *Runtime) MaxUpdateCount() int { return r.maxUpdateCount }

// WatcherCount returns the number of live watchers.
func (r *Runtime) WatcherCount() int { return len(r.watchers) }

func (r *Runtime) CurrentOwner() *Owner {
	return r.tracker.CurrentOwner()
}

// CurrentWatcher returns the watcher being evaluated, if any.
func (r *Runtime) CurrentWatcher() *Watcher {
	return r.tracker.Target()
}

// OnCleanup registers fn on the current owner. It is a no-op outside an owner.
func (r *Runtime) OnCleanup(fn func()) {
	owner := r.CurrentOwner()
	if owner != nil {
		owner.OnCleanup(fn)
	}
}

// NextTick schedules fn to run in the next drain, after any pending flush.
func (r *Runtime) NextTick(fn func() error) {
	r.ticker.Schedule(fn)
}

// Tick drains the pending callbacks when the runtime is driven manually, and
// reports whether there were any.
func (r *Runtime) Tick() bool {
	d, ok := r.driver.(*ManualDriver)
	if !ok {
		return false
	}
	return d.Tick()
}

// Settle ticks until nothing is pending.
func (r *Runtime) Settle() {
	for r.Tick() {
	}
}

// FlushSync runs the pending flush now instead of waiting for the tick.
// The tick's own flush then finds nothing left to do.
func (r *Runtime) FlushSync() error {
	return r.scheduler.FlushNow()
}

// Untracked calls fn without recording dependencies for the current watcher.
func (r *Runtime) Untracked(fn func()) {
	r.tracker.RunUntracked(fn)
}

// SetObserving enables or disables observation of new values. While
// disabled, Observe returns nil and fields keep raw containers as they are.
func (r *Runtime) SetObserving(enabled bool) {
	r.observing = enabled
}

func (r *Runtime) Observing() bool { return r.observing }

func (r *Runtime) watcher(id uint64) *Watcher {
	return r.watchers[id]
}

func (r *Runtime) release(w *Watcher) {
	delete(r.watchers, w.id)
}

func (r *Runtime) warn(msg string, owner *Owner) {
	if r.silent {
		return
	}

	if r.warnHandler != nil {
		r.warnHandler(msg, owner)
		return
	}

	r.logger.Warn().
		Str("runtime", r.id.String()).
		Msg(msg)
}

// handleError hands err to the error catchers of owner and its ancestors,
// then to the error handler, and logs it as a last resort.
func (r *Runtime) handleError(err error, owner *Owner, info string) {
	if owner != nil && owner.catch(err, info) {
		return
	}

	if r.errorHandler != nil {
		r.errorHandler(err, owner, info)
		return
	}

	r.logger.Error().
		Err(err).
		Str("runtime", r.id.String()).
		Str("info", info).
		Msg("reactive: unhandled error")
}

func (r *Runtime) runaway(err *RunawayError, owner *Owner) {
	r.metrics.Runaway()

	r.logger.Debug().
		Str("runtime", r.id.String()).
		Uint64("watcher", err.Watcher).
		Str("expression", err.Expression).
		Int("count", err.Count).
		Msg("flush aborted")

	r.warn(err.Error(), owner)
}

func (r *Runtime) String() string {
	return fmt.Sprintf("Runtime(%s)", r.id)
}
