package internal

import (
	"context"
	"sync"
	"sync/atomic"
)

// microtask budget per drain before yielding back to the ingress queue
const microtaskBudget = 1024

// Loop owns a runtime and runs it on a single goroutine. Tick drains requested
// from the loop goroutine run as microtasks right after the current task;
// requests from other goroutines fall back to the ingress queue.
type Loop struct {
	rt *Runtime

	ingress    chan func()
	microtasks []func()

	// microtasks were moved behind the ingress queue and have not resumed yet
	yielded bool

	// goroutine id of the running loop, 0 when not running
	gid     atomic.Int64
	running atomic.Bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewLoop returns a loop and its runtime, configured with opts.
// The loop always acts as the runtime's driver.
func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		ingress:    make(chan func(), 1024),
		microtasks: make([]func(), 0, 64),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	l.rt = NewRuntime(append(opts, WithDriver(l))...)

	return l
}

func (l *Loop) Runtime() *Runtime { return l.rt }

// Run processes tasks on the calling goroutine until ctx is done or Stop is
// called. The loop's runtime is bound to that goroutine for the duration.
func (l *Loop) Run(ctx context.Context) error {
	if l.onLoop() {
		return ErrReentrantRun
	}
	select {
	case <-l.stop:
		return ErrLoopTerminated
	default:
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopAlreadyRunning
	}

	l.gid.Store(getGID())
	BindRuntime(l.rt)
	defer func() {
		UnbindRuntime()
		l.gid.Store(0)
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		case task := <-l.ingress:
			l.safeExecute(task)
			l.drainMicrotasks()
		}
	}
}

// Submit queues fn to run on the loop goroutine.
func (l *Loop) Submit(fn func()) error {
	select {
	case <-l.stop:
		return ErrLoopTerminated
	default:
	}

	select {
	case l.ingress <- fn:
		return nil
	case <-l.stop:
		return ErrLoopTerminated
	}
}

// Do runs fn on the loop and waits until it and the microtasks it scheduled
// have completed.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if l.onLoop() {
		return ErrReentrantRun
	}

	if err := l.Submit(fn); err != nil {
		return err
	}

	// ingress is FIFO: the marker runs after fn's microtasks were drained,
	// unless some were yielded, in which case it goes back behind them
	done := make(chan struct{})
	var marker func()
	marker = func() {
		if l.yielded {
			l.requeue(marker)
			return
		}
		close(done)
	}
	if err := l.Submit(marker); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopTerminated
	}
}

// Stop terminates the loop. Pending tasks are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Request implements Driver.
func (l *Loop) Request(drain func()) {
	if l.onLoop() {
		l.microtasks = append(l.microtasks, drain)
		return
	}

	if err := l.Submit(drain); err != nil {
		l.rt.logger.Debug().
			Err(err).
			Str("runtime", l.rt.id.String()).
			Msg("tick dropped")
	}
}

func (l *Loop) onLoop() bool {
	gid := l.gid.Load()
	return gid != 0 && gid == getGID()
}

func (l *Loop) drainMicrotasks() {
	if len(l.microtasks) > 10*microtaskBudget {
		l.rt.logger.Warn().
			Str("runtime", l.rt.id.String()).
			Int("microtasks", len(l.microtasks)).
			Msg("microtask queue is large: potential infinite loop?")
	}

	executed := 0
	for len(l.microtasks) > 0 {
		if executed >= microtaskBudget {
			// yield: the remainder runs after the next ingress task
			if l.yield() {
				return
			}
			executed = 0
		}

		t := l.microtasks[0]
		l.microtasks[0] = nil
		l.microtasks = l.microtasks[1:]

		l.safeExecute(t)
		executed++
	}

	if cap(l.microtasks) > 1024 {
		l.microtasks = make([]func(), 0, 64)
	}
}

// yield moves the pending microtasks behind the ingress queue. It reports
// false if the ingress queue is full, in which case draining continues.
func (l *Loop) yield() bool {
	rest := l.microtasks
	resume := func() {
		l.yielded = false
		l.microtasks = append(rest, l.microtasks...)
	}

	select {
	case l.ingress <- resume:
		l.microtasks = make([]func(), 0, 64)
		l.yielded = true
		return true
	default:
		return false
	}
}

// requeue puts fn back on the ingress queue from the loop goroutine without
// blocking it.
func (l *Loop) requeue(fn func()) {
	select {
	case l.ingress <- fn:
	default:
		go l.Submit(fn)
	}
}

func (l *Loop) safeExecute(fn func()) {
	if err := safeCall(fn); err != nil {
		l.rt.handleError(err, nil, "loop task")
	}
}
