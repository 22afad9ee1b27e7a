package internal

import (
	"slices"
	"time"
)

// MaxUpdateCount is the default number of times a single watcher may re-queue
// itself within one flush before the flush is aborted.
const MaxUpdateCount = 100

// FlushHook runs after a flush with the watchers that ran, in run order.
type FlushHook func(ran []*Watcher)

// Scheduler coalesces watcher invalidations into a flush that runs each
// queued watcher once, in creation order.
type Scheduler struct {
	rt *Runtime

	queue     *FlushQueue
	activated []*Owner
	hooks     []FlushHook

	// ids currently queued
	has map[uint64]bool

	// per-watcher re-queue count for the current flush
	circular map[uint64]int

	// a flush has been requested and not yet started
	waiting bool

	// a flush is walking the queue
	flushing bool

	// post-flush hooks are running
	runningHooks bool

	// position of the flush cursor
	index int

	// incremented each time a flush completes
	clock int

	flushedAt time.Time
}

func NewScheduler(rt *Runtime) *Scheduler {
	return &Scheduler{
		rt:       rt,
		queue:    NewFlushQueue(),
		has:      make(map[uint64]bool),
		circular: make(map[uint64]int),
	}
}

// Queue adds w to the pending flush unless it is already pending. While a
// flush is running, w is spliced in by id after the cursor so it runs in this
// same flush.
func (s *Scheduler) Queue(w *Watcher) {
	if s.has[w.id] {
		return
	}
	s.has[w.id] = true

	if !s.flushing {
		s.queue.Push(w)
	} else {
		s.queue.InsertSorted(w, s.index)
	}
	s.rt.metrics.Enqueued()

	s.request(w.owner)
}

// request arranges a flush unless one is already pending.
func (s *Scheduler) request(owner *Owner) {
	if s.waiting {
		return
	}
	s.waiting = true

	if !s.rt.async && !s.runningHooks && !s.rt.batcher.IsBatching() {
		if err := s.Flush(); err != nil {
			s.rt.handleError(err, owner, "scheduler flush")
		}
		return
	}

	s.rt.ticker.Schedule(s.flushFromTick)
}

// QueueActivated records an owner that was re-activated. Its activated hooks
// run after the next flush, once its watchers have settled.
func (s *Scheduler) QueueActivated(o *Owner) {
	o.inactive = false
	s.activated = append(s.activated, o)

	if !s.flushing {
		s.request(o)
	}
}

// OnFlushed registers a hook that runs after every completed flush.
func (s *Scheduler) OnFlushed(hook FlushHook) {
	s.hooks = append(s.hooks, hook)
}

func (s *Scheduler) flushFromTick() error {
	// a synchronous flush already consumed the queue
	if !s.waiting || s.flushing {
		return nil
	}
	return s.Flush()
}

// FlushNow runs the pending flush synchronously. It does nothing if no flush
// is pending, or if a flush or its post-flush hooks are already running.
func (s *Scheduler) FlushNow() error {
	if !s.waiting || s.flushing || s.runningHooks {
		return nil
	}
	return s.Flush()
}

// Flush sorts the queue by watcher id and runs every queued watcher once.
// Watchers queued while flushing join the current flush. A watcher that
// re-queues itself more than the configured max update count aborts the flush
// with a warning.
//
// A watcher fault that a user handler did not absorb stops the flush: the
// scheduler is reset, post-flush hooks are skipped and the error is returned.
func (s *Scheduler) Flush() error {
	started := time.Now()
	s.flushedAt = started
	s.flushing = true

	span := s.rt.tracer.StartFlush(s.rt.id.String(), s.queue.Len())

	s.queue.Sort()

	ran := make([]*Watcher, 0, s.queue.Len())
	var runErr error

	for s.index = 0; s.index < s.queue.Len(); s.index++ {
		w := s.queue.At(s.index)

		if w.before != nil && w.active {
			if err := safeCall(w.before); err != nil {
				s.rt.handleError(err, w.owner, "before hook for watcher \""+w.expression+"\"")
			}
		}

		id := w.id
		delete(s.has, id)

		// torn down after it was queued
		if !w.active {
			continue
		}

		if err := w.Run(); err != nil {
			runErr = err
			break
		}
		ran = append(ran, w)
		s.rt.metrics.WatcherRan()

		if s.has[id] {
			s.circular[id]++
			if s.circular[id] > s.rt.maxUpdateCount {
				s.rt.runaway(&RunawayError{
					Watcher:    w.id,
					Expression: w.expression,
					User:       w.user,
					Count:      s.circular[id],
				}, w.owner)
				break
			}
		}
	}

	activated := slices.Clone(s.activated)
	queued := s.queue.Len()
	s.reset()

	span.End(len(ran), runErr)
	s.rt.metrics.Flushed(time.Since(started), queued, len(ran))

	if runErr != nil {
		return runErr
	}

	s.runHooks(activated, ran)
	return nil
}

func (s *Scheduler) runHooks(activated []*Owner, ran []*Watcher) {
	s.runningHooks = true
	defer func() { s.runningHooks = false }()

	for _, o := range activated {
		o.inactive = true
		o.Activate()
	}

	// children were created after their parents, so updated hooks run child first
	for i := len(ran) - 1; i >= 0; i-- {
		w := ran[i]
		o := w.owner
		if o != nil && o.render == w && o.mounted && !o.destroyed {
			o.callHook(HookUpdated)
		}
	}

	for _, hook := range s.hooks {
		hook(ran)
	}
}

func (s *Scheduler) reset() {
	s.index = 0
	s.queue.Reset()
	s.activated = s.activated[:0]
	clear(s.has)
	clear(s.circular)
	s.waiting = false
	s.flushing = false
	s.clock++
}

func (s *Scheduler) Flushing() bool { return s.flushing }

// Waiting reports whether a flush is pending.
func (s *Scheduler) Waiting() bool { return s.waiting }

// Len returns the number of queued watchers.
func (s *Scheduler) Len() int { return s.queue.Len() }

// Time returns the number of completed flushes.
func (s *Scheduler) Time() int { return s.clock }

// FlushTimestamp returns when the latest flush started.
func (s *Scheduler) FlushTimestamp() time.Time { return s.flushedAt }

func safeCall(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()

	fn()
	return nil
}
