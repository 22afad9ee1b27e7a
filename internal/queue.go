package internal

import (
	"cmp"
	"slices"
)

// FlushQueue holds the watchers pending for the next flush.
// It is unordered while collecting; Sort orders it by id when the flush
// starts, and InsertSorted keeps that order for watchers queued mid-flush.
type FlushQueue struct {
	watchers []*Watcher
}

func NewFlushQueue() *FlushQueue {
	return &FlushQueue{
		watchers: make([]*Watcher, 0, 64),
	}
}

func (q *FlushQueue) Push(w *Watcher) {
	q.watchers = append(q.watchers, w)
}

// InsertSorted inserts w after the last queued watcher with a smaller id,
// but never at or before the cursor.
func (q *FlushQueue) InsertSorted(w *Watcher, cursor int) {
	i := len(q.watchers) - 1
	for i > cursor && q.watchers[i].id > w.id {
		i--
	}

	q.watchers = slices.Insert(q.watchers, i+1, w)
}

func (q *FlushQueue) Sort() {
	slices.SortFunc(q.watchers, func(a, b *Watcher) int {
		return cmp.Compare(a.id, b.id)
	})
}

func (q *FlushQueue) Len() int { return len(q.watchers) }

func (q *FlushQueue) At(i int) *Watcher { return q.watchers[i] }

func (q *FlushQueue) Reset() {
	clear(q.watchers)
	q.watchers = q.watchers[:0]
}

// CallbackQueue is a FIFO of deferred callbacks.
type CallbackQueue struct {
	callbacks []func() error
}

func NewCallbackQueue() *CallbackQueue {
	return &CallbackQueue{
		callbacks: make([]func() error, 0),
	}
}

func (q *CallbackQueue) Enqueue(fn func() error) {
	q.callbacks = append(q.callbacks, fn)
}

// Take returns the queued callbacks and leaves the queue empty, so callbacks
// enqueued while the returned ones run belong to the next batch.
func (q *CallbackQueue) Take() []func() error {
	callbacks := q.callbacks
	q.callbacks = make([]func() error, 0, len(callbacks))
	return callbacks
}

func (q *CallbackQueue) Len() int { return len(q.callbacks) }
