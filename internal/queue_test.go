package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlushQueue(t *testing.T) {
	ids := func(q *FlushQueue) []uint64 {
		out := make([]uint64, 0, q.Len())
		for i := range q.Len() {
			out = append(out, q.At(i).ID())
		}
		return out
	}
	w := func(id uint64) *Watcher { return &Watcher{id: id} }

	t.Run("sort orders by id", func(t *testing.T) {
		q := NewFlushQueue()
		q.Push(w(3))
		q.Push(w(1))
		q.Push(w(2))
		q.Sort()

		assert.Equal(t, []uint64{1, 2, 3}, ids(q))
	})

	t.Run("insert keeps order after the cursor", func(t *testing.T) {
		q := NewFlushQueue()
		q.Push(w(2))
		q.Push(w(5))
		q.Push(w(8))

		q.InsertSorted(w(6), 0)
		assert.Equal(t, []uint64{2, 5, 6, 8}, ids(q))

		// lower ids than the cursor run next
		q.InsertSorted(w(1), 1)
		assert.Equal(t, []uint64{2, 5, 1, 6, 8}, ids(q))

		q.InsertSorted(w(9), 0)
		assert.Equal(t, []uint64{2, 5, 1, 6, 8, 9}, ids(q))
	})

	t.Run("reset empties the queue", func(t *testing.T) {
		q := NewFlushQueue()
		q.Push(w(1))
		q.Reset()

		assert.Equal(t, 0, q.Len())
	})
}

func TestCallbackQueue(t *testing.T) {
	q := NewCallbackQueue()
	log := []int{}

	q.Enqueue(func() error { log = append(log, 1); return nil })
	q.Enqueue(func() error { log = append(log, 2); return nil })

	taken := q.Take()
	assert.Equal(t, 0, q.Len())

	q.Enqueue(func() error { log = append(log, 3); return nil })
	for _, fn := range taken {
		fn()
	}

	assert.Equal(t, []int{1, 2}, log)
	assert.Equal(t, 1, q.Len())
}
