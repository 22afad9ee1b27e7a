package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDSet(t *testing.T) {
	s := newIDSet()

	assert.True(t, s.Add(3))
	assert.True(t, s.Add(1))
	assert.False(t, s.Add(3))
	assert.Equal(t, []uint64{3, 1}, s.Snapshot())

	s.Remove(3)
	s.Remove(42)
	assert.False(t, s.Has(3))
	assert.Equal(t, 1, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.Add(3))
}

func TestDep(t *testing.T) {
	t.Run("subscribers are kept once in subscription order", func(t *testing.T) {
		r := newTestRuntime()
		d := r.NewDep()

		a, _ := r.NewWatcher(nil, nil, WatcherOptions{Lazy: true})
		b, _ := r.NewWatcher(nil, nil, WatcherOptions{Lazy: true})

		d.AddSub(b)
		d.AddSub(a)
		d.AddSub(b)
		assert.Equal(t, []uint64{b.ID(), a.ID()}, d.Subs())

		d.RemoveSub(b)
		assert.Equal(t, []uint64{a.ID()}, d.Subs())
	})

	t.Run("depend outside a watcher records nothing", func(t *testing.T) {
		r := newTestRuntime()
		d := r.NewDep()

		d.Depend()
		assert.Empty(t, d.Subs())
	})

	t.Run("notify survives subscribers leaving mid-iteration", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(map[string]any{"a": 1})
		log := []string{}

		var second *Watcher
		r.NewWatcher(func() (any, error) {
			return obj.Get("a"), nil
		}, func(value, oldValue any) error {
			log = append(log, "first")
			second.Teardown()
			return nil
		}, WatcherOptions{Sync: true})

		second, _ = r.NewWatcher(func() (any, error) {
			return obj.Get("a"), nil
		}, func(value, oldValue any) error {
			log = append(log, "second")
			return nil
		}, WatcherOptions{Sync: true})

		obj.Assign("a", 2)
		assert.Equal(t, []string{"first"}, log)
	})
}
