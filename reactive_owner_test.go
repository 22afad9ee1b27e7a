package reactive

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnatoleLucet/reactive/internal"
)

func TestOwner(t *testing.T) {
	t.Run("runs function and disposes", func(t *testing.T) {
		log := []string{}

		o := NewOwner()

		o.Run(func() error {
			NewEffect(func() {
				log = append(log, "effect")
			})

			OnCleanup(func() { log = append(log, "cleanup") })

			return nil
		})

		log = append(log, "ran")
		o.Dispose()
		log = append(log, "disposed")

		assert.Equal(t, []string{
			"effect",
			"ran",
			"cleanup",
			"disposed",
		}, log)
	})

	t.Run("nested owners", func(t *testing.T) {
		log := []string{}

		o := NewOwner()
		o.OnCleanup(func() {
			log = append(log, "parent disposed")
		})

		o.Run(func() error {
			NewOwner().OnCleanup(func() {
				log = append(log, "child disposed")
			})

			return nil
		})

		o.Dispose()

		assert.Equal(t, []string{
			"child disposed",
			"parent disposed",
		}, log)
	})

	t.Run("catches panics with OnError", func(t *testing.T) {
		log := []string{}

		o := NewOwner()
		o.OnError(func(err error, info string) bool {
			var panicErr *PanicError
			if errors.As(err, &panicErr) {
				log = append(log, fmt.Sprintf("caught %v", panicErr.Value))
			}
			return true
		})

		var fail *Field[error]

		o.Run(func() error {
			// no listener here, so it propagates to o
			return NewOwner().Run(func() error {
				fail = NewField[error](nil)

				NewEffect(func() {
					if e := fail.Read(); e != nil {
						panic(e)
					}
				})

				return nil
			})
		})

		fail.Write(errors.New("oops"))
		Settle()

		assert.Equal(t, []string{
			"caught oops",
		}, log)
	})

	t.Run("disposal prevents effect re-runs", func(t *testing.T) {
		log := []int{}

		o := NewOwner()

		count := NewField(0)

		o.Run(func() error {
			NewEffect(func() {
				log = append(log, count.Read())
			})

			return nil
		})

		count.Write(1)
		Settle()
		o.Dispose()

		count.Write(2)
		Settle()

		assert.Equal(t, []int{0, 1}, log)
	})

	t.Run("disposal during a flush", func(t *testing.T) {
		log := []int{}

		o := NewOwner()

		count := NewField(0)

		NewEffect(func() {
			if count.Read() > 0 {
				o.Dispose()
			}
		})

		o.Run(func() error {
			NewEffect(func() {
				log = append(log, count.Read())
			})

			return nil
		})

		count.Write(1)
		Settle()

		assert.Equal(t, []int{0}, log)
	})
}

func TestOwnerData(t *testing.T) {
	t.Run("root state refuses new keys", func(t *testing.T) {
		var warnings []string
		Configure(WithTracer(nil), WithWarnHandler(func(msg string, _ *internal.Owner) {
			warnings = append(warnings, msg)
		}))

		o := NewOwner()
		state := o.Data(map[string]any{"count": 0})

		Set(state, "extra", 1)
		Delete(state, "count")

		assert.False(t, state.Has("extra"))
		assert.True(t, state.Has("count"))
		assert.Len(t, warnings, 2)
	})

	t.Run("root state is reactive", func(t *testing.T) {
		log := []string{}

		o := NewOwner()
		state := o.Data(map[string]any{"count": 0})
		count := FieldOf[int](state, "count")

		o.Run(func() error {
			Watch(count.Read, func(value, oldValue int) {
				log = append(log, fmt.Sprintf("%d -> %d", oldValue, value))
			})
			return nil
		})

		count.Write(3)
		Settle()

		assert.Equal(t, []string{"0 -> 3"}, log)
	})
}

func TestOwnerLifecycle(t *testing.T) {
	t.Run("mount runs hooks around updates", func(t *testing.T) {
		log := []string{}

		count := NewField(0)
		o := NewOwner()

		o.OnBeforeUpdate(func() { log = append(log, "before update") })
		o.OnUpdated(func() { log = append(log, "updated") })

		_, err := o.Mount(func() error {
			log = append(log, fmt.Sprintf("render %d", count.Read()))
			return nil
		})
		require.NoError(t, err)

		count.Write(1)
		Settle()

		assert.Equal(t, []string{
			"render 0",
			"before update",
			"render 1",
			"updated",
		}, log)
	})

	t.Run("activate runs hooks after the next flush", func(t *testing.T) {
		log := []string{}

		o := NewOwner()
		o.OnActivated(func() { log = append(log, "activated") })

		o.Deactivate()
		o.Activate()
		assert.Empty(t, log)

		Settle()
		assert.Equal(t, []string{"activated"}, log)
	})
}
