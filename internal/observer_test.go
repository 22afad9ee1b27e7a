package internal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	t.Run("is idempotent", func(t *testing.T) {
		r := newTestRuntime()
		obj := NewObject(map[string]any{"a": 1})

		ob := r.Observe(obj)
		require.NotNil(t, ob)
		assert.Same(t, ob, r.Observe(obj))
		assert.Same(t, obj, ob.Value())
		assert.True(t, obj.IsReactive("a"))
	})

	t.Run("ignores primitives and frozen containers", func(t *testing.T) {
		r := newTestRuntime()

		assert.Nil(t, r.Observe(1))
		assert.Nil(t, r.Observe("a"))
		assert.Nil(t, r.Observe(nil))
		assert.Nil(t, r.Observe(NewObject(nil).Freeze()))
		assert.Nil(t, r.Observe(NewArray(1).Freeze()))
	})

	t.Run("wraps raw maps and slices", func(t *testing.T) {
		r := newTestRuntime()

		ob := r.Observe(map[string]any{"a": 1})
		require.NotNil(t, ob)
		assert.IsType(t, &Object{}, ob.Value())

		ob = r.Observe([]any{1, 2})
		require.NotNil(t, ob)
		assert.IsType(t, &Array{}, ob.Value())
	})

	t.Run("raw containers are wrapped once", func(t *testing.T) {
		r := newTestRuntime()
		m := map[string]any{"x": 0}
		items := []any{1, 2}

		ob := r.Observe(m)
		require.NotNil(t, ob)
		assert.Same(t, ob, r.Observe(m))
		assert.Same(t, r.Observe(items), r.Observe(items))
		assert.NotSame(t, r.Observe(items), r.Observe(items[:1]))
	})

	t.Run("a shared raw container keeps one wrapper", func(t *testing.T) {
		r := newTestRuntime()
		shared := map[string]any{"x": 0}
		obj := r.object(map[string]any{"a": shared, "b": shared})
		arr := NewArray(shared)
		r.Observe(arr)

		obj.Get("a").(*Object).Assign("x", 1)

		assert.Equal(t, 1, obj.Get("b").(*Object).Get("x"))
		assert.Same(t, obj.Get("a"), arr.At(0))
	})

	t.Run("does nothing while suspended", func(t *testing.T) {
		r := newTestRuntime()

		r.SetObserving(false)
		assert.Nil(t, r.Observe(NewObject(nil)))

		r.SetObserving(true)
		assert.NotNil(t, r.Observe(NewObject(nil)))
	})

	t.Run("nested records are wrapped on first read", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(map[string]any{
			"user": map[string]any{"name": "ann"},
		})

		user, ok := obj.Get("user").(*Object)
		require.True(t, ok)
		assert.NotNil(t, user.Observer())
		assert.Same(t, user, obj.Get("user"))
	})

	t.Run("array elements are wrapped eagerly", func(t *testing.T) {
		r := newTestRuntime()
		arr := NewArray(map[string]any{"a": 1}, 2)
		r.Observe(arr)

		_, ok := arr.At(0).(*Object)
		assert.True(t, ok)
		assert.Equal(t, 2, arr.At(1))
	})
}

func TestReactiveField(t *testing.T) {
	t.Run("write notifies readers", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(map[string]any{"count": 0})
		log := []any{}

		r.watch(func() (any, error) {
			return obj.Get("count"), nil
		}, func(value, oldValue any) error {
			log = append(log, oldValue, value)
			return nil
		})

		obj.Assign("count", 1)
		r.Settle()

		assert.Equal(t, []any{0, 1}, log)
	})

	t.Run("same value does not notify", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(map[string]any{"count": 0, "nan": math.NaN()})
		runs := 0

		r.watch(func() (any, error) {
			runs++
			return []any{obj.Get("count"), obj.Get("nan")}, nil
		}, nil)

		obj.Assign("count", 0)
		obj.Assign("nan", math.NaN())
		r.Settle()

		assert.Equal(t, 1, runs)
		assert.False(t, r.Scheduler().Waiting())
	})

	t.Run("missing keys are plain fields", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(map[string]any{})
		runs := 0

		r.watch(func() (any, error) {
			runs++
			return obj.Get("late"), nil
		}, nil)

		obj.Assign("late", 1)
		r.Settle()

		assert.Equal(t, 1, runs)
		assert.False(t, obj.IsReactive("late"))
	})

	t.Run("shallow fields keep containers raw", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(nil)
		raw := map[string]any{"a": 1}

		r.DefineReactive(obj, "raw", raw, Shallow())
		_, isMap := obj.Get("raw").(map[string]any)
		assert.True(t, isMap)
	})

	t.Run("custom setter sees incoming values", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(nil)
		seen := []any{}

		r.DefineReactive(obj, "a", 1, CustomSetter(func(v any) {
			seen = append(seen, v)
		}))

		obj.Assign("a", 1)
		obj.Assign("a", 2)
		assert.Equal(t, []any{2}, seen)
	})

	t.Run("redefining a field keeps its readers", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(map[string]any{"a": 1})
		seen := []any{}

		r.watch(func() (any, error) {
			return obj.Get("a"), nil
		}, func(value, oldValue any) error {
			seen = append(seen, value)
			return nil
		})

		r.DefineReactive(obj, "a", 5)
		r.Settle()
		obj.Assign("a", 6)
		r.Settle()
		r.DefineReactive(obj, "a", 6)
		r.Settle()

		assert.Equal(t, []any{5, 6}, seen)
	})

	t.Run("root state refuses new fields", func(t *testing.T) {
		r := newTestRuntime()
		obj := NewObject(map[string]any{"a": 1})
		r.ObserveRoot(obj)

		r.DefineReactive(obj, "late", 1)
		r.DefineReactive(obj, "a", 2)

		assert.False(t, obj.Has("late"))
		assert.Equal(t, 2, obj.Get("a"))
		assert.Equal(t, []string{
			"Avoid adding reactive properties to a root state at runtime - declare it upfront.",
		}, r.warnings)
	})

	t.Run("frozen objects ignore writes", func(t *testing.T) {
		obj := NewObject(map[string]any{"a": 1}).Freeze()

		obj.Assign("a", 2)
		obj.Assign("b", 2)
		assert.Equal(t, map[string]any{"a": 1}, obj.ToMap())
	})

	t.Run("reading an array field depends on its nested containers", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(map[string]any{
			"rows": []any{map[string]any{"a": 1}},
		})
		runs := 0

		r.watch(func() (any, error) {
			runs++
			obj.Get("rows")
			return nil, nil
		}, nil)

		row := obj.Get("rows").(*Array).At(0).(*Object)
		r.Set(row, "b", 2)
		r.Settle()

		assert.Equal(t, 2, runs)
	})
}

func TestSet(t *testing.T) {
	t.Run("adds a reactive field and notifies structure readers", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(map[string]any{})
		log := []string{}

		r.watch(func() (any, error) {
			return obj.Keys(), nil
		}, func(value, oldValue any) error {
			log = append(log, "keys changed")
			return nil
		})

		assert.Equal(t, 1, r.Set(obj, "a", 1))
		r.Settle()

		assert.True(t, obj.IsReactive("a"))
		assert.Equal(t, []string{"keys changed"}, log)
	})

	t.Run("existing keys are assigned", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(map[string]any{"a": 1})

		r.Set(obj, "a", 2)
		assert.Equal(t, 2, obj.Get("a"))
	})

	t.Run("unobserved objects get a plain field", func(t *testing.T) {
		r := newTestRuntime()
		obj := NewObject(nil)

		r.Set(obj, "a", 1)
		assert.Equal(t, 1, obj.Get("a"))
		assert.False(t, obj.IsReactive("a"))
	})

	t.Run("root state refuses new keys", func(t *testing.T) {
		r := newTestRuntime()
		obj := NewObject(map[string]any{"a": 1})
		ob := r.ObserveRoot(obj)
		require.Equal(t, 1, ob.RootCount())

		r.Set(obj, "b", 2)
		assert.False(t, obj.Has("b"))
		assert.Equal(t, []string{
			"Avoid adding reactive properties to a root state at runtime - declare it upfront.",
		}, r.warnings)
	})

	t.Run("primitive targets warn", func(t *testing.T) {
		r := newTestRuntime()

		r.Set(nil, "a", 1)
		r.Delete(1, "a")
		assert.Len(t, r.warnings, 2)
	})

	t.Run("array index past the end grows the array", func(t *testing.T) {
		r := newTestRuntime()
		arr := NewArray(1)
		r.Observe(arr)
		runs := 0

		r.watch(func() (any, error) {
			runs++
			return arr.Len(), nil
		}, nil)

		r.Set(arr, 3, "x")
		r.Settle()

		assert.Equal(t, []any{1, nil, nil, "x"}, arr.Items())
		assert.Equal(t, 2, runs)
	})

	t.Run("invalid array index warns", func(t *testing.T) {
		r := newTestRuntime()
		arr := NewArray(1)

		r.Set(arr, "a", 2)
		r.Set(arr, -1, 2)
		assert.Len(t, r.warnings, 2)
		assert.Equal(t, []any{1}, arr.Items())
	})
}

func TestDelete(t *testing.T) {
	t.Run("notifies field and structure readers", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(map[string]any{"a": 1, "b": 2})
		log := []string{}

		r.watch(func() (any, error) {
			return obj.Get("a"), nil
		}, func(value, oldValue any) error {
			log = append(log, "a")
			return nil
		})
		r.watch(func() (any, error) {
			return obj.Len(), nil
		}, func(value, oldValue any) error {
			log = append(log, "len")
			return nil
		})

		r.Delete(obj, "a")
		r.Settle()

		assert.False(t, obj.Has("a"))
		assert.Equal(t, []string{"a", "len"}, log)
	})

	t.Run("root state refuses deletes", func(t *testing.T) {
		r := newTestRuntime()
		obj := NewObject(map[string]any{"a": 1})
		r.ObserveRoot(obj)

		r.Delete(obj, "a")
		assert.True(t, obj.Has("a"))
		assert.Len(t, r.warnings, 1)
	})

	t.Run("missing keys are ignored", func(t *testing.T) {
		r := newTestRuntime()
		obj := r.object(map[string]any{"a": 1})

		r.Delete(obj, "b")
		assert.False(t, r.Scheduler().Waiting())
	})

	t.Run("array index is spliced out", func(t *testing.T) {
		r := newTestRuntime()
		arr := NewArray(1, 2, 3)
		r.Observe(arr)

		r.Delete(arr, 1)
		r.Delete(arr, 10)
		assert.Equal(t, []any{1, 3}, arr.Items())
	})
}
