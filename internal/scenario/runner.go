package scenario

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/AnatoleLucet/reactive/internal"
)

// ErrTraceMismatch is returned by Run when the trace differs from Expect.
var ErrTraceMismatch = errors.New("trace mismatch")

// Result is the outcome of a scenario run.
type Result struct {
	// Trace holds one line per watcher callback, flush, warning or reported error.
	Trace []string

	// Flushes is the number of completed flushes.
	Flushes int

	// Final is the formatted root state after the last step.
	Final string
}

type runner struct {
	rt   *internal.Runtime
	root *internal.Object
	res  *Result
}

// Run executes the scenario on a fresh runtime configured with opts.
func (s *Scenario) Run(opts ...internal.Option) (*Result, error) {
	res := &Result{Trace: []string{}}

	base := []internal.Option{
		internal.WithTracer(nil),
		internal.WithWarnHandler(func(msg string, _ *internal.Owner) {
			res.Trace = append(res.Trace, "warn: "+msg)
		}),
		internal.WithErrorHandler(func(err error, _ *internal.Owner, info string) {
			res.Trace = append(res.Trace, fmt.Sprintf("error: %s: %v", info, err))
		}),
	}
	rt := internal.NewRuntime(append(base, opts...)...)

	r := &runner{
		rt:   rt,
		root: internal.NewObject(s.State),
		res:  res,
	}

	owner := rt.NewOwner()
	defer owner.Dispose()
	owner.Data(r.root)

	rt.Scheduler().OnFlushed(func(ran []*internal.Watcher) {
		res.Flushes++

		names := make([]string, 0, len(ran))
		for _, w := range ran {
			names = append(names, w.Expression())
		}
		res.Trace = append(res.Trace, fmt.Sprintf("flush %d: %s", res.Flushes, strings.Join(names, ", ")))
	})

	err := owner.Run(func() error {
		for _, spec := range s.Watchers {
			if err := r.watch(spec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := r.steps(s.Steps); err != nil {
		return nil, err
	}
	rt.Settle()

	res.Final = Format(r.root)

	if len(s.Expect) > 0 && !slices.Equal(s.Expect, res.Trace) {
		return res, fmt.Errorf("%w:\nexpected:\n  %s\nactual:\n  %s", ErrTraceMismatch,
			strings.Join(s.Expect, "\n  "), strings.Join(res.Trace, "\n  "))
	}

	return res, nil
}

func (r *runner) watch(spec WatcherSpec) error {
	name := spec.Name

	_, err := r.rt.WatchPath(r.root, spec.Path, func(value, oldValue any) error {
		r.res.Trace = append(r.res.Trace, fmt.Sprintf("watch %s: %s -> %s", name, Format(oldValue), Format(value)))
		return nil
	}, internal.WatchOptions{
		Deep:       spec.Deep,
		Sync:       spec.Sync,
		Immediate:  spec.Immediate,
		Expression: name,
	})
	if err != nil {
		return fmt.Errorf("watcher %q: %w", name, err)
	}

	return nil
}

func (r *runner) steps(steps []Step) error {
	for _, step := range steps {
		if err := r.step(step); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) step(step Step) error {
	switch {
	case step.Set != nil:
		parent, key, err := r.target(step.Set.Path)
		if err != nil {
			return err
		}
		r.rt.Set(parent, key, step.Set.Value)

	case step.Delete != nil:
		parent, key, err := r.target(step.Delete.Path)
		if err != nil {
			return err
		}
		r.rt.Delete(parent, key)

	case step.Push != nil:
		arr, err := r.array(step.Push.Path)
		if err != nil {
			return err
		}
		values := step.Push.Values
		if values == nil {
			values = []any{step.Push.Value}
		}
		arr.Push(values...)

	case step.Pop != nil:
		arr, err := r.array(step.Pop.Path)
		if err != nil {
			return err
		}
		arr.Pop()

	case step.Batch != nil:
		var inner error
		if err := r.rt.Batch(func() { inner = r.steps(step.Batch) }); err != nil {
			return err
		}
		return inner

	case step.Tick:
		r.rt.Tick()

	case step.Flush:
		return r.rt.FlushSync()
	}

	return nil
}

// target splits path into the container holding the last segment and the key
// of that segment.
func (r *runner) target(path string) (any, any, error) {
	var parent any = r.root
	last := path

	if i := strings.LastIndex(path, "."); i >= 0 {
		get, err := internal.ParsePath(path[:i])
		if err != nil {
			return nil, nil, err
		}
		parent = get(r.root)
		last = path[i+1:]
	}

	switch parent.(type) {
	case *internal.Object:
		return parent, last, nil
	case *internal.Array:
		i, err := strconv.Atoi(last)
		if err != nil {
			return nil, nil, fmt.Errorf("path %q: %q is not an index", path, last)
		}
		return parent, i, nil
	default:
		return nil, nil, fmt.Errorf("path %q: parent is not a container", path)
	}
}

func (r *runner) array(path string) (*internal.Array, error) {
	get, err := internal.ParsePath(path)
	if err != nil {
		return nil, err
	}

	arr, ok := get(r.root).(*internal.Array)
	if !ok {
		return nil, fmt.Errorf("path %q: not an array", path)
	}
	return arr, nil
}

// Format renders a value without tracking it. Records list their keys in
// insertion order; raw maps in lexical order.
func Format(v any) string {
	var b strings.Builder
	format(&b, v)
	return b.String()
}

func format(b *strings.Builder, v any) {
	switch v := v.(type) {
	case nil:
		b.WriteString("nil")

	case *internal.Object:
		b.WriteString("{")
		first := true
		v.Range(func(key string, value any) bool {
			if !first {
				b.WriteString(", ")
			}
			first = false
			b.WriteString(key)
			b.WriteString(": ")
			format(b, value)
			return true
		})
		b.WriteString("}")

	case map[string]any:
		b.WriteString("{")
		for i, key := range slices.Sorted(maps.Keys(v)) {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(key)
			b.WriteString(": ")
			format(b, v[key])
		}
		b.WriteString("}")

	case *internal.Array:
		b.WriteString("[")
		v.Range(func(i int, value any) bool {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, value)
			return true
		})
		b.WriteString("]")

	case []any:
		b.WriteString("[")
		for i, value := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, value)
		}
		b.WriteString("]")

	case string:
		b.WriteString(strconv.Quote(v))

	default:
		fmt.Fprint(b, v)
	}
}
