package internal

type EffectType int

const (
	// EffectRender re-runs on invalidation; faults propagate out of the flush.
	EffectRender EffectType = iota
	// EffectUser re-runs on invalidation; faults go to the error handlers.
	EffectUser
)

// NewEffect creates a watcher that re-runs fn whenever the state it read
// changes. Effects have no callback; fn itself is the side effect.
func (r *Runtime) NewEffect(typ EffectType, fn func() error) (*Watcher, error) {
	return r.NewWatcher(func() (any, error) {
		return nil, fn()
	}, nil, WatcherOptions{
		User:       typ == EffectUser,
		Expression: funcName(fn),
	})
}

// WatchOptions configures a user watcher.
type WatchOptions struct {
	Deep bool
	Sync bool

	// Immediate calls the callback with the initial value right away.
	Immediate bool

	Before     func()
	Expression string
}

// Watch creates a user watcher that calls cb with the new and previous value
// of getter whenever it changes.
func (r *Runtime) Watch(getter Getter, cb Callback, opts WatchOptions) (*Watcher, error) {
	if opts.Expression == "" {
		opts.Expression = funcName(getter)
	}

	w, err := r.NewWatcher(getter, cb, WatcherOptions{
		Deep:       opts.Deep,
		Sync:       opts.Sync,
		User:       true,
		Before:     opts.Before,
		Expression: opts.Expression,
	})
	if err != nil {
		return nil, err
	}

	if opts.Immediate && cb != nil {
		if err := w.invoke(w.value, nil); err != nil {
			r.metrics.EvalError(true, "callback")
			r.handleError(&EvalError{
				Watcher:    w.id,
				Expression: w.expression,
				Phase:      "callback",
				User:       true,
				Err:        err,
			}, w.owner, "callback for immediate watcher \""+w.expression+"\"")
		}
	}

	return w, nil
}

// NewComputed creates a lazy watcher. Its value is computed on first read and
// cached until a dependency changes.
func (r *Runtime) NewComputed(getter Getter) *Watcher {
	w, _ := r.NewWatcher(getter, nil, WatcherOptions{
		Lazy:       true,
		Expression: funcName(getter),
	})
	return w
}

// ReadComputed returns the value of a lazy watcher, re-evaluating it if dirty.
// Inside another watcher it also forwards the lazy watcher's dependencies, so
// the reader is invalidated by the same writes.
func (r *Runtime) ReadComputed(w *Watcher) (any, error) {
	if w.dirty {
		if err := w.Evaluate(); err != nil {
			return nil, err
		}
	}

	if r.tracker.Target() != nil {
		w.Depend()
	}

	return w.value, nil
}

// FuncName returns the qualified name of fn, or "" if fn is not a function.
func FuncName(fn any) string {
	return funcName(fn)
}
