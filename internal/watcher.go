package internal

import (
	"reflect"
	"runtime"
)

// Getter is the evaluator of a watcher. Every dep it reads becomes a dependency.
type Getter func() (any, error)

// Callback receives the new and previous value after a watcher re-ran.
type Callback func(value, oldValue any) error

type WatcherOptions struct {
	// Deep also depends on every value nested below the result.
	Deep bool

	// User routes getter and callback faults to the error handler instead of returning them.
	User bool

	// Lazy defers evaluation until Evaluate is called, and memoizes the result.
	Lazy bool

	// Sync re-runs immediately on invalidation instead of going through the scheduler.
	Sync bool

	// Before is invoked by the scheduler right before the watcher runs.
	Before func()

	// Expression names the watcher in diagnostics. Defaults to the getter's function name.
	Expression string

	// Owner defaults to the current owner.
	Owner *Owner

	// Render marks the watcher as its owner's render watcher.
	Render bool
}

// Watcher re-evaluates its getter whenever a dep it read during its last
// evaluation changes.
type Watcher struct {
	rt    *Runtime
	owner *Owner

	// creation order; the scheduler runs watchers by ascending id
	id uint64

	expression string
	getter     Getter
	cb         Callback
	before     func()

	deep bool
	user bool
	lazy bool
	sync bool

	dirty  bool
	active bool

	// deps committed by the last completed evaluation
	deps   []*Dep
	depIDs idSet

	// deps collected by the evaluation in progress
	newDeps   []*Dep
	newDepIDs idSet

	value any
}

func (r *Runtime) NewWatcher(getter Getter, cb Callback, opts WatcherOptions) (*Watcher, error) {
	r.nextWatcherID++

	w := &Watcher{
		rt:    r,
		owner: opts.Owner,
		id:    r.nextWatcherID,

		expression: opts.Expression,
		getter:     getter,
		cb:         cb,
		before:     opts.Before,

		deep: opts.Deep,
		user: opts.User,
		lazy: opts.Lazy,
		sync: opts.Sync,

		dirty:  opts.Lazy,
		active: true,

		depIDs:    newIDSet(),
		newDepIDs: newIDSet(),
	}

	if w.getter == nil {
		r.warn("Watcher created without a getter; it will never re-run.", opts.Owner)
		w.getter = func() (any, error) { return nil, nil }
	}
	if w.expression == "" {
		w.expression = funcName(getter)
	}
	if w.owner == nil {
		w.owner = r.tracker.CurrentOwner()
	}

	r.watchers[w.id] = w
	if w.owner != nil {
		w.owner.addWatcher(w, opts.Render)
	}

	if w.lazy {
		return w, nil
	}

	value, err := w.get()
	if err != nil {
		if err := w.fault("getter", err); err != nil {
			w.Teardown()
			return nil, err
		}
		return w, nil
	}
	w.value = value

	return w, nil
}

func (w *Watcher) ID() uint64         { return w.id }
func (w *Watcher) Expression() string { return w.expression }
func (w *Watcher) Owner() *Owner      { return w.owner }
func (w *Watcher) Value() any         { return w.value }
func (w *Watcher) Dirty() bool        { return w.dirty }
func (w *Watcher) Active() bool       { return w.active }
func (w *Watcher) Lazy() bool         { return w.lazy }
func (w *Watcher) User() bool         { return w.user }

// Deps returns the ids of the deps committed by the last evaluation.
func (w *Watcher) Deps() []uint64 {
	return w.depIDs.Snapshot()
}

// get runs the getter with w as the evaluation target and commits the deps it read.
func (w *Watcher) get() (any, error) {
	tracker := w.rt.tracker

	tracker.PushTarget(w)
	value, err := w.call()

	if w.deep {
		traverse(value)
	}

	tracker.PopTarget()
	w.cleanupDeps()

	return value, err
}

func (w *Watcher) call() (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()

	return w.getter()
}

func (w *Watcher) addDep(d *Dep) {
	if !w.active {
		return
	}

	if w.newDepIDs.Add(d.id) {
		w.newDeps = append(w.newDeps, d)

		if !w.depIDs.Has(d.id) {
			d.AddSub(w)
		}
	}
}

// cleanupDeps unsubscribes from deps the last evaluation did not read and
// commits the new set.
func (w *Watcher) cleanupDeps() {
	for i := len(w.deps) - 1; i >= 0; i-- {
		dep := w.deps[i]
		if !w.newDepIDs.Has(dep.id) {
			dep.RemoveSub(w)
		}
	}

	w.depIDs, w.newDepIDs = w.newDepIDs, w.depIDs
	w.newDepIDs.Clear()

	w.deps, w.newDeps = w.newDeps, w.deps[:0]
}

// Update is called by a dep when it changes.
func (w *Watcher) Update() {
	switch {
	case w.lazy:
		w.dirty = true
	case w.sync:
		if err := w.Run(); err != nil {
			w.rt.handleError(err, w.owner, "sync watcher")
		}
	default:
		w.rt.scheduler.Queue(w)
	}
}

// Run re-evaluates the getter and calls the callback if the value changed.
// Containers and deep watchers always count as changed since identity does
// not capture in-place mutation.
func (w *Watcher) Run() error {
	if !w.active {
		return nil
	}

	value, err := w.get()
	if err != nil {
		return w.fault("getter", err)
	}

	if isEqual(value, w.value) && !isObject(value) && !w.deep {
		return nil
	}

	oldValue := w.value
	w.value = value

	if w.cb == nil {
		return nil
	}
	if err := w.invoke(value, oldValue); err != nil {
		return w.fault("callback", err)
	}

	return nil
}

func (w *Watcher) invoke(value, oldValue any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()

	return w.cb(value, oldValue)
}

// Evaluate computes the value of a lazy watcher and clears its dirty flag.
func (w *Watcher) Evaluate() error {
	value, err := w.get()
	if err != nil {
		return w.fault("getter", err)
	}

	w.value = value
	w.dirty = false
	return nil
}

// Depend makes the current target depend on everything w depends on.
// This is how a computed value read inside another watcher propagates.
func (w *Watcher) Depend() {
	for i := len(w.deps) - 1; i >= 0; i-- {
		w.deps[i].Depend()
	}
}

// Teardown unsubscribes w from all its deps. It is a no-op when already inactive.
func (w *Watcher) Teardown() {
	if !w.active {
		return
	}

	if w.owner != nil && !w.owner.beingDestroyed {
		w.owner.removeWatcher(w)
	}

	for i := len(w.deps) - 1; i >= 0; i-- {
		w.deps[i].RemoveSub(w)
	}
	w.deps = nil
	w.depIDs.Clear()

	w.active = false
	w.rt.release(w)
}

// fault wraps err. User watchers report it and swallow it.
func (w *Watcher) fault(phase string, err error) error {
	evalErr := &EvalError{
		Watcher:    w.id,
		Expression: w.expression,
		Phase:      phase,
		User:       w.user,
		Err:        err,
	}
	w.rt.metrics.EvalError(w.user, phase)

	if w.user {
		w.rt.handleError(evalErr, w.owner, phase+" for watcher \""+w.expression+"\"")
		return nil
	}
	return evalErr
}

func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}

	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return ""
}
