package internal

import (
	"slices"
)

// Hook identifies an owner lifecycle hook.
type Hook int

const (
	// HookBeforeUpdate runs before the render watcher of a mounted owner re-runs.
	HookBeforeUpdate Hook = iota
	// HookUpdated runs after a flush in which the render watcher re-ran.
	HookUpdated
	// HookActivated runs after a flush in which the owner was re-activated.
	HookActivated
)

// ErrorCatcher receives errors raised by watchers of an owner or its
// descendants. Returning true stops propagation to outer owners.
type ErrorCatcher func(err error, info string) bool

// Owner scopes watchers, nested owners and cleanups. Disposing an owner tears
// all of them down.
type Owner struct {
	rt *Runtime

	parent   *Owner
	children []*Owner

	// watchers created under this owner, in creation order
	watchers []*Watcher
	render   *Watcher

	// root state
	data *Observer

	// cleanup functions to be called when the owner is disposed
	cleanups []func()

	// error handlers
	catchers []ErrorCatcher

	hooks map[Hook][]func()

	mounted        bool
	inactive       bool
	beingDestroyed bool
	destroyed      bool
}

// NewOwner returns an owner nested under the current owner, if any.
func (r *Runtime) NewOwner() *Owner {
	o := &Owner{
		rt:       r,
		cleanups: make([]func(), 0),
		hooks:    make(map[Hook][]func()),
	}

	if parent := r.tracker.CurrentOwner(); parent != nil {
		parent.AddChild(o)
	}

	return o
}

// Run calls fn with o as the current owner. A panic inside fn is handed to the
// error catchers of o and its ancestors; if none handles it, it propagates.
func (o *Owner) Run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if !o.catch(recovered(r), "owner run") {
				panic(r)
			}
		}
	}()

	o.rt.tracker.RunWithOwner(o, func() {
		err = fn()
	})
	return err
}

func (parent *Owner) AddChild(child *Owner) {
	if child.parent != nil {
		child.parent.removeChild(child)
	}

	child.parent = parent
	parent.children = append(parent.children, child)
}

func (o *Owner) removeChild(child *Owner) {
	if i := slices.Index(o.children, child); i != -1 {
		o.children = slices.Delete(o.children, i, i+1)
	}
}

func (o *Owner) Parent() *Owner { return o.parent }

func (o *Owner) Children() []*Owner { return slices.Clone(o.children) }

// Watchers returns the active watchers created under o.
func (o *Owner) Watchers() []*Watcher { return slices.Clone(o.watchers) }

// RenderWatcher returns the watcher installed by Mount.
func (o *Owner) RenderWatcher() *Watcher { return o.render }

func (o *Owner) Mounted() bool   { return o.mounted }
func (o *Owner) Destroyed() bool { return o.destroyed }
func (o *Owner) Inactive() bool  { return o.inactive }

// Data observes value as the root state of o. Adding or deleting keys of a
// root state is refused with a warning.
func (o *Owner) Data(value any) *Observer {
	ob := o.rt.ObserveRoot(value)
	if ob != nil {
		o.data = ob
	}
	return ob
}

// Mount installs render as the render watcher of o. Whenever the state it
// reads changes, the beforeUpdate hooks run, render re-runs, and the updated
// hooks run once the flush completes.
func (o *Owner) Mount(render func() error) (*Watcher, error) {
	w, err := o.rt.NewWatcher(func() (any, error) {
		return nil, render()
	}, nil, WatcherOptions{
		Owner:      o,
		Render:     true,
		Expression: funcName(render),
		Before: func() {
			if o.mounted && !o.destroyed {
				o.callHook(HookBeforeUpdate)
			}
		},
	})
	if err != nil {
		return nil, err
	}

	o.mounted = true
	return w, nil
}

// Activate marks o and its descendants active and runs their activated hooks.
func (o *Owner) Activate() {
	if !o.inactive {
		return
	}

	o.inactive = false
	for _, child := range slices.Clone(o.children) {
		child.inactive = true
		child.Activate()
	}
	o.callHook(HookActivated)
}

// Deactivate marks o inactive. Schedule its reactivation with
// Scheduler.QueueActivated.
func (o *Owner) Deactivate() {
	o.inactive = true
}

// Dispose tears down every watcher and child owner of o and runs its cleanups.
func (o *Owner) Dispose() {
	if o.beingDestroyed {
		return
	}
	o.beingDestroyed = true

	if o.parent != nil && !o.parent.beingDestroyed {
		o.parent.removeChild(o)
	}

	for i := len(o.watchers) - 1; i >= 0; i-- {
		o.watchers[i].Teardown()
	}
	o.watchers = nil

	for _, child := range slices.Clone(o.children) {
		child.Dispose()
	}
	o.children = nil

	if o.data != nil {
		o.data.vmCount--
		o.data = nil
	}

	for i := 0; i < len(o.cleanups); i++ {
		o.cleanups[i]()
	}
	o.cleanups = nil

	o.destroyed = true
}

func (o *Owner) OnCleanup(fn func()) {
	o.cleanups = append(o.cleanups, fn)
}

func (o *Owner) OnError(fn ErrorCatcher) {
	o.catchers = append(o.catchers, fn)
}

// On registers fn for a lifecycle hook.
func (o *Owner) On(hook Hook, fn func()) {
	o.hooks[hook] = append(o.hooks[hook], fn)
}

func (o *Owner) callHook(hook Hook) {
	for _, fn := range o.hooks[hook] {
		if err := safeCall(fn); err != nil {
			o.rt.handleError(err, o, hookName(hook)+" hook")
		}
	}
}

// catch hands err to the catchers of o and its ancestors, innermost first,
// and reports whether one of them handled it.
func (o *Owner) catch(err error, info string) bool {
	for cur := o; cur != nil; cur = cur.parent {
		for _, catcher := range cur.catchers {
			if catcher(err, info) {
				return true
			}
		}
	}
	return false
}

func (o *Owner) addWatcher(w *Watcher, render bool) {
	o.watchers = append(o.watchers, w)
	if render {
		o.render = w
	}
}

func (o *Owner) removeWatcher(w *Watcher) {
	if i := slices.Index(o.watchers, w); i != -1 {
		o.watchers = slices.Delete(o.watchers, i, i+1)
	}
	if o.render == w {
		o.render = nil
	}
}

func hookName(hook Hook) string {
	switch hook {
	case HookBeforeUpdate:
		return "beforeUpdate"
	case HookUpdated:
		return "updated"
	case HookActivated:
		return "activated"
	default:
		return "unknown"
	}
}
