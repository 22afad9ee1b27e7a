package reactive

import "github.com/AnatoleLucet/reactive/internal"

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

type (
	// Object is an observable record. Reads through Get are tracked, writes
	// through Assign notify.
	Object = internal.Object

	// Array is an observable ordered sequence. Mutations go through its methods.
	Array = internal.Array

	// Observer is the bookkeeping attached to an observed Object or Array.
	Observer = internal.Observer

	// Watcher is a handle on a reaction.
	Watcher = internal.Watcher

	Runtime = internal.Runtime
	Loop    = internal.Loop
	Option  = internal.Option

	FieldOption = internal.FieldOption

	EvalError    = internal.EvalError
	PanicError   = internal.PanicError
	RunawayError = internal.RunawayError
)

var (
	ErrLoopAlreadyRunning = internal.ErrLoopAlreadyRunning
	ErrLoopTerminated     = internal.ErrLoopTerminated
	ErrReentrantRun       = internal.ErrReentrantRun
)

var (
	WithAsync          = internal.WithAsync
	WithMaxUpdateCount = internal.WithMaxUpdateCount
	WithDriver         = internal.WithDriver
	WithLogger         = internal.WithLogger
	WithSilent         = internal.WithSilent
	WithErrorHandler   = internal.WithErrorHandler
	WithWarnHandler    = internal.WithWarnHandler
	WithMetrics        = internal.WithMetrics
	WithTracer         = internal.WithTracer
)

// Configure replaces the runtime of the calling goroutine with a new one built from opts.
func Configure(opts ...Option) *Runtime {
	r := internal.NewRuntime(opts...)
	internal.BindRuntime(r)
	return r
}

// CurrentRuntime returns the runtime of the calling goroutine.
func CurrentRuntime() *Runtime {
	return internal.GetRuntime()
}

// NewLoop creates an event loop owning its own runtime.
// Run it with loop.Run(ctx) and hand it work with loop.Submit or loop.Do.
func NewLoop(opts ...Option) *Loop {
	return internal.NewLoop(opts...)
}

// Reactive creates an observed record from fields.
func Reactive(fields map[string]any) *Object {
	obj := internal.NewObject(fields)
	internal.GetRuntime().Observe(obj)
	return obj
}

// ReactiveArray creates an observed ordered sequence from items.
func ReactiveArray(items ...any) *Array {
	arr := internal.NewArray(items...)
	internal.GetRuntime().Observe(arr)
	return arr
}

// Observe makes value trackable and returns its observer, or nil if value
// cannot be observed. Observing the same container twice returns the same observer.
func Observe(value any) *Observer {
	return internal.GetRuntime().Observe(value)
}

// DefineReactive installs key on obj as a reactive field.
func DefineReactive(obj *Object, key string, value any, opts ...FieldOption) {
	internal.GetRuntime().DefineReactive(obj, key, value, opts...)
}

// Shallow keeps nested containers of a field unwrapped.
func Shallow() FieldOption { return internal.Shallow() }

// CustomSetter runs fn with the incoming value before each effective write of a field.
func CustomSetter(fn func(any)) FieldOption { return internal.CustomSetter(fn) }

// Set writes key on target, adding it as a reactive field if needed, and
// notifies dependents. Arrays take an int index.
func Set(target any, key any, value any) any {
	return internal.GetRuntime().Set(target, key, value)
}

// Delete removes key from target and notifies dependents.
func Delete(target any, key any) {
	internal.GetRuntime().Delete(target, key)
}

// Batch batches multiple writes into a single update cycle, flushed when the
// outermost batch returns.
func Batch(fn func()) error {
	return internal.GetRuntime().Batch(fn)
}

// NextTick defers fn until after the pending flush.
func NextTick(fn func()) {
	internal.GetRuntime().NextTick(func() error {
		fn()
		return nil
	})
}

// Tick drains pending deferred work of a manually driven runtime and reports
// whether there was any.
func Tick() bool {
	return internal.GetRuntime().Tick()
}

// Settle ticks until no deferred work remains.
func Settle() {
	internal.GetRuntime().Settle()
}

// FlushSync runs the pending flush immediately.
func FlushSync() error {
	return internal.GetRuntime().FlushSync()
}

// OnFlushed registers fn to run after every completed flush of the current
// runtime, once the scheduler is idle again.
func OnFlushed(fn func()) {
	internal.GetRuntime().Scheduler().OnFlushed(func([]*Watcher) { fn() })
}

// Untrack runs the given function without tracking any reactive dependencies.
func Untrack[T any](fn func() T) T {
	var result T
	internal.GetRuntime().Untracked(func() { result = fn() })
	return result
}

// OnCleanup registers a function to be called when the current owner is disposed.
func OnCleanup(fn func()) {
	internal.GetRuntime().OnCleanup(fn)
}

// Field is a typed handle on one reactive field of an Object.
type Field[T any] struct {
	obj *Object
	key string
}

// NewField creates a standalone reactive value. Containers stored in it are
// kept as they are.
func NewField[T any](initial T) *Field[T] {
	r := internal.GetRuntime()

	obj := internal.NewObject(nil)
	r.DefineReactive(obj, "value", initial, internal.Shallow())
	r.Observe(obj)

	return &Field[T]{obj: obj, key: "value"}
}

// FieldOf returns a typed handle on obj[key]. Nested records and sequences
// read through it are *Object and *Array.
func FieldOf[T any](obj *Object, key string) *Field[T] {
	return &Field[T]{obj: obj, key: key}
}

// Read the current value, tracking the dependency if within a reaction.
func (f *Field[T]) Read() T {
	return as[T](f.obj.Get(f.key))
}

// Write a new value, notifying dependents if it changed.
func (f *Field[T]) Write(v T) {
	f.obj.Assign(f.key, v)
}

// Computed is a lazily evaluated, memoized value derived from reactive state.
type Computed[T any] struct {
	rt      *Runtime
	watcher *Watcher
}

// NewComputed creates a computed value (its a memo).
func NewComputed[T any](compute func() T) *Computed[T] {
	return NewComputedE(func() (T, error) {
		return compute(), nil
	})
}

// NewComputedE is NewComputed for a computation that can fail.
func NewComputedE[T any](compute func() (T, error)) *Computed[T] {
	r := internal.GetRuntime()

	w, _ := r.NewWatcher(func() (any, error) {
		return compute()
	}, nil, internal.WatcherOptions{
		Lazy:       true,
		Expression: internal.FuncName(compute),
	})

	return &Computed[T]{rt: r, watcher: w}
}

// Read the current value, re-computing it if a dependency changed. It panics
// if the computation fails; use TryRead to get the error instead.
func (c *Computed[T]) Read() T {
	v, err := c.TryRead()
	if err != nil {
		panic(err)
	}
	return v
}

func (c *Computed[T]) TryRead() (T, error) {
	v, err := c.rt.ReadComputed(c.watcher)
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v), nil
}

func (c *Computed[T]) Watcher() *Watcher { return c.watcher }

// Dispose stops tracking the computation's dependencies.
func (c *Computed[T]) Dispose() { c.watcher.Teardown() }

// WatchOption configures Watch.
type WatchOption func(*internal.WatchOptions)

// Deep also reacts to changes anywhere below the watched value.
func Deep() WatchOption {
	return func(o *internal.WatchOptions) { o.Deep = true }
}

// Sync runs the callback as soon as the value changes instead of on the next flush.
func Sync() WatchOption {
	return func(o *internal.WatchOptions) { o.Sync = true }
}

// Immediate calls the callback with the initial value right away.
func Immediate() WatchOption {
	return func(o *internal.WatchOptions) { o.Immediate = true }
}

// Before registers fn to run right before the watcher runs in a flush.
func Before(fn func()) WatchOption {
	return func(o *internal.WatchOptions) { o.Before = fn }
}

// Expression names the watcher in diagnostics.
func Expression(expr string) WatchOption {
	return func(o *internal.WatchOptions) { o.Expression = expr }
}

// Watch calls cb with the new and previous value of getter whenever it changes.
// Panics in getter or cb are reported to the error handlers.
func Watch[T any](getter func() T, cb func(value, oldValue T), opts ...WatchOption) *Watcher {
	var options internal.WatchOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Expression == "" {
		options.Expression = internal.FuncName(getter)
	}

	w, _ := internal.GetRuntime().Watch(func() (any, error) {
		return getter(), nil
	}, func(value, oldValue any) error {
		cb(as[T](value), as[T](oldValue))
		return nil
	}, options)

	return w
}

// WatchPath watches the value found at a dot-delimited path such as "a.b.0" below root.
func WatchPath(root any, path string, cb func(value, oldValue any), opts ...WatchOption) (*Watcher, error) {
	var options internal.WatchOptions
	for _, opt := range opts {
		opt(&options)
	}

	return internal.GetRuntime().WatchPath(root, path, func(value, oldValue any) error {
		cb(value, oldValue)
		return nil
	}, options)
}

// NewEffect creates a reactive effect that runs the given function
// whenever its dependencies change.
func NewEffect(fn func()) *Watcher {
	w, _ := internal.GetRuntime().NewEffect(internal.EffectUser, func() error {
		fn()
		return nil
	})
	return w
}

// NewRenderEffect is like NewEffect, but an error returned by fn is not
// reported: it aborts the flush and is returned by it.
func NewRenderEffect(fn func() error) (*Watcher, error) {
	return internal.GetRuntime().NewEffect(internal.EffectRender, fn)
}

type Owner struct {
	owner *internal.Owner
}

// NewOwner creates a new reactive owner.
// An owner manages the lifecycle of reactions created within its context.
func NewOwner() *Owner {
	return &Owner{
		internal.GetRuntime().NewOwner(),
	}
}

// Run a function within the context of this owner.
// Each reaction or owner created within the function will be a child of this owner,
// and will be disposed when owner.Dispose() is called on this owner.
func (o *Owner) Run(fn func() error) error { return o.owner.Run(fn) }

// Dispose this owner and all its children.
func (o *Owner) Dispose() { o.owner.Dispose() }

// Add a cleanup function to be called ONCE when the owner is disposed.
func (o *Owner) OnCleanup(fn func()) { o.owner.OnCleanup(fn) }

// Add a function to be called when an error or panic occurs within this owner
// or its children. Return true to stop it from reaching outer owners.
// If no error listener handles a panic raised in Run, it propagates as usual.
func (o *Owner) OnError(fn func(err error, info string) bool) { o.owner.OnError(fn) }

// Data observes fields as the root state of this owner. Adding or deleting
// keys on it later is refused with a warning.
func (o *Owner) Data(fields map[string]any) *Object {
	obj := internal.NewObject(fields)
	o.owner.Data(obj)
	return obj
}

// Mount installs render as this owner's render reaction.
func (o *Owner) Mount(render func() error) (*Watcher, error) { return o.owner.Mount(render) }

func (o *Owner) OnBeforeUpdate(fn func()) { o.owner.On(internal.HookBeforeUpdate, fn) }
func (o *Owner) OnUpdated(fn func())      { o.owner.On(internal.HookUpdated, fn) }
func (o *Owner) OnActivated(fn func())    { o.owner.On(internal.HookActivated, fn) }

// Deactivate marks the owner inactive until Activate.
func (o *Owner) Deactivate() { o.owner.Deactivate() }

// Activate re-activates the owner. Its activated hooks run after the next flush.
func (o *Owner) Activate() {
	internal.GetRuntime().Scheduler().QueueActivated(o.owner)
}
