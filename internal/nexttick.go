package internal

// Driver runs a drain function at the end of the current synchronous turn.
// It is asked at most once per drain cycle.
type Driver interface {
	Request(drain func())
}

// Ticker coalesces deferred callbacks into a single drain per turn.
type Ticker struct {
	rt *Runtime

	callbacks *CallbackQueue
	driver    Driver

	// a drain has been requested and has not started yet
	pending bool

	drains int
}

func NewTicker(rt *Runtime, driver Driver) *Ticker {
	return &Ticker{
		rt:        rt,
		callbacks: NewCallbackQueue(),
		driver:    driver,
	}
}

// Schedule enqueues cb for the next drain, requesting one if none is pending.
func (t *Ticker) Schedule(cb func() error) {
	t.callbacks.Enqueue(cb)

	if !t.pending {
		t.pending = true
		t.driver.Request(t.drain)
	}
}

// drain runs the callbacks queued so far, in order. Callbacks scheduled while
// draining start a new cycle.
func (t *Ticker) drain() {
	t.pending = false
	t.drains++

	for _, cb := range t.callbacks.Take() {
		if err := safeInvoke(cb); err != nil {
			t.rt.handleError(err, nil, "nextTick")
		}
	}
}

// Pending reports whether a drain has been requested and not run yet.
func (t *Ticker) Pending() bool { return t.pending }

// Drains returns the number of completed drain cycles.
func (t *Ticker) Drains() int { return t.drains }

func (t *Ticker) Driver() Driver { return t.driver }

func safeInvoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()

	return fn()
}

// ManualDriver holds drain requests until Tick is called. It is the default
// driver of a runtime that is not bound to a Loop.
type ManualDriver struct {
	requested []func()
}

func NewManualDriver() *ManualDriver {
	return &ManualDriver{}
}

func (d *ManualDriver) Request(drain func()) {
	d.requested = append(d.requested, drain)
}

// Tick runs the drains requested so far and reports whether there were any.
// Drains requested while ticking wait for the next Tick.
func (d *ManualDriver) Tick() bool {
	if len(d.requested) == 0 {
		return false
	}

	requested := d.requested
	d.requested = nil
	for _, drain := range requested {
		drain()
	}

	return true
}

// Pending reports whether a drain is waiting for Tick.
func (d *ManualDriver) Pending() bool {
	return len(d.requested) > 0
}
