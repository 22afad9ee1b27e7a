package internal

// Dep is the broadcast point for one observed location (a field, or the
// structure of a container). It holds the watchers that read it during their
// last evaluation and invalidates them when the location changes.
type Dep struct {
	rt *Runtime
	id uint64

	subs idSet
}

func (r *Runtime) NewDep() *Dep {
	r.nextDepID++

	return &Dep{
		rt:   r,
		id:   r.nextDepID,
		subs: newIDSet(),
	}
}

func (d *Dep) ID() uint64 { return d.id }

// AddSub subscribes w. Subscribing twice is a no-op.
func (d *Dep) AddSub(w *Watcher) {
	d.subs.Add(w.id)
}

func (d *Dep) RemoveSub(w *Watcher) {
	d.subs.Remove(w.id)
}

// Subs returns the ids of the subscribed watchers, in subscription order.
func (d *Dep) Subs() []uint64 {
	return d.subs.Snapshot()
}

// Depend records this dep as a dependency of the watcher currently evaluating, if any.
func (d *Dep) Depend() {
	if target := d.rt.tracker.Target(); target != nil {
		target.addDep(d)
	}
}

// Notify invalidates every subscriber.
func (d *Dep) Notify() {
	// snapshot: a subscriber may tear itself down while we iterate
	for _, id := range d.subs.Snapshot() {
		if w := d.rt.watcher(id); w != nil {
			w.Update()
		}
	}
}
