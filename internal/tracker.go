package internal

// Tracker holds the evaluation pointer: the watcher whose reads are being
// recorded, plus the stack of outer watchers for nested evaluation.
type Tracker struct {
	target  *Watcher
	targets []*Watcher

	currentOwner *Owner // for lifecycle/cleanup tracking
}

func NewTracker() *Tracker {
	return &Tracker{
		targets: make([]*Watcher, 0, 8),
	}
}

// Target returns the watcher currently evaluating, or nil.
func (t *Tracker) Target() *Watcher {
	return t.target
}

// PushTarget makes w the evaluation target. A nil target disables tracking.
func (t *Tracker) PushTarget(w *Watcher) {
	t.targets = append(t.targets, w)
	t.target = w
}

func (t *Tracker) PopTarget() {
	t.targets = t.targets[:len(t.targets)-1]

	if n := len(t.targets); n > 0 {
		t.target = t.targets[n-1]
	} else {
		t.target = nil
	}
}

// Depth is the number of nested evaluations in progress.
func (t *Tracker) Depth() int {
	return len(t.targets)
}

func (t *Tracker) RunUntracked(fn func()) {
	t.PushTarget(nil)
	defer t.PopTarget()

	fn()
}

func (t *Tracker) CurrentOwner() *Owner {
	return t.currentOwner
}

func (t *Tracker) RunWithOwner(owner *Owner, fn func()) {
	prev := t.currentOwner
	t.currentOwner = owner
	defer func() { t.currentOwner = prev }()

	fn()
}
