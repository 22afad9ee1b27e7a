package internal

import (
	"slices"
)

// Array is an ordered sequence container. Length-changing operations cannot
// be seen through index access, so every mutation goes through a method that
// wraps inserted elements and notifies the structural dep.
type Array struct {
	ob *Observer

	items []any

	frozen bool
}

// NewArray returns an unobserved array holding a copy of items.
func NewArray(items ...any) *Array {
	return &Array{items: slices.Clone(items)}
}

func (a *Array) Observer() *Observer { return a.ob }

func (a *Array) Freeze() *Array {
	a.frozen = true
	return a
}

func (a *Array) IsFrozen() bool { return a.frozen }

func (a *Array) Len() int {
	a.depend()
	return len(a.items)
}

// At returns the element at i. It panics if i is out of range.
func (a *Array) At(i int) any {
	a.depend()
	return a.items[i]
}

// Items returns a copy of the elements.
func (a *Array) Items() []any {
	a.depend()
	return slices.Clone(a.items)
}

// Range calls fn for each element without tracking.
func (a *Array) Range(fn func(i int, value any) bool) {
	for i, item := range a.items {
		if !fn(i, item) {
			return
		}
	}
}

// SetAt replaces the element at i.
func (a *Array) SetAt(i int, v any) {
	a.Splice(i, 1, v)
}

// Push appends values and returns the new length.
func (a *Array) Push(values ...any) int {
	if a.frozen {
		return len(a.items)
	}

	start := len(a.items)
	a.items = append(a.items, values...)
	a.changed(start, len(a.items))

	return len(a.items)
}

// Pop removes and returns the last element.
func (a *Array) Pop() (any, bool) {
	if a.frozen || len(a.items) == 0 {
		return nil, false
	}

	last := a.items[len(a.items)-1]
	a.items[len(a.items)-1] = nil
	a.items = a.items[:len(a.items)-1]
	a.changed(0, 0)

	return last, true
}

// Shift removes and returns the first element.
func (a *Array) Shift() (any, bool) {
	if a.frozen || len(a.items) == 0 {
		return nil, false
	}

	first := a.items[0]
	a.items = slices.Delete(a.items, 0, 1)
	a.changed(0, 0)

	return first, true
}

// Unshift prepends values and returns the new length.
func (a *Array) Unshift(values ...any) int {
	if a.frozen {
		return len(a.items)
	}

	a.items = slices.Insert(a.items, 0, values...)
	a.changed(0, len(values))

	return len(a.items)
}

// Splice removes deleteCount elements at start, inserts items there, and
// returns the removed elements. A negative start counts from the end.
func (a *Array) Splice(start, deleteCount int, items ...any) []any {
	if a.frozen {
		return nil
	}

	n := len(a.items)
	if start < 0 {
		start = max(n+start, 0)
	}
	start = min(start, n)
	deleteCount = min(max(deleteCount, 0), n-start)

	removed := slices.Clone(a.items[start : start+deleteCount])
	a.items = slices.Replace(a.items, start, start+deleteCount, items...)
	a.changed(start, start+len(items))

	return removed
}

// Sort sorts the elements in place with cmp (stable).
func (a *Array) Sort(cmp func(x, y any) int) {
	if a.frozen {
		return
	}

	slices.SortStableFunc(a.items, cmp)
	a.changed(0, 0)
}

func (a *Array) Reverse() {
	if a.frozen {
		return
	}

	slices.Reverse(a.items)
	a.changed(0, 0)
}

// changed wraps the elements in [from, to) and notifies structural dependents.
func (a *Array) changed(from, to int) {
	if a.ob == nil {
		return
	}

	a.observeRange(from, to)
	a.ob.dep.Notify()
}

func (a *Array) observeRange(from, to int) {
	rt := a.ob.rt
	for i := from; i < to; i++ {
		if ob := rt.observe(a.items[i], false); ob != nil {
			a.items[i] = ob.value
		}
	}
}

func (a *Array) depend() {
	if a.ob != nil {
		a.ob.dep.Depend()
	}
}
