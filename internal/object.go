package internal

import (
	"maps"
	"slices"
)

// Object is a record container. Once observed, every field read goes through
// Get (which records a dependency) and every write through Assign (which
// notifies on an effective change).
type Object struct {
	ob *Observer

	props map[string]*property
	keys  []string // insertion order

	frozen bool
}

type property struct {
	value any

	// nil for plain (non-reactive) fields
	dep *Dep

	childOb *Observer
	shallow bool
	setter  func(any)
}

// NewObject returns an unobserved record holding a copy of fields.
// Keys are ordered lexically.
func NewObject(fields map[string]any) *Object {
	o := &Object{
		props: make(map[string]*property, len(fields)),
		keys:  make([]string, 0, len(fields)),
	}

	for _, key := range slices.Sorted(maps.Keys(fields)) {
		o.props[key] = &property{value: fields[key]}
		o.keys = append(o.keys, key)
	}

	return o
}

// Observer returns the object's observer, or nil if it is not observed.
func (o *Object) Observer() *Observer { return o.ob }

// Freeze makes the object non-extensible and read-only. A frozen object is
// never observed.
func (o *Object) Freeze() *Object {
	o.frozen = true
	return o
}

func (o *Object) IsFrozen() bool { return o.frozen }

// Get returns the value of key, recording the field as a dependency of the
// current watcher. Reading a missing key depends on the object's structure.
func (o *Object) Get(key string) any {
	p, ok := o.props[key]
	if !ok {
		o.dependStructure()
		return nil
	}

	if p.dep == nil {
		return p.value
	}

	rt := p.dep.rt
	value := p.value

	// nested containers are wrapped the first time they are read
	if !p.shallow && p.childOb == nil {
		if ob := rt.observe(value, false); ob != nil {
			p.childOb = ob
			p.value = ob.value
			value = ob.value
		}
	}

	if rt.tracker.Target() != nil {
		p.dep.Depend()

		if p.childOb != nil {
			p.childOb.dep.Depend()

			if arr, ok := value.(*Array); ok {
				dependArray(arr)
			}
		}
	}

	return value
}

// Has reports whether key exists.
func (o *Object) Has(key string) bool {
	o.dependStructure()
	return o.hasOwn(key)
}

// Keys returns the field names in insertion order.
func (o *Object) Keys() []string {
	o.dependStructure()
	return slices.Clone(o.keys)
}

func (o *Object) Len() int {
	o.dependStructure()
	return len(o.keys)
}

// Assign writes key. Assigning a key that does not exist adds a plain,
// non-reactive field: use Runtime.Set to add a reactive one.
func (o *Object) Assign(key string, value any) {
	if o.frozen {
		return
	}

	p, ok := o.props[key]
	if !ok {
		o.props[key] = &property{value: value}
		o.keys = append(o.keys, key)
		return
	}

	if p.dep == nil {
		p.value = value
		return
	}

	if isEqual(p.value, value) {
		return
	}
	if p.setter != nil {
		p.setter(value)
	}

	p.value = value
	p.childOb = nil
	if !p.shallow {
		if ob := p.dep.rt.observe(value, false); ob != nil {
			p.childOb = ob
			p.value = ob.value
		}
	}

	p.dep.Notify()
}

// ToMap returns an untracked shallow copy of the fields.
func (o *Object) ToMap() map[string]any {
	m := make(map[string]any, len(o.keys))
	for _, key := range o.keys {
		m[key] = o.props[key].value
	}
	return m
}

// Range calls fn for each field in insertion order without tracking.
func (o *Object) Range(fn func(key string, value any) bool) {
	for _, key := range o.keys {
		if !fn(key, o.props[key].value) {
			return
		}
	}
}

// IsReactive reports whether key is a reactive field.
func (o *Object) IsReactive(key string) bool {
	p, ok := o.props[key]
	return ok && p.dep != nil
}

func (o *Object) hasOwn(key string) bool {
	_, ok := o.props[key]
	return ok
}

func (o *Object) remove(key string) *property {
	p := o.props[key]
	delete(o.props, key)

	if i := slices.Index(o.keys, key); i != -1 {
		o.keys = slices.Delete(o.keys, i, i+1)
	}
	return p
}

func (o *Object) dependStructure() {
	if o.ob != nil {
		o.ob.dep.Depend()
	}
}
