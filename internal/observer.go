package internal

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Observer is attached to every observed container. It owns the container's
// structural dep (key added/removed, element inserted/removed) while each
// record field owns its own dep.
type Observer struct {
	rt    *Runtime
	value any // *Object or *Array
	dep   *Dep

	// number of owners using this value as their root state
	vmCount int
}

func (o *Observer) Value() any { return o.value }

func (o *Observer) Dep() *Dep { return o.dep }

// RootCount reports how many owners treat the value as their root state.
func (o *Observer) RootCount() int { return o.vmCount }

// Observe returns the observer of value, creating it if needed.
// It returns nil for values that cannot be observed: primitives, frozen
// containers, opaque types, or anything while observation is suspended.
//
// A raw map[string]any or []any is copied into a new *Object or *Array the
// first time it is seen; later calls with the same container return that
// wrapper's observer. The wrapper is reachable through Observer.Value.
func (r *Runtime) Observe(value any) *Observer {
	return r.observe(value, false)
}

// ObserveRoot is Observe for a value used as an owner's root state.
func (r *Runtime) ObserveRoot(value any) *Observer {
	return r.observe(value, true)
}

func (r *Runtime) observe(value any, asRoot bool) *Observer {
	var ob *Observer

	switch v := value.(type) {
	case *Object:
		ob = r.observeObject(v)
	case *Array:
		ob = r.observeArray(v)
	case map[string]any:
		ob = r.adopt(value, func() any { return NewObject(v) })
	case []any:
		ob = r.adopt(value, func() any { return NewArray(v...) })
	}

	if asRoot && ob != nil {
		ob.vmCount++
	}
	return ob
}

// rawKey identifies a raw map or slice by its backing storage. Slices also
// carry their length so two windows on one array stay distinct.
type rawKey struct {
	ptr unsafe.Pointer
	len int
}

func rawKeyOf(value any) (rawKey, bool) {
	v := reflect.ValueOf(value)
	if v.IsNil() || v.Len() == 0 {
		return rawKey{}, false
	}

	key := rawKey{ptr: v.UnsafePointer()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	return key, true
}

// adopt returns the observer of the wrapper already built for a raw
// container, or wraps it and records the adoption. Empty and nil containers
// have no identity and get a fresh wrapper each time.
func (r *Runtime) adopt(raw any, wrap func() any) *Observer {
	key, ok := rawKeyOf(raw)
	if ok {
		if ob, found := r.adopted[key]; found {
			return ob
		}
	}
	if !r.observing {
		return nil
	}

	var ob *Observer
	switch w := wrap().(type) {
	case *Object:
		ob = r.observeObject(w)
	case *Array:
		ob = r.observeArray(w)
	}

	if ok && ob != nil {
		r.adopted[key] = ob
	}
	return ob
}

func (r *Runtime) newObserver(value any) *Observer {
	return &Observer{
		rt:    r,
		value: value,
		dep:   r.NewDep(),
	}
}

func (r *Runtime) observeObject(o *Object) *Observer {
	if o == nil {
		return nil
	}
	if o.ob != nil {
		return o.ob
	}
	if !r.observing || o.frozen {
		return nil
	}

	ob := r.newObserver(o)
	o.ob = ob

	// walk: every existing field becomes reactive, nested values are wrapped on first read
	for _, key := range o.keys {
		p := o.props[key]
		if p.dep == nil {
			p.dep = r.NewDep()
		}
	}

	return ob
}

func (r *Runtime) observeArray(a *Array) *Observer {
	if a == nil {
		return nil
	}
	if a.ob != nil {
		return a.ob
	}
	if !r.observing || a.frozen {
		return nil
	}

	ob := r.newObserver(a)
	a.ob = ob

	// elements are wrapped eagerly
	a.observeRange(0, len(a.items))

	return ob
}

// FieldOption customizes a reactive field.
type FieldOption func(*property)

// Shallow keeps nested containers of the field unwrapped.
func Shallow() FieldOption {
	return func(p *property) { p.shallow = true }
}

// CustomSetter runs fn with the incoming value before each effective write.
func CustomSetter(fn func(any)) FieldOption {
	return func(p *property) { p.setter = fn }
}

// DefineReactive installs (or replaces) key on obj as a reactive field holding val.
// Redefining a reactive field keeps its dependents and notifies them when the
// value changes. Adding a key to an owner's root state warns and does nothing.
func (r *Runtime) DefineReactive(obj *Object, key string, val any, opts ...FieldOption) {
	if obj == nil || obj.frozen {
		return
	}

	p, ok := obj.props[key]
	if !ok {
		if obj.ob != nil && obj.ob.vmCount > 0 {
			r.warn("Avoid adding reactive properties to a root state at runtime - declare it upfront.", nil)
			return
		}

		p = &property{}
		obj.props[key] = p
		obj.keys = append(obj.keys, key)
	}

	// readers of an existing field keep their subscription
	dep, old := p.dep, p.value
	redefined := dep != nil
	if dep == nil {
		dep = r.NewDep()
	}

	*p = property{value: val, dep: dep}
	for _, opt := range opts {
		opt(p)
	}

	if redefined && !isEqual(old, val) {
		dep.Notify()
	}
}

// Set writes key on target. Unlike Object.Assign it makes new fields reactive
// and notifies the container's structural dependents.
// Arrays accept an int index; writing past the end grows the array.
func (r *Runtime) Set(target any, key any, val any) any {
	switch t := target.(type) {
	case *Array:
		i, ok := key.(int)
		if !ok || i < 0 {
			r.warn(fmt.Sprintf("Cannot set invalid array index: %v", key), nil)
			return val
		}
		if t == nil || t.frozen {
			r.warn(fmt.Sprintf("Cannot set index %d on a frozen array", i), nil)
			return val
		}

		for len(t.items) < i {
			t.items = append(t.items, nil)
		}
		t.Splice(i, 1, val)
		return val

	case *Object:
		k, ok := key.(string)
		if !ok || t == nil {
			r.warn(fmt.Sprintf("Cannot set reactive property %v: key must be a string", key), nil)
			return val
		}
		if t.hasOwn(k) {
			t.Assign(k, val)
			return val
		}

		ob := t.ob
		if ob != nil && ob.vmCount > 0 {
			r.warn("Avoid adding reactive properties to a root state at runtime - declare it upfront.", nil)
			return val
		}
		if t.frozen {
			r.warn(fmt.Sprintf("Cannot add property %q: object is not extensible", k), nil)
			return val
		}
		if ob == nil {
			t.Assign(k, val)
			return val
		}

		r.DefineReactive(t, k, val)
		ob.dep.Notify()
		return val
	}

	r.warn(fmt.Sprintf("Cannot set reactive property on undefined, null, or primitive value: %v", target), nil)
	return val
}

// Delete removes key from target and notifies dependents.
func (r *Runtime) Delete(target any, key any) {
	switch t := target.(type) {
	case *Array:
		i, ok := key.(int)
		if !ok || t == nil || i < 0 || i >= len(t.items) {
			return
		}
		t.Splice(i, 1)
		return

	case *Object:
		k, ok := key.(string)
		if !ok || t == nil {
			return
		}

		ob := t.ob
		if ob != nil && ob.vmCount > 0 {
			r.warn("Avoid deleting properties on a root state - just set it to nil.", nil)
			return
		}
		if t.frozen {
			r.warn(fmt.Sprintf("Cannot delete property %q: object is frozen", k), nil)
			return
		}
		if !t.hasOwn(k) {
			return
		}

		p := t.remove(k)
		if ob == nil {
			return
		}
		if p.dep != nil {
			p.dep.Notify()
		}
		ob.dep.Notify()
		return
	}

	r.warn(fmt.Sprintf("Cannot delete reactive property on undefined, null, or primitive value: %v", target), nil)
}

// dependArray subscribes the current target to every nested container of a,
// since element reads do not go through a field getter.
func dependArray(a *Array) {
	for _, item := range a.items {
		switch v := item.(type) {
		case *Object:
			if v.ob != nil {
				v.ob.dep.Depend()
			}
		case *Array:
			if v.ob != nil {
				v.ob.dep.Depend()
			}
			dependArray(v)
		}
	}
}
