package internal

import (
	"math"
	"reflect"
)

// isEqual reports whether two values are the same by identity.
// Two NaN floats count as equal so that writing NaN over NaN does not notify.
func isEqual(a, b any) bool {
	if isNaN(a) && isNaN(b) {
		return true
	}

	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	if va.Comparable() && vb.Comparable() {
		return a == b
	}

	// maps, slices and funcs have no == but do have an identity
	switch va.Kind() {
	case reflect.Map, reflect.Func:
		return va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Slice:
		return va.UnsafePointer() == vb.UnsafePointer() && va.Len() == vb.Len()
	}

	return false
}

func isNaN(v any) bool {
	switch f := v.(type) {
	case float64:
		return math.IsNaN(f)
	case float32:
		return math.IsNaN(float64(f))
	}
	return false
}

// isObject reports whether v is a container whose contents can change
// without its identity changing.
func isObject(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case *Object, *Array:
		return true
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Struct, reflect.Array:
		return true
	}
	return false
}
