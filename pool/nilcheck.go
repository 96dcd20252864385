package pool

import "reflect"

// isNilConnection reports whether conn is a nil value despite C being a
// concrete (often pointer or interface) type. Go generics give no direct
// "== nil" comparison for a type parameter constrained only by an
// interface, so this falls back to reflection at the two call sites that
// need it (the argument checks of Engine.Release and BoundedPool.Release).
func isNilConnection[C Connection](conn C) bool {
	v := reflect.ValueOf(conn)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}
