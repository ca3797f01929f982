package util

import "reflect"

// IsNil reports whether the interface holds no value, checking both the
// interface itself and a nil value of pointer-like kinds.
func IsNil(i interface{}) bool {
	if i == nil {
		return true
	}

	switch reflect.TypeOf(i).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Array, reflect.Chan, reflect.Slice:
		return reflect.ValueOf(i).IsNil()
	}

	return false
}

// HasImplementation reports whether the interface holds a concrete value.
func HasImplementation(i interface{}) bool {
	if i == nil {
		return false
	}
	return !reflect.ValueOf(i).IsZero()
}
