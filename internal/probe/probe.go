// Package probe builds sample values and compares them during variance
// assertions. Assertions run once per concrete instantiation, so the
// reflection cost here never lands on a hot path.
package probe

import (
	"fmt"
	"reflect"
)

// Sample returns a best-effort non-zero value of T. Exported fields of
// struct types are populated with distinguishable data so relabeling
// bugs that clobber payload fields are observable; unexported fields
// stay zero, which is still sufficient for round-trip comparison.
func Sample[T any]() T {
	var value T
	fill(reflect.ValueOf(&value).Elem(), 0)
	return value
}

const maxFillDepth = 4

func fill(v reflect.Value, depth int) {
	if depth > maxFillDepth || !v.CanSet() {
		return
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString("probe")
	case reflect.Bool:
		v.SetBool(true)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(7)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v.SetUint(7)
	case reflect.Float32, reflect.Float64:
		v.SetFloat(7)
	case reflect.Slice:
		elem := reflect.New(v.Type().Elem()).Elem()
		fill(elem, depth+1)
		v.Set(reflect.Append(reflect.MakeSlice(v.Type(), 0, 1), elem))
	case reflect.Map:
		key := reflect.New(v.Type().Key()).Elem()
		val := reflect.New(v.Type().Elem()).Elem()
		fill(key, depth+1)
		fill(val, depth+1)
		m := reflect.MakeMapWithSize(v.Type(), 1)
		m.SetMapIndex(key, val)
		v.Set(m)
	case reflect.Pointer:
		ptr := reflect.New(v.Type().Elem())
		fill(ptr.Elem(), depth+1)
		v.Set(ptr)
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			fill(v.Field(i), depth+1)
		}
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			fill(v.Index(i), depth+1)
		}
	}
}

// Equal reports deep equality, including unexported fields.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// TypeName renders the dynamic type of v for error messages.
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// TypeOf returns the reflect type of the T parameter itself, usable as
// a memoization key even when no value of T is at hand.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Describe renders a stable identifier for a (family, view) pairing.
func Describe(family any, view reflect.Type) string {
	return fmt.Sprintf("%s over %s", TypeName(family), view)
}
