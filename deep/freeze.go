package deep

import "reflect"

// Sealer is implemented by values that can be made read-only. Seal must be
// idempotent; Sealed reports whether Seal has run.
type Sealer interface {
	Seal()
	Sealed() bool
}

// Freeze seals value and every Sealer reachable from it through pointers,
// interfaces, exported struct fields, map values and slice elements. Nodes
// that are already sealed are not descended into, and each reference is
// visited once, so shared and cyclic graphs terminate. value is returned for
// chaining.
func Freeze[T any](value T) T {
	f := &freezer{seen: make(map[visitKey]struct{})}
	f.walk(reflect.ValueOf(&value).Elem(), false)
	return value
}

// IsFrozen reports whether value is a sealed Sealer.
func IsFrozen(value any) bool {
	sealer, ok := value.(Sealer)
	return ok && sealer.Sealed()
}

type freezer struct {
	seen map[visitKey]struct{}
}

// walk visits v. sealedParent is set when v is the target of a pointer that
// was already offered for sealing, so its address is not offered again.
func (f *freezer) walk(v reflect.Value, sealedParent bool) {
	if !v.IsValid() {
		return
	}
	if !sealedParent {
		if stop := f.seal(v); stop {
			return
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() || !f.visit(v) {
			return
		}
	}

	switch v.Kind() {
	case reflect.Pointer:
		f.walk(v.Elem(), true)
	case reflect.Interface:
		if !v.IsNil() {
			f.walk(v.Elem(), false)
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				f.walk(v.Field(i), false)
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			f.walk(iter.Value(), false)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			f.walk(v.Index(i), false)
		}
	}
}

// seal seals v when it is a Sealer and reports whether traversal should stop
// because v was already sealed.
func (f *freezer) seal(v reflect.Value) bool {
	var sealer Sealer
	switch {
	case v.Kind() == reflect.Interface, v.Kind() == reflect.Pointer && v.IsNil():
		return false
	case v.CanInterface():
		if s, ok := v.Interface().(Sealer); ok {
			sealer = s
		}
	}
	if sealer == nil && v.CanAddr() && v.Addr().CanInterface() {
		if s, ok := v.Addr().Interface().(Sealer); ok {
			sealer = s
		}
	}
	if sealer == nil {
		return false
	}
	if sealer.Sealed() {
		return true
	}
	sealer.Seal()
	return false
}

func (f *freezer) visit(v reflect.Value) bool {
	key := visitKey{typ: v.Type(), ptr: v.Pointer()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	if _, ok := f.seen[key]; ok {
		return false
	}
	f.seen[key] = struct{}{}
	return true
}
