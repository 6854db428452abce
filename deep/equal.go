package deep

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var equalOptions = []cmp.Option{
	cmpopts.EquateEmpty(),
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Equal reports whether a and b are structurally equivalent: same dynamic
// types, same keys and elements, recursively equal values. Nil and empty
// maps or slices compare equal. Numbers and times are compared natively.
func Equal(a, b any) bool {
	return cmp.Equal(a, b, equalOptions...)
}

// UniqueConcat appends b to a and drops every element structurally equal to
// an earlier one, keeping first-occurrence order. The inputs are not modified.
func UniqueConcat[E any](a, b []E) []E {
	out := make([]E, 0, len(a)+len(b))
	for _, group := range [][]E{a, b} {
		for _, candidate := range group {
			if containsEqual(out, candidate) {
				continue
			}
			out = append(out, candidate)
		}
	}
	return out
}

func containsEqual[E any](items []E, candidate E) bool {
	for _, item := range items {
		if Equal(item, candidate) {
			return true
		}
	}
	return false
}

// uniqueConcatValue appends source after target, skipping structural
// duplicates. When a source element does not fit the target element type the
// result widens to []any so nothing is dropped.
func uniqueConcatValue(target, source reflect.Value) reflect.Value {
	elemType := target.Type().Elem()
	items := make([]reflect.Value, 0, target.Len()+source.Len())
	widen := false
	for i := 0; i < target.Len(); i++ {
		items = append(items, target.Index(i))
	}
	for i := 0; i < source.Len(); i++ {
		elem := newCloner().clone(source.Index(i))
		if value, ok := assignable(elemType, elem); ok {
			elem = value
		} else {
			widen = true
		}
		items = append(items, elem)
	}

	sliceType := target.Type()
	if widen {
		sliceType = reflect.TypeOf([]any(nil))
	}
	out := reflect.MakeSlice(sliceType, 0, len(items))
	for _, item := range items {
		if !item.IsValid() {
			item = reflect.Zero(sliceType.Elem())
		}
		if containsValue(out, item) {
			continue
		}
		value, _ := assignable(sliceType.Elem(), item)
		out = reflect.Append(out, value)
	}
	return out
}

func containsValue(list, v reflect.Value) bool {
	for i := 0; i < list.Len(); i++ {
		if Equal(list.Index(i).Interface(), v.Interface()) {
			return true
		}
	}
	return false
}
