package collection

import (
	"reflect"

	"github.com/goliatone/go-collection/deep"
)

// keyOf reads the unique key of record. Map records without the key report
// false; the key may be a dotted path into nested fields.
func keyOf(record any, field string) (any, bool) {
	return deep.Get(record, field)
}

// keysEqual compares two key values natively when they share a comparable
// type, and structurally otherwise.
func keysEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() != bv.Type() {
		return false
	}
	if av.Comparable() && bv.Comparable() {
		return a == b
	}
	return deep.Equal(a, b)
}

func indexOfKey[T any](records []T, field string, key any) int {
	for i := range records {
		candidate, ok := keyOf(records[i], field)
		if ok && keysEqual(candidate, key) {
			return i
		}
	}
	return -1
}
