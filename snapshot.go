package collection

import (
	"encoding/json"

	"github.com/goliatone/go-collection/deep"
)

// Snapshot is an immutable, ordered view of the records in a Store at one
// point in time. Accessors hand out deep copies, so nothing obtained from a
// Snapshot can change it. A Snapshot stays valid after the Store moves on.
type Snapshot[T any] struct {
	items     []T
	uniqueKey string
	version   uint64
	id        string
	sealed    bool
}

// Len returns the number of records.
func (s *Snapshot[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// At returns a copy of the record at index i. It panics when i is out of
// range, like slice indexing.
func (s *Snapshot[T]) At(i int) T {
	return deep.Clone(s.items[i])
}

// Records returns a copy of every record in order.
func (s *Snapshot[T]) Records() []T {
	if s == nil {
		return []T{}
	}
	out := deep.Clone(s.items)
	if out == nil {
		out = []T{}
	}
	return out
}

// Find returns a copy of the first record whose unique key equals key.
func (s *Snapshot[T]) Find(key any) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}
	index := indexOfKey(s.items, s.uniqueKey, key)
	if index == -1 {
		return zero, false
	}
	return deep.Clone(s.items[index]), true
}

// Keys returns the unique key of every record in order. Records without a
// key contribute nil.
func (s *Snapshot[T]) Keys() []any {
	if s == nil {
		return nil
	}
	keys := make([]any, len(s.items))
	for i := range s.items {
		if key, ok := keyOf(s.items[i], s.uniqueKey); ok {
			keys[i] = deep.Clone(key)
		}
	}
	return keys
}

// Each calls fn with a copy of every record until fn returns false.
func (s *Snapshot[T]) Each(fn func(index int, record T) bool) {
	if s == nil || fn == nil {
		return
	}
	for i := range s.items {
		if !fn(i, deep.Clone(s.items[i])) {
			return
		}
	}
}

// Version is 0 for the initial snapshot and grows by one per effective
// change.
func (s *Snapshot[T]) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

// ID uniquely identifies the snapshot.
func (s *Snapshot[T]) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Seal marks the snapshot as published.
func (s *Snapshot[T]) Seal() {
	if s != nil {
		s.sealed = true
	}
}

// Sealed reports whether the snapshot has been published.
func (s *Snapshot[T]) Sealed() bool {
	return s != nil && s.sealed
}

// MarshalJSON encodes the records as a JSON array.
func (s *Snapshot[T]) MarshalJSON() ([]byte, error) {
	if s == nil || len(s.items) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}
