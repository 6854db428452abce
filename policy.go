package collection

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-collection/deep"
)

type mergeMode int

const (
	mergeReplace mergeMode = iota
	mergeConcatAll
	mergeConcatPaths
)

// MergePolicy controls how slice fields of an existing record combine with
// slice fields of an upserted partial.
type MergePolicy struct {
	mode  mergeMode
	paths []string
}

// ReplaceArrays makes slices in updates replace the stored slices. This is
// the zero value.
func ReplaceArrays() MergePolicy {
	return MergePolicy{mode: mergeReplace}
}

// ConcatArrays concatenates every slice field and drops structural
// duplicates, keeping first occurrences.
func ConcatArrays() MergePolicy {
	return MergePolicy{mode: mergeConcatAll}
}

// ConcatPaths restricts concatenation to the slices found at the given dotted
// paths. Paths resolve against the matched record before the merge runs.
func ConcatPaths(paths ...string) MergePolicy {
	cleaned := make([]string, 0, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		cleaned = append(cleaned, path)
	}
	if len(cleaned) == 0 {
		return ReplaceArrays()
	}
	return MergePolicy{mode: mergeConcatPaths, paths: cleaned}
}

// Paths returns a copy of the configured concatenation paths.
func (p MergePolicy) Paths() []string {
	if len(p.paths) == 0 {
		return nil
	}
	return append([]string(nil), p.paths...)
}

// ConcatAll reports whether every slice field concatenates.
func (p MergePolicy) ConcatAll() bool {
	return p.mode == mergeConcatAll
}

func (p MergePolicy) String() string {
	switch p.mode {
	case mergeConcatAll:
		return "concat"
	case mergeConcatPaths:
		return fmt.Sprintf("concat%v", p.paths)
	default:
		return "replace"
	}
}

// resolverFor builds the slice resolver for one merge into record. Path
// policies capture the slices found at each path before merging, and the
// resolver concatenates a target slice only when it is one of them.
func (p MergePolicy) resolverFor(record any) deep.ArrayResolver {
	switch p.mode {
	case mergeConcatAll:
		return deep.ConcatArrays()
	case mergeConcatPaths:
	default:
		return nil
	}

	var recorded []reflect.Value
	emptyPaths := make(map[string]struct{})
	for _, path := range p.paths {
		value, ok := deep.Get(record, path)
		if !ok {
			continue
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice {
			continue
		}
		if rv.Len() == 0 {
			// Empty slices share a backing pointer, so identity is meaningless.
			emptyPaths[path] = struct{}{}
			continue
		}
		recorded = append(recorded, rv)
	}
	if len(recorded) == 0 && len(emptyPaths) == 0 {
		return nil
	}

	concat := deep.ConcatArrays()
	return func(path string, target, source reflect.Value) (reflect.Value, bool) {
		if target.Len() == 0 {
			if _, ok := emptyPaths[path]; ok {
				return concat(path, target, source)
			}
			return reflect.Value{}, false
		}
		for _, candidate := range recorded {
			if sameSlice(candidate, target) {
				return concat(path, target, source)
			}
		}
		return reflect.Value{}, false
	}
}

func sameSlice(a, b reflect.Value) bool {
	return a.Type() == b.Type() && a.Len() == b.Len() && a.Pointer() == b.Pointer()
}
