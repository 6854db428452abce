package deep

import (
	"fmt"
	"reflect"
)

// ArrayResolver decides how two slices meeting at the same path combine.
// target and source are the concrete slice values; path is the dotted path of
// the field being merged. Returning false falls back to the default merge,
// where source replaces target.
type ArrayResolver func(path string, target, source reflect.Value) (reflect.Value, bool)

// ConcatArrays resolves every slice pair by concatenating target then source
// and dropping structural duplicates.
func ConcatArrays() ArrayResolver {
	return func(_ string, target, source reflect.Value) (reflect.Value, bool) {
		return uniqueConcatValue(target, source), true
	}
}

// Merge folds source into target field by field and returns the result.
//
// Maps merge key-wise and an absent key leaves the target untouched; an
// explicit nil map entry overwrites. String-keyed maps of different types
// still merge key-wise, widening to map[string]any when the target's value
// type cannot hold the source's values. Struct fields holding their zero value
// in source are treated as unset. Nil pointers, maps, slices and interfaces in
// source are unset. Nested maps, structs and pointers recurse. Slices go
// through resolve, and are replaced when it declines.
//
// target is modified in place where its shape allows it, so callers pass a
// copy they own. Values taken from source are cloned.
func Merge[T any](target, source T, resolve ArrayResolver) T {
	tv := reflect.ValueOf(&target).Elem()
	sv := reflect.ValueOf(&source).Elem()
	merged := newMerger(resolve).merge("", tv, sv)
	value, ok := assignable(tv.Type(), merged)
	if !ok {
		return target
	}
	out := reflect.New(tv.Type()).Elem()
	out.Set(value)
	return out.Interface().(T)
}

type merger struct {
	resolve ArrayResolver
	cloner  *cloner
	active  map[visitKey]struct{}
}

func newMerger(resolve ArrayResolver) *merger {
	return &merger{
		resolve: resolve,
		cloner:  newCloner(),
		active:  make(map[visitKey]struct{}),
	}
}

func (m *merger) merge(path string, target, source reflect.Value) reflect.Value {
	if isUnset(source) {
		return target
	}
	t := unwrap(target)
	s := unwrap(source)
	if !t.IsValid() {
		return m.cloner.clone(s)
	}

	switch {
	case t.Kind() == reflect.Map && s.Kind() == reflect.Map:
		if t.IsNil() {
			break
		}
		if t.Type() != s.Type() {
			if !stringKeyed(t) || !stringKeyed(s) {
				break
			}
			if t.Type().Elem().Kind() != reflect.Interface {
				t = widenMap(t)
			}
		}
		return m.enter(s, func() reflect.Value { return m.mergeMap(path, t, s) })
	case t.Kind() == reflect.Struct && s.Kind() == reflect.Struct:
		if t.Type() != s.Type() {
			break
		}
		return m.mergeStruct(path, t, s)
	case t.Kind() == reflect.Pointer && s.Kind() == reflect.Pointer:
		if t.IsNil() || t.Type() != s.Type() {
			break
		}
		return m.enter(s, func() reflect.Value {
			merged := m.merge(path, t.Elem(), s.Elem())
			if value, ok := assignable(t.Type().Elem(), merged); ok {
				t.Elem().Set(value)
			}
			return t
		})
	case isArray(t) && isArray(s):
		if m.resolve != nil {
			if value, ok := m.resolve(path, t, s); ok {
				return value
			}
		}
	}
	return m.cloner.clone(s)
}

// enter guards recursion through cyclic source graphs. A node already being
// merged higher up the stack is copied instead of merged again.
func (m *merger) enter(source reflect.Value, fn func() reflect.Value) reflect.Value {
	key := visitKey{typ: source.Type(), ptr: source.Pointer()}
	if _, ok := m.active[key]; ok {
		return m.cloner.clone(source)
	}
	m.active[key] = struct{}{}
	defer delete(m.active, key)
	return fn()
}

func (m *merger) mergeMap(path string, target, source reflect.Value) reflect.Value {
	elemType := target.Type().Elem()
	keyType := target.Type().Key()
	iter := source.MapRange()
	for iter.Next() {
		key := iter.Key()
		if key.Type() != keyType {
			key = key.Convert(keyType)
		}
		value := iter.Value()
		if value.Kind() == reflect.Interface && value.IsNil() {
			target.SetMapIndex(key, reflect.Zero(elemType))
			continue
		}
		var merged reflect.Value
		if existing := target.MapIndex(key); existing.IsValid() {
			merged = m.merge(joinPath(path, fmt.Sprint(key.Interface())), existing, value)
		} else {
			merged = m.cloner.clone(value)
		}
		if assigned, ok := assignable(elemType, merged); ok {
			target.SetMapIndex(key, assigned)
		} else if assigned, ok := assignable(elemType, m.cloner.clone(value)); ok {
			target.SetMapIndex(key, assigned)
		}
	}
	return target
}

func (m *merger) mergeStruct(path string, target, source reflect.Value) reflect.Value {
	out := reflect.New(target.Type()).Elem()
	out.Set(target)
	for i := 0; i < target.NumField(); i++ {
		field := target.Type().Field(i)
		if !field.IsExported() {
			continue
		}
		value := source.Field(i)
		if value.IsZero() {
			continue
		}
		merged := m.merge(joinPath(path, FieldName(field)), out.Field(i), value)
		if assigned, ok := assignable(field.Type, merged); ok {
			out.Field(i).Set(assigned)
		} else if assigned, ok := assignable(field.Type, m.cloner.clone(value)); ok {
			out.Field(i).Set(assigned)
		}
	}
	return out
}

func stringKeyed(v reflect.Value) bool {
	return v.Type().Key().Kind() == reflect.String
}

// widenMap copies a string-keyed map into a map[string]any so values of any
// type can be merged into it.
func widenMap(v reflect.Value) reflect.Value {
	out := reflect.MakeMapWithSize(reflect.TypeOf(map[string]any(nil)), v.Len())
	iter := v.MapRange()
	for iter.Next() {
		out.SetMapIndex(reflect.ValueOf(iter.Key().String()), iter.Value())
	}
	return out
}

func isUnset(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isArray(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() != reflect.Uint8
}

// assignable adapts v so it can be stored in a slot of type typ.
func assignable(typ reflect.Type, v reflect.Value) (reflect.Value, bool) {
	if !v.IsValid() {
		return reflect.Zero(typ), true
	}
	if v.Type().AssignableTo(typ) {
		return v, true
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		return assignable(typ, v.Elem())
	}
	if v.Kind() == typ.Kind() && v.Type().ConvertibleTo(typ) {
		return v.Convert(typ), true
	}
	return reflect.Value{}, false
}
