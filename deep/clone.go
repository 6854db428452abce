package deep

import "reflect"

// Clone returns a structural copy of value that shares no mutable state with
// the input. Shared and cyclic substructure is copied once, so two paths that
// pointed at the same map, slice or pointer in the input point at the same
// copy in the output. Concrete types behind interfaces are preserved.
//
// Unexported struct fields are copied shallowly.
func Clone[T any](value T) T {
	var zero T
	rv := reflect.ValueOf(&value).Elem()
	cloned := newCloner().clone(rv)
	if !cloned.IsValid() {
		return zero
	}
	out := reflect.New(rv.Type()).Elem()
	out.Set(cloned)
	return out.Interface().(T)
}

type visitKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}

type cloner struct {
	seen map[visitKey]reflect.Value
}

func newCloner() *cloner {
	return &cloner{seen: make(map[visitKey]reflect.Value)}
}

func (c *cloner) clone(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := visitKey{typ: v.Type(), ptr: v.Pointer()}
		if existing, ok := c.seen[key]; ok {
			return existing
		}
		out := reflect.New(v.Type().Elem())
		c.seen[key] = out
		out.Elem().Set(c.clone(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := c.clone(v.Elem())
		out := reflect.New(v.Type()).Elem()
		if elem.IsValid() {
			out.Set(elem)
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(c.clone(v.Field(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := visitKey{typ: v.Type(), ptr: v.Pointer()}
		if existing, ok := c.seen[key]; ok {
			return existing
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		c.seen[key] = out
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(c.clone(iter.Key()), c.clone(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := visitKey{typ: v.Type(), ptr: v.Pointer(), len: v.Len()}
		if v.Len() > 0 {
			if existing, ok := c.seen[key]; ok {
				return existing
			}
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		if v.Len() > 0 {
			c.seen[key] = out
		}
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.clone(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.clone(v.Index(i)))
		}
		return out
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
