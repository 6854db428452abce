package deep

import (
	"reflect"
	"strconv"
	"strings"
)

// Get resolves a dotted path such as "path.to.array" against value. Map keys,
// exported struct fields (by Go name or json tag) and numeric slice indexes
// are supported. Pointers and interfaces are followed transparently.
func Get(value any, path string) (any, bool) {
	rv, ok := lookup(reflect.ValueOf(value), path)
	if !ok || !rv.CanInterface() {
		return nil, false
	}
	return rv.Interface(), true
}

func lookup(rv reflect.Value, path string) (reflect.Value, bool) {
	if path == "" {
		return rv, rv.IsValid()
	}
	current := rv
	for _, segment := range strings.Split(path, ".") {
		next, ok := child(current, segment)
		if !ok {
			return reflect.Value{}, false
		}
		current = next
	}
	return current, true
}

func child(rv reflect.Value, segment string) (reflect.Value, bool) {
	rv = indirect(rv)
	if !rv.IsValid() {
		return reflect.Value{}, false
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		value := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return reflect.Value{}, false
		}
		return value, true
	case reflect.Struct:
		index, ok := fieldIndex(rv.Type(), segment)
		if !ok {
			return reflect.Value{}, false
		}
		return rv.Field(index), true
	case reflect.Slice, reflect.Array:
		index, err := strconv.Atoi(segment)
		if err != nil || index < 0 || index >= rv.Len() {
			return reflect.Value{}, false
		}
		return rv.Index(index), true
	default:
		return reflect.Value{}, false
	}
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

// fieldIndex matches an exported field by json tag name first, then by Go name.
func fieldIndex(t reflect.Type, name string) (int, bool) {
	fallback := -1
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if tagName(field) == name {
			return i, true
		}
		if fallback == -1 && field.Name == name {
			fallback = i
		}
	}
	return fallback, fallback != -1
}

// FieldName returns the name a struct field is addressed by in paths: its
// json tag name when present, otherwise the Go field name.
func FieldName(field reflect.StructField) string {
	if name := tagName(field); name != "" {
		return name
	}
	return field.Name
}

func tagName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}
