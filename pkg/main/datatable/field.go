package datatable

import (
	"reflect"
	"strings"
	"sync"
)

// fieldIndex caches the struct field lookup per type and name.
var fieldIndex sync.Map // map[fieldKey]int

type fieldKey struct {
	typ  reflect.Type
	name string
}

// FieldValue resolves a dotted path over structs and string keyed maps.
// Struct fields match their json tag, db tag or name (case-insensitive).
// A missing field yields nil.
func FieldValue(v any, path string) any {
	if path == "" {
		return nil
	}
	rv := reflect.ValueOf(v)
	for _, part := range strings.Split(path, ".") {
		rv = indirect(rv)
		if !rv.IsValid() {
			return nil
		}
		switch rv.Kind() {
		case reflect.Map:
			if rv.Type().Key().Kind() != reflect.String {
				return nil
			}
			rv = rv.MapIndex(reflect.ValueOf(part).Convert(rv.Type().Key()))
		case reflect.Struct:
			idx := structField(rv.Type(), part)
			if idx < 0 {
				return nil
			}
			rv = rv.Field(idx)
		default:
			return nil
		}
	}
	rv = indirect(rv)
	if !rv.IsValid() || !rv.CanInterface() {
		return nil
	}
	return rv.Interface()
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

func structField(typ reflect.Type, name string) int {
	key := fieldKey{typ: typ, name: name}
	if idx, ok := fieldIndex.Load(key); ok {
		return idx.(int)
	}

	idx := -1
	for i := range typ.NumField() {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		if tagName(f.Tag.Get("json")) == name || tagName(f.Tag.Get("db")) == name {
			idx = i
			break
		}
		if idx < 0 && strings.EqualFold(f.Name, name) {
			idx = i
		}
	}
	fieldIndex.Store(key, idx)
	return idx
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}
