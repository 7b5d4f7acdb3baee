// Package datatable turns a flat collection of records into a filtered,
// sorted, paginated and selectable list. The functions are pure; the
// Controller owns the state coupling between them.
package datatable

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Record is an entity row with a stable identifier.
type Record interface {
	RecordID() string
}

// Column describes how one field of T is displayed, searched, filtered and
// sorted.
type Column[T any] struct {
	Key   string
	Label string

	Sortable   bool
	Filterable bool
	// SearchDisabled excludes the column from the global search.
	SearchDisabled bool
	// Numeric columns sort as numbers.
	Numeric bool

	// Value reads the raw value. When nil Key is resolved as a dotted path.
	Value func(T) any
	// Render formats the cell. When nil the string form of the value is used.
	Render func(T) string

	Width     string
	ClassName string
}

// Raw returns the raw value of the column for rec.
func (c *Column[T]) Raw(rec T) any {
	if c.Value != nil {
		return c.Value(rec)
	}
	return FieldValue(rec, c.Key)
}

// Text returns the string form used for search and filters.
func (c *Column[T]) Text(rec T) string {
	return ToString(c.Raw(rec))
}

// Display returns the rendered cell text.
func (c *Column[T]) Display(rec T) string {
	if c.Render != nil {
		return c.Render(rec)
	}
	return c.Text(rec)
}

// Columns is the ordered column set of one entity list.
type Columns[T any] []Column[T]

// Find returns the column with key, or nil.
func (cols Columns[T]) Find(key string) *Column[T] {
	for idx := range cols {
		if cols[idx].Key == key {
			return &cols[idx]
		}
	}
	return nil
}

// Filterable reports whether key names a filterable column.
func (cols Columns[T]) Filterable(key string) bool {
	c := cols.Find(key)
	return c != nil && c.Filterable
}

// Sortable reports whether key names a sortable column.
func (cols Columns[T]) Sortable(key string) bool {
	c := cols.Find(key)
	return c != nil && c.Sortable
}

// ToString converts a field value to its comparison string. nil becomes "".
func ToString(v any) string {
	switch tt := v.(type) {
	case nil:
		return ""
	case string:
		return tt
	case *string:
		if tt == nil {
			return ""
		}
		return *tt
	case int:
		return strconv.Itoa(tt)
	case int64:
		return strconv.FormatInt(tt, 10)
	case uint:
		return strconv.FormatUint(uint64(tt), 10)
	case float64:
		return strconv.FormatFloat(tt, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(tt)
	case time.Time:
		if tt.IsZero() {
			return ""
		}
		return tt.Format(time.DateOnly)
	case fmt.Stringer:
		if isNilPointer(tt) {
			return ""
		}
		return tt.String()
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	return fmt.Sprint(rv.Interface())
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
