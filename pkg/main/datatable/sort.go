package datatable

import (
	"cmp"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/pool"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction is the sort direction of a column.
type Direction string

const (
	SortNone Direction = ""
	SortAsc  Direction = "asc"
	SortDesc Direction = "desc"
)

// ParseDirection reads "asc" or "desc" case-insensitively. Anything else is
// SortNone.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return SortAsc
	case "desc":
		return SortDesc
	}
	return SortNone
}

// SortState is the active sort key and direction.
type SortState struct {
	Field     string
	Direction Direction
}

// Active reports whether a sort is applied.
func (s SortState) Active() bool {
	return s.Field != "" && s.Direction != SortNone
}

// Toggle activates field. Repeated activation of the same field cycles
// ascending, descending, none. A different field starts ascending.
func (s SortState) Toggle(field string) SortState {
	if field != s.Field || s.Direction == SortNone {
		return SortState{Field: field, Direction: SortAsc}
	}
	if s.Direction == SortAsc {
		return SortState{Field: field, Direction: SortDesc}
	}
	return SortState{}
}

// collators holds French case-insensitive collators. A Collator keeps
// internal buffers and cannot be shared between goroutines.
var collators = pool.NewPool(16, 1, func(c *collator) {
	c.Collator = collate.New(language.French, collate.IgnoreCase)
}, nil)

type collator struct {
	*collate.Collator
}

// Sort returns a sorted copy of records. SortNone returns a copy in the
// original order. The sort is stable and applies no secondary key.
//
// Numeric columns compare as numbers with unparsable values ordered after
// every number. Time values compare chronologically. Other values compare
// as strings with a French case-insensitive collation.
func Sort[T any](records []T, field string, direction Direction, columns Columns[T]) []T {
	out := slices.Clone(records)
	if field == "" || direction == SortNone || len(out) < 2 {
		return out
	}

	col := columns.Find(field)
	if col == nil {
		col = &Column[T]{Key: field}
	}

	keys := make([]sortKey, len(out))
	for idx := range out {
		keys[idx] = newSortKey(col.Raw(out[idx]), col.Numeric)
	}

	coll := collators.Get()
	defer collators.Put(coll)

	order := make([]int, len(out))
	for idx := range order {
		order[idx] = idx
	}
	slices.SortStableFunc(order, func(a, b int) int {
		c := compareKeys(coll, &keys[a], &keys[b])
		if direction == SortDesc {
			return -c
		}
		return c
	})

	sorted := make([]T, len(out))
	for idx, src := range order {
		sorted[idx] = out[src]
	}
	return sorted
}

type keyKind uint8

const (
	kindNumber keyKind = iota
	kindTime
	kindString
)

type sortKey struct {
	kind keyKind
	num  float64
	tm   time.Time
	str  string
}

func newSortKey(v any, numeric bool) sortKey {
	if tm, ok := asTime(v); ok {
		return sortKey{kind: kindTime, tm: tm}
	}
	if numeric || isNumberKind(v) {
		if f, ok := asFloat(v); ok {
			return sortKey{kind: kindNumber, num: f}
		}
	}
	return sortKey{kind: kindString, str: ToString(v)}
}

// compareKeys orders numbers before times before strings, so unparsable
// values in a numeric column come after every number.
func compareKeys(coll *collator, a, b *sortKey) int {
	if a.kind != b.kind {
		return cmp.Compare(a.kind, b.kind)
	}
	switch a.kind {
	case kindNumber:
		return cmp.Compare(a.num, b.num)
	case kindTime:
		return a.tm.Compare(b.tm)
	default:
		return coll.CompareString(a.str, b.str)
	}
}

func asTime(v any) (time.Time, bool) {
	switch tt := v.(type) {
	case time.Time:
		return tt, true
	case *time.Time:
		if tt != nil {
			return *tt, true
		}
	}
	return time.Time{}, false
}

func isNumberKind(v any) bool {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func asFloat(v any) (float64, bool) {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return 0, false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		s := strings.TrimSpace(rv.String())
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.ReplaceAll(s, " ", ""), ",", "."), 64)
		return f, err == nil
	}
	return 0, false
}
