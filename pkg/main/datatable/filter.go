package datatable

import "strings"

// Filter keeps the records matching the global search term and every
// non-empty field filter. Matching is a case-insensitive substring test on
// the string form of the value. The search looks at every column not marked
// SearchDisabled; a field filter looks at its own column.
//
// The term is matched as typed, surrounding spaces included. The input is
// never modified. An empty term with no active filter returns a copy of
// records.
func Filter[T any](records []T, search string, fieldFilters map[string]string, columns Columns[T]) []T {
	term := strings.ToLower(search)

	type activeFilter struct {
		col   *Column[T]
		key   string
		value string
	}
	var active []activeFilter
	for key, value := range fieldFilters {
		if value == "" {
			continue
		}
		active = append(active, activeFilter{col: columns.Find(key), key: key, value: strings.ToLower(value)})
	}

	out := make([]T, 0, len(records))
	for _, rec := range records {
		if term != "" && !matchesSearch(rec, term, columns) {
			continue
		}
		keep := true
		for _, f := range active {
			var text string
			if f.col != nil {
				text = f.col.Text(rec)
			} else {
				text = ToString(FieldValue(rec, f.key))
			}
			if !strings.Contains(strings.ToLower(text), f.value) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, rec)
		}
	}
	return out
}

func matchesSearch[T any](rec T, term string, columns Columns[T]) bool {
	for idx := range columns {
		if columns[idx].SearchDisabled {
			continue
		}
		if strings.Contains(strings.ToLower(columns[idx].Text(rec)), term) {
			return true
		}
	}
	return false
}
