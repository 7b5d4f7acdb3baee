package datatable

import "slices"

// Selection is a set of record ids kept across page navigation. Select-all
// and the derived checkbox states are scoped to the page ids passed in.
// It is not safe for concurrent use; Controller guards its own.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns a selection holding ids.
func NewSelection(ids ...string) *Selection {
	s := &Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// SelectAll replaces the set with exactly pageIDs when checked and clears
// it otherwise.
func (s *Selection) SelectAll(pageIDs []string, checked bool) {
	s.ids = make(map[string]struct{}, len(pageIDs))
	if !checked {
		return
	}
	for _, id := range pageIDs {
		s.ids[id] = struct{}{}
	}
}

// SelectOne adds or removes id. Both are idempotent.
func (s *Selection) SelectOne(id string, checked bool) {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if checked {
		s.ids[id] = struct{}{}
	} else {
		delete(s.ids, id)
	}
}

func (s *Selection) Clear() {
	s.ids = make(map[string]struct{})
}

func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids sorted.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Retain drops every id not in keep and returns how many were dropped.
func (s *Selection) Retain(keep []string) int {
	alive := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		alive[id] = struct{}{}
	}
	var dropped int
	for id := range s.ids {
		if _, ok := alive[id]; !ok {
			delete(s.ids, id)
			dropped++
		}
	}
	return dropped
}

// IsAllSelected reports whether the page is non-empty and every page id is
// selected. Ids selected on other pages do not count.
func (s *Selection) IsAllSelected(pageIDs []string) bool {
	if len(pageIDs) == 0 {
		return false
	}
	return s.countOn(pageIDs) == len(pageIDs)
}

// IsIndeterminate reports whether some but not all page ids are selected.
func (s *Selection) IsIndeterminate(pageIDs []string) bool {
	n := s.countOn(pageIDs)
	return n > 0 && n < len(pageIDs)
}

func (s *Selection) countOn(pageIDs []string) int {
	var n int
	for _, id := range pageIDs {
		if s.Has(id) {
			n++
		}
	}
	return n
}
