package datatable

import (
	"errors"
	"maps"
	"slices"
	"sync"
)

var (
	// ErrInvalidColumn is returned for a filter or sort key that is not a
	// filterable or sortable column.
	ErrInvalidColumn = errors.New("invalid column")
	// ErrInvalidPerPage is returned for a page size below 1 or outside the
	// configured options.
	ErrInvalidPerPage = errors.New("invalid items per page")
)

// ListState is the user controlled state of a list.
type ListState struct {
	Search       string
	Filters      map[string]string
	Sort         SortState
	Page         int
	ItemsPerPage int
}

// View is everything needed to render the current page.
type View[T Record] struct {
	State         ListState
	Page          PageResult[T]
	PageIDs       []string
	Selected      map[string]bool
	SelectedCount int
	AllSelected   bool
	Indeterminate bool
	PerPageOpts   []int
}

// Controller holds the records and list state of one entity list. Changing
// the search, a filter or the page size resets the page to 1; the page is
// always clamped to the filtered collection. It is safe for concurrent use.
type Controller[T Record] struct {
	mu sync.Mutex

	columns        Columns[T]
	records        []T
	state          ListState
	perPageOptions []int
	selection      *Selection
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	perPage        int
	perPageOptions []int
	sort           SortState
}

// WithItemsPerPage sets the initial page size.
func WithItemsPerPage(n int) Option {
	return func(o *options) { o.perPage = n }
}

// WithPerPageOptions restricts the page sizes SetItemsPerPage accepts.
func WithPerPageOptions(opts []int) Option {
	return func(o *options) { o.perPageOptions = slices.Clone(opts) }
}

// WithSort sets the initial sort.
func WithSort(field string, direction Direction) Option {
	return func(o *options) { o.sort = SortState{Field: field, Direction: direction} }
}

// NewController returns a controller over columns with no records.
func NewController[T Record](columns Columns[T], opts ...Option) *Controller[T] {
	o := options{perPage: 10}
	for _, opt := range opts {
		opt(&o)
	}
	if o.perPage < 1 {
		o.perPage = 10
	}
	if !columns.Sortable(o.sort.Field) {
		o.sort = SortState{}
	}

	return &Controller[T]{
		columns:        columns,
		perPageOptions: o.perPageOptions,
		selection:      NewSelection(),
		state: ListState{
			Filters:      make(map[string]string),
			Sort:         o.sort,
			Page:         1,
			ItemsPerPage: o.perPage,
		},
	}
}

// Columns returns the column set.
func (c *Controller[T]) Columns() Columns[T] {
	return c.columns
}

// SetRecords replaces the collection, e.g. after a refetch. The page is
// clamped and ids that no longer exist are dropped from the selection.
func (c *Controller[T]) SetRecords(records []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = slices.Clone(records)
	ids := make([]string, len(c.records))
	for idx := range c.records {
		ids[idx] = c.records[idx].RecordID()
	}
	c.selection.Retain(ids)
	c.clampLocked()
}

// Records returns a copy of the unfiltered collection.
func (c *Controller[T]) Records() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.records)
}

// Find returns the record with id.
func (c *Controller[T]) Find(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range c.records {
		if rec.RecordID() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// State returns a copy of the list state.
func (c *Controller[T]) State() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Filters = maps.Clone(c.state.Filters)
	return st
}

// SetSearch sets the global search term and resets the page to 1.
func (c *Controller[T]) SetSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if term == c.state.Search {
		return
	}
	c.state.Search = term
	c.state.Page = 1
}

// SetFilter sets the filter of a filterable column and resets the page to 1.
// An empty value removes the filter.
func (c *Controller[T]) SetFilter(key, value string) error {
	if !c.columns.Filterable(key) {
		return ErrInvalidColumn
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Filters[key] == value {
		return nil
	}
	if value == "" {
		delete(c.state.Filters, key)
	} else {
		c.state.Filters[key] = value
	}
	c.state.Page = 1
	return nil
}

// ClearFilters removes the search term and every field filter.
func (c *Controller[T]) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Search = ""
	c.state.Filters = make(map[string]string)
	c.state.Page = 1
}

// ToggleSort cycles the sort of key and returns the new state.
func (c *Controller[T]) ToggleSort(key string) (SortState, error) {
	if !c.columns.Sortable(key) {
		return SortState{}, ErrInvalidColumn
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Sort = c.state.Sort.Toggle(key)
	return c.state.Sort, nil
}

// SetSort sets the sort directly. An empty field or SortNone clears it.
func (c *Controller[T]) SetSort(field string, direction Direction) error {
	if field == "" || direction == SortNone {
		c.mu.Lock()
		c.state.Sort = SortState{}
		c.mu.Unlock()
		return nil
	}
	if !c.columns.Sortable(field) {
		return ErrInvalidColumn
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Sort = SortState{Field: field, Direction: direction}
	return nil
}

// SetPage moves to page, clamped to the filtered collection, and returns
// the page actually set.
func (c *Controller[T]) SetPage(page int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Page = page
	c.clampLocked()
	return c.state.Page
}

// SetItemsPerPage changes the page size and resets the page to 1.
func (c *Controller[T]) SetItemsPerPage(n int) error {
	if n < 1 || (len(c.perPageOptions) > 0 && !slices.Contains(c.perPageOptions, n)) {
		return ErrInvalidPerPage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ItemsPerPage = n
	c.state.Page = 1
	return nil
}

// Visible returns the filtered and sorted collection.
func (c *Controller[T]) Visible() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibleLocked()
}

// Page returns the current page of the visible collection.
func (c *Controller[T]) Page() PageResult[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageLocked()
}

// SelectAll selects exactly the ids of the current page, or clears the
// selection when checked is false.
func (c *Controller[T]) SelectAll(checked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.SelectAll(recordIDs(c.pageLocked().Items), checked)
}

// SelectOne adds or removes id from the selection.
func (c *Controller[T]) SelectOne(id string, checked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.SelectOne(id, checked)
}

// ClearSelection empties the selection.
func (c *Controller[T]) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.Clear()
}

// SelectedIDs returns the selected ids sorted.
func (c *Controller[T]) SelectedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.IDs()
}

// SelectedRecords returns the selected records in the current sort order.
// Selected records hidden by the current filters are included.
func (c *Controller[T]) SelectedRecords() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	sorted := Sort(c.records, c.state.Sort.Field, c.state.Sort.Direction, c.columns)
	out := make([]T, 0, c.selection.Len())
	for _, rec := range sorted {
		if c.selection.Has(rec.RecordID()) {
			out = append(out, rec)
		}
	}
	return out
}

// IsAllSelected reports whether every record of the current page is selected.
func (c *Controller[T]) IsAllSelected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.IsAllSelected(recordIDs(c.pageLocked().Items))
}

// IsIndeterminate reports whether some but not all records of the current
// page are selected.
func (c *Controller[T]) IsIndeterminate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.IsIndeterminate(recordIDs(c.pageLocked().Items))
}

// View returns a consistent snapshot for rendering.
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	page := c.pageLocked()
	ids := recordIDs(page.Items)
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		if c.selection.Has(id) {
			selected[id] = true
		}
	}
	st := c.state
	st.Filters = maps.Clone(c.state.Filters)

	return View[T]{
		State:         st,
		Page:          page,
		PageIDs:       ids,
		Selected:      selected,
		SelectedCount: c.selection.Len(),
		AllSelected:   c.selection.IsAllSelected(ids),
		Indeterminate: c.selection.IsIndeterminate(ids),
		PerPageOpts:   slices.Clone(c.perPageOptions),
	}
}

func (c *Controller[T]) visibleLocked() []T {
	filtered := Filter(c.records, c.state.Search, c.state.Filters, c.columns)
	return Sort(filtered, c.state.Sort.Field, c.state.Sort.Direction, c.columns)
}

func (c *Controller[T]) pageLocked() PageResult[T] {
	res := Paginate(c.visibleLocked(), c.state.Page, c.state.ItemsPerPage)
	c.state.Page = res.CurrentPage
	return res
}

func (c *Controller[T]) clampLocked() {
	n := len(Filter(c.records, c.state.Search, c.state.Filters, c.columns))
	c.state.Page = ClampPage(c.state.Page, n, c.state.ItemsPerPage)
}

func recordIDs[T Record](records []T) []string {
	ids := make([]string, len(records))
	for idx := range records {
		ids[idx] = records[idx].RecordID()
	}
	return ids
}
