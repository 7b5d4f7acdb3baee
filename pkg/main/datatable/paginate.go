package datatable

// PageResult is one page of a record collection.
type PageResult[T any] struct {
	Items       []T
	TotalPages  int
	TotalItems  int
	CurrentPage int
	PerPage     int
	// StartIndex and EndIndex bound Items in the full collection, end exclusive.
	StartIndex int
	EndIndex   int
}

// HasPrev reports whether a previous page exists.
func (p PageResult[T]) HasPrev() bool {
	return p.CurrentPage > 1
}

// HasNext reports whether a next page exists.
func (p PageResult[T]) HasNext() bool {
	return p.CurrentPage < p.TotalPages
}

// TotalPages returns ceil(count/perPage) with a minimum of 1.
func TotalPages(count, perPage int) int {
	if perPage < 1 {
		perPage = 1
	}
	return max(1, (count+perPage-1)/perPage)
}

// ClampPage bounds page to [1, TotalPages(count, perPage)].
func ClampPage(page, count, perPage int) int {
	return min(max(page, 1), TotalPages(count, perPage))
}

// Paginate slices records into the page'th page of perPage items. page is
// clamped first. A perPage below 1 is treated as 1.
func Paginate[T any](records []T, page, perPage int) PageResult[T] {
	if perPage < 1 {
		perPage = 1
	}
	n := len(records)
	page = ClampPage(page, n, perPage)

	start := min((page-1)*perPage, n)
	end := min(start+perPage, n)

	return PageResult[T]{
		Items:       records[start:end:end],
		TotalPages:  TotalPages(n, perPage),
		TotalItems:  n,
		CurrentPage: page,
		PerPage:     perPage,
		StartIndex:  start,
		EndIndex:    end,
	}
}
