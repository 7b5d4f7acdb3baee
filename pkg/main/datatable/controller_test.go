package datatable

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manyStudents(n int) []student {
	out := make([]student, n)
	for i := range n {
		city := "Lyon"
		if i%2 == 1 {
			city = "Paris"
		}
		out[i] = student{
			ID:     fmt.Sprintf("s%02d", i),
			Name:   fmt.Sprintf("Student %02d", i),
			Price:  fmt.Sprint(i * 10),
			Campus: &campus{City: city},
		}
	}
	return out
}

func newTestController(n int, opts ...Option) *Controller[student] {
	c := NewController(studentColumns(), opts...)
	c.SetRecords(manyStudents(n))
	return c
}

func TestControllerDefaults(t *testing.T) {
	c := NewController(studentColumns(), WithSort("notes", SortAsc))
	st := c.State()

	assert.Equal(t, 1, st.Page)
	assert.Equal(t, 10, st.ItemsPerPage)
	// notes is not sortable
	assert.False(t, st.Sort.Active())

	page := c.Page()
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.TotalPages)
}

func TestControllerItemsPerPageResetsPage(t *testing.T) {
	c := newTestController(30, WithItemsPerPage(5), WithPerPageOptions([]int{5, 10, 25}))

	assert.Equal(t, 4, c.SetPage(4))
	require.NoError(t, c.SetItemsPerPage(10))
	assert.Equal(t, 1, c.State().Page)

	c.SetPage(3)
	require.NoError(t, c.SetItemsPerPage(10))
	assert.Equal(t, 1, c.State().Page, "same value still resets")

	assert.ErrorIs(t, c.SetItemsPerPage(7), ErrInvalidPerPage)
	assert.ErrorIs(t, c.SetItemsPerPage(0), ErrInvalidPerPage)
	assert.Equal(t, 10, c.State().ItemsPerPage)
}

func TestControllerSearchAndFilterResetPage(t *testing.T) {
	c := newTestController(30, WithItemsPerPage(5))

	c.SetPage(3)
	c.SetSearch("student")
	assert.Equal(t, 1, c.State().Page)

	c.SetPage(3)
	require.NoError(t, c.SetFilter("campus.city", "lyon"))
	assert.Equal(t, 1, c.State().Page)
	assert.Len(t, c.Visible(), 15)

	c.SetPage(2)
	c.ClearFilters()
	assert.Equal(t, 1, c.State().Page)
	assert.Len(t, c.Visible(), 30)
}

func TestControllerRejectsInvalidColumns(t *testing.T) {
	c := newTestController(3)

	assert.ErrorIs(t, c.SetFilter("price", "1"), ErrInvalidColumn)
	assert.ErrorIs(t, c.SetFilter("unknown", "1"), ErrInvalidColumn)
	_, err := c.ToggleSort("notes")
	assert.ErrorIs(t, err, ErrInvalidColumn)
	assert.ErrorIs(t, c.SetSort("notes", SortAsc), ErrInvalidColumn)
	assert.NoError(t, c.SetSort("notes", SortNone))
	assert.Empty(t, c.State().Filters)
}

func TestControllerSetFilterEmptyRemoves(t *testing.T) {
	c := newTestController(4)
	require.NoError(t, c.SetFilter("email", "x"))
	require.NoError(t, c.SetFilter("email", ""))
	_, ok := c.State().Filters["email"]
	assert.False(t, ok)
}

func TestControllerToggleSort(t *testing.T) {
	c := newTestController(12)

	st, err := c.ToggleSort("price")
	require.NoError(t, err)
	assert.Equal(t, SortAsc, st.Direction)
	assert.Equal(t, "s00", c.Page().Items[0].ID)

	st, _ = c.ToggleSort("price")
	assert.Equal(t, SortDesc, st.Direction)
	assert.Equal(t, "s11", c.Page().Items[0].ID)

	st, _ = c.ToggleSort("price")
	assert.False(t, st.Active())
}

func TestControllerClampsPage(t *testing.T) {
	c := newTestController(25, WithItemsPerPage(10))

	assert.Equal(t, 3, c.SetPage(3))
	assert.Equal(t, 3, c.SetPage(99))
	assert.Equal(t, 1, c.SetPage(-1))

	c.SetPage(3)
	c.SetRecords(manyStudents(12))
	assert.Equal(t, 2, c.State().Page)

	c.SetRecords(nil)
	assert.Equal(t, 1, c.State().Page)
}

func TestControllerSelection(t *testing.T) {
	c := newTestController(6, WithItemsPerPage(3))

	c.SelectAll(true)
	assert.Equal(t, []string{"s00", "s01", "s02"}, c.SelectedIDs())
	assert.True(t, c.IsAllSelected())
	assert.False(t, c.IsIndeterminate())

	c.SetPage(2)
	assert.False(t, c.IsAllSelected())
	assert.False(t, c.IsIndeterminate())
	c.SelectOne("s04", true)
	assert.True(t, c.IsIndeterminate())
	assert.Len(t, c.SelectedIDs(), 4)

	c.SelectAll(true)
	assert.Equal(t, []string{"s03", "s04", "s05"}, c.SelectedIDs())

	c.SelectAll(false)
	assert.Empty(t, c.SelectedIDs())

	c.SelectOne("s01", true)
	c.ClearSelection()
	assert.Empty(t, c.SelectedIDs())
}

func TestControllerSetRecordsPrunesSelection(t *testing.T) {
	c := newTestController(5)
	c.SelectOne("s01", true)
	c.SelectOne("s03", true)

	records := manyStudents(5)
	c.SetRecords(append(records[:1], records[2:]...))
	assert.Equal(t, []string{"s03"}, c.SelectedIDs())
}

func TestControllerSelectedRecordsIgnoreFilters(t *testing.T) {
	c := newTestController(6)
	_, _ = c.ToggleSort("price")
	_, _ = c.ToggleSort("price")
	c.SelectOne("s01", true)
	c.SelectOne("s04", true)
	require.NoError(t, c.SetFilter("campus.city", "paris"))

	got := c.SelectedRecords()
	assert.Equal(t, []string{"s04", "s01"}, ids(got))
}

func TestControllerView(t *testing.T) {
	c := newTestController(7, WithItemsPerPage(5), WithPerPageOptions([]int{5, 10}))
	c.SelectOne("s01", true)
	c.SelectOne("s06", true)

	v := c.View()
	assert.Equal(t, []string{"s00", "s01", "s02", "s03", "s04"}, v.PageIDs)
	assert.Equal(t, map[string]bool{"s01": true}, v.Selected)
	assert.Equal(t, 2, v.SelectedCount)
	assert.True(t, v.Indeterminate)
	assert.False(t, v.AllSelected)
	assert.Equal(t, 2, v.Page.TotalPages)
	assert.Equal(t, []int{5, 10}, v.PerPageOpts)

	v.State.Filters["x"] = "y"
	assert.Empty(t, c.State().Filters)
}

func TestControllerFind(t *testing.T) {
	c := newTestController(3)
	rec, ok := c.Find("s02")
	require.True(t, ok)
	assert.Equal(t, "Student 02", rec.Name)

	_, ok = c.Find("nope")
	assert.False(t, ok)
}

func TestControllerConcurrentUse(t *testing.T) {
	c := newTestController(40, WithItemsPerPage(5))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 5 {
			case 0:
				c.SetSearch(fmt.Sprint(i))
			case 1:
				c.SetPage(i)
			case 2:
				c.SelectAll(true)
			case 3:
				_, _ = c.ToggleSort("name")
			default:
				_ = c.View()
			}
		}(i)
	}
	wg.Wait()

	page := c.Page()
	assert.GreaterOrEqual(t, page.CurrentPage, 1)
	assert.LessOrEqual(t, page.CurrentPage, page.TotalPages)
}
