package datatable

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type campus struct {
	City string `json:"city"`
}

type student struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Price   string    `json:"price"`
	Level   int       `db:"level"`
	Notes   *string   `json:"notes"`
	Enroled time.Time `json:"enroled"`
	Campus  *campus   `json:"campus"`
}

func (s student) RecordID() string { return s.ID }

func studentColumns() Columns[student] {
	return Columns[student]{
		{Key: "name", Label: "Nom", Sortable: true, Filterable: true},
		{Key: "email", Label: "Email", Sortable: true, Filterable: true},
		{Key: "price", Label: "Prix", Sortable: true, Numeric: true},
		{Key: "level", Label: "Niveau", Sortable: true},
		{Key: "notes", Label: "Notes", SearchDisabled: true, Filterable: true},
		{Key: "enroled", Label: "Inscrit le", Sortable: true, SearchDisabled: true},
		{Key: "campus.city", Label: "Ville", Sortable: true, Filterable: true},
	}
}

func ids[T Record](records []T) []string {
	out := make([]string, len(records))
	for idx := range records {
		out[idx] = records[idx].RecordID()
	}
	return out
}

func strptr(s string) *string { return &s }

func sampleStudents() []student {
	return []student{
		{ID: "1", Name: "Émile Durand", Email: "emile@example.fr", Price: "10", Level: 2,
			Campus: &campus{City: "Lyon"}, Enroled: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", Name: "amy Martin", Email: "amy@example.fr", Price: "2", Level: 10,
			Campus: &campus{City: "Paris"}, Enroled: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "3", Name: "Zoé Bernard", Email: "zoe@example.fr", Price: "n/a", Level: 1,
			Notes: strptr("Boursière"), Enroled: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)},
		{ID: "4", Name: "Bruno Petit", Email: "bruno@exemple.com", Price: "1,5", Level: 3,
			Campus: &campus{City: "Lyon"}, Enroled: time.Date(2022, 6, 30, 0, 0, 0, 0, time.UTC)},
	}
}

func TestFieldValue(t *testing.T) {
	s := sampleStudents()[0]

	assert.Equal(t, "Émile Durand", FieldValue(s, "name"))
	assert.Equal(t, "Émile Durand", FieldValue(&s, "Name"))
	assert.Equal(t, 2, FieldValue(s, "level"))
	assert.Equal(t, "Lyon", FieldValue(s, "campus.city"))
	assert.Nil(t, FieldValue(sampleStudents()[2], "campus.city"))
	assert.Nil(t, FieldValue(s, "notes"))
	assert.Nil(t, FieldValue(s, "missing"))
	assert.Nil(t, FieldValue(s, ""))
	assert.Nil(t, FieldValue(nil, "name"))

	m := map[string]any{"site": map[string]any{"name": "Nord"}, "capacity": 40}
	assert.Equal(t, "Nord", FieldValue(m, "site.name"))
	assert.Equal(t, 40, FieldValue(m, "capacity"))
	assert.Nil(t, FieldValue(m, "site.city"))
}

func TestToString(t *testing.T) {
	var nilStr *string
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{nilStr, ""},
		{strptr("x"), "x"},
		{42, "42"},
		{int64(-7), "-7"},
		{uint(3), "3"},
		{1.5, "1.5"},
		{true, "true"},
		{time.Time{}, ""},
		{time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC), "2024-09-01"},
		{int32(9), "9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToString(tt.in), "ToString(%#v)", tt.in)
	}
}

func TestColumnRenderAndValue(t *testing.T) {
	col := Column[student]{
		Key:    "full",
		Value:  func(s student) any { return strings.ToUpper(s.Name) },
		Render: func(s student) string { return "<" + s.ID + ">" },
	}
	s := sampleStudents()[1]
	assert.Equal(t, "AMY MARTIN", col.Text(s))
	assert.Equal(t, "<2>", col.Display(s))

	plain := Column[student]{Key: "email"}
	assert.Equal(t, "amy@example.fr", plain.Display(s))

	cols := studentColumns()
	assert.True(t, cols.Filterable("notes"))
	assert.False(t, cols.Filterable("price"))
	assert.True(t, cols.Sortable("price"))
	assert.False(t, cols.Sortable("notes"))
	assert.Nil(t, cols.Find("nope"))
}

func TestFilterIdentity(t *testing.T) {
	records := sampleStudents()
	got := Filter(records, "", map[string]string{}, studentColumns())
	assert.Equal(t, records, got)

	got = Filter(records, "", nil, studentColumns())
	assert.Equal(t, records, got)

	assert.Empty(t, Filter([]student{}, "x", nil, studentColumns()))
}

func TestFilterSearchSoundAndComplete(t *testing.T) {
	records := sampleStudents()
	cols := studentColumns()

	for _, term := range []string{"lyon", "EXAMPLE", "é", "amy", "10", "zzz", "durand"} {
		got := Filter(records, term, nil, cols)
		kept := make(map[string]bool, len(got))
		for _, rec := range got {
			kept[rec.ID] = true
		}
		for _, rec := range records {
			var matches bool
			for idx := range cols {
				if cols[idx].SearchDisabled {
					continue
				}
				if strings.Contains(strings.ToLower(cols[idx].Text(rec)), strings.ToLower(term)) {
					matches = true
				}
			}
			assert.Equal(t, matches, kept[rec.ID], "term %q record %s", term, rec.ID)
		}
	}
}

func TestFilterSearchKeepsSurroundingSpaces(t *testing.T) {
	records := []student{
		{ID: "1", Name: "Amy"},
		{ID: "2", Name: "La Rochelle"},
	}
	cols := studentColumns()

	tests := []struct {
		term string
		want []string
	}{
		{term: "a ", want: []string{"2"}},
		{term: " rochelle", want: []string{"2"}},
		{term: "amy ", want: []string{}},
		{term: " ", want: []string{"2"}},
		{term: "  ", want: []string{}},
		{term: "", want: []string{"1", "2"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.term), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(records, tt.term, nil, cols)))
		})
	}
}

func TestFilterSearchSkipsDisabledColumns(t *testing.T) {
	got := Filter(sampleStudents(), "boursière", nil, studentColumns())
	assert.Empty(t, got)

	got = Filter(sampleStudents(), "", map[string]string{"notes": "BOURS"}, studentColumns())
	assert.Equal(t, []string{"3"}, ids(got))
}

func TestFilterFieldFiltersAreANDed(t *testing.T) {
	records := sampleStudents()
	cols := studentColumns()

	got := Filter(records, "", map[string]string{"campus.city": "lyon"}, cols)
	assert.Equal(t, []string{"1", "4"}, ids(got))

	got = Filter(records, "", map[string]string{"campus.city": "lyon", "email": ".com"}, cols)
	assert.Equal(t, []string{"4"}, ids(got))

	got = Filter(records, "émile", map[string]string{"campus.city": "lyon"}, cols)
	assert.Equal(t, []string{"1"}, ids(got))

	got = Filter(records, "", map[string]string{"campus.city": "", "email": ""}, cols)
	assert.Len(t, got, len(records))
}

func TestFilterNilValuesMatchEmpty(t *testing.T) {
	records := []student{{ID: "x"}}
	assert.NotPanics(t, func() {
		got := Filter(records, "", map[string]string{"campus.city": "a"}, studentColumns())
		assert.Empty(t, got)
	})
	assert.Len(t, Filter(records, "", map[string]string{"campus.city": ""}, studentColumns()), 1)
}

func TestFilterDoesNotModifyInput(t *testing.T) {
	records := sampleStudents()
	before := ids(records)
	Filter(records, "lyon", nil, studentColumns())
	assert.Equal(t, before, ids(records))
}

func TestSortToggleScenario(t *testing.T) {
	records := []named{{ID: "A", Name: "Zed"}, {ID: "B", Name: "Amy"}}
	cols := Columns[named]{{Key: "name", Sortable: true}}

	var st SortState
	st = st.Toggle("name")
	require.Equal(t, SortState{Field: "name", Direction: SortAsc}, st)
	assert.Equal(t, []string{"B", "A"}, ids(Sort(records, st.Field, st.Direction, cols)))

	st = st.Toggle("name")
	require.Equal(t, SortDesc, st.Direction)
	assert.Equal(t, []string{"A", "B"}, ids(Sort(records, st.Field, st.Direction, cols)))

	st = st.Toggle("name")
	require.False(t, st.Active())
	assert.Equal(t, []string{"A", "B"}, ids(Sort(records, st.Field, st.Direction, cols)))
}

type named struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (n named) RecordID() string { return n.ID }

func TestSortToggleNewFieldStartsAscending(t *testing.T) {
	st := SortState{Field: "name", Direction: SortDesc}
	assert.Equal(t, SortState{Field: "email", Direction: SortAsc}, st.Toggle("email"))
	assert.Equal(t, SortState{Field: "email", Direction: SortAsc}, SortState{}.Toggle("email"))
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, SortAsc, ParseDirection("ASC"))
	assert.Equal(t, SortDesc, ParseDirection(" desc "))
	assert.Equal(t, SortNone, ParseDirection("sideways"))
}

func TestSortNumericColumn(t *testing.T) {
	records := sampleStudents()
	cols := studentColumns()

	got := Sort(records, "price", SortAsc, cols)
	// 1,5 < 2 < 10, unparsable last
	assert.Equal(t, []string{"4", "2", "1", "3"}, ids(got))

	got = Sort(records, "price", SortDesc, cols)
	assert.Equal(t, []string{"3", "1", "2", "4"}, ids(got))

	// native ints sort as numbers without the Numeric flag
	got = Sort(records, "level", SortAsc, cols)
	assert.Equal(t, []string{"3", "1", "4", "2"}, ids(got))
}

func TestSortStringsCollated(t *testing.T) {
	got := Sort(sampleStudents(), "name", SortAsc, studentColumns())
	// case and accents do not push "amy" or "Émile" to the end
	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(got))
}

func TestSortTimes(t *testing.T) {
	got := Sort(sampleStudents(), "enroled", SortAsc, studentColumns())
	assert.Equal(t, []string{"4", "2", "1", "3"}, ids(got))
}

func TestSortNestedNilSortsAsEmpty(t *testing.T) {
	got := Sort(sampleStudents(), "campus.city", SortAsc, studentColumns())
	assert.Equal(t, "3", got[0].ID)
}

func TestSortReverseProperty(t *testing.T) {
	records := sampleStudents()
	cols := studentColumns()
	for _, field := range []string{"name", "email", "price", "level", "enroled"} {
		asc := ids(Sort(records, field, SortAsc, cols))
		desc := ids(Sort(records, field, SortDesc, cols))
		for i := range asc {
			assert.Equal(t, asc[i], desc[len(desc)-1-i], "field %s", field)
		}
	}
}

func TestSortStableOnTies(t *testing.T) {
	records := []named{{ID: "1", Name: "b"}, {ID: "2", Name: "a"}, {ID: "3", Name: "B"}, {ID: "4", Name: "a"}}
	cols := Columns[named]{{Key: "name", Sortable: true}}

	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(Sort(records, "name", SortAsc, cols)))
}

func TestSortNoneAndInputUntouched(t *testing.T) {
	records := sampleStudents()
	before := ids(records)

	got := Sort(records, "name", SortNone, studentColumns())
	assert.Equal(t, before, ids(got))

	Sort(records, "name", SortDesc, studentColumns())
	assert.Equal(t, before, ids(records))
}

func TestPaginateSinglePerPageScenario(t *testing.T) {
	records := sampleStudents()[:3]
	res := Paginate(records, 2, 1)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "2", res.Items[0].ID)
	assert.Equal(t, 1, res.StartIndex)
	assert.Equal(t, 2, res.EndIndex)
	assert.Equal(t, 3, res.TotalPages)
	assert.True(t, res.HasPrev())
	assert.True(t, res.HasNext())
}

func TestPaginateReconstruction(t *testing.T) {
	var records []named
	for i := range 23 {
		records = append(records, named{ID: fmt.Sprint(i), Name: fmt.Sprint("n", i)})
	}

	for _, perPage := range []int{1, 2, 5, 10, 23, 50} {
		first := Paginate(records, 1, perPage)
		var all []named
		for page := 1; page <= first.TotalPages; page++ {
			res := Paginate(records, page, perPage)
			assert.LessOrEqual(t, len(res.Items), perPage)
			all = append(all, res.Items...)
		}
		assert.Equal(t, records, all, "perPage %d", perPage)
	}
}

func TestPaginateEmptyAndClamp(t *testing.T) {
	res := Paginate([]named(nil), 3, 10)
	assert.Empty(t, res.Items)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, 1, res.CurrentPage)
	assert.Equal(t, 0, res.StartIndex)
	assert.Equal(t, 0, res.EndIndex)
	assert.False(t, res.HasNext())

	records := []named{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	assert.Equal(t, 2, Paginate(records, 99, 2).CurrentPage)
	assert.Equal(t, 1, Paginate(records, -4, 2).CurrentPage)
	assert.Equal(t, 1, Paginate(records, 1, 0).PerPage)

	assert.Equal(t, 3, TotalPages(21, 10))
	assert.Equal(t, 1, TotalPages(0, 10))
	assert.Equal(t, 2, ClampPage(5, 11, 10))
}

func TestSelectAll(t *testing.T) {
	s := NewSelection("other-page")
	page := []string{"a", "b", "c"}

	s.SelectAll(page, true)
	assert.True(t, s.IsAllSelected(page))
	assert.False(t, s.IsIndeterminate(page))
	assert.Equal(t, []string{"a", "b", "c"}, s.IDs())

	s.SelectAll(page, false)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.IsAllSelected(page))
}

func TestSelectionPageScoped(t *testing.T) {
	s := NewSelection()
	s.SelectAll([]string{"a", "b"}, true)

	next := []string{"c", "d"}
	assert.False(t, s.IsAllSelected(next))
	assert.False(t, s.IsIndeterminate(next))

	// same size as the page but not a subset of it
	s.SelectOne("c", true)
	assert.Equal(t, 3, s.Len())
	assert.False(t, s.IsAllSelected(next))
	assert.True(t, s.IsIndeterminate(next))

	assert.False(t, s.IsAllSelected(nil))
}

func TestSelectOneIdempotent(t *testing.T) {
	var s Selection
	s.SelectOne("a", true)
	s.SelectOne("a", true)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Has("a"))

	s.SelectOne("a", false)
	s.SelectOne("a", false)
	assert.Equal(t, 0, s.Len())

	s.SelectOne("b", true)
	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestSelectionRetain(t *testing.T) {
	s := NewSelection("a", "b", "c")
	assert.Equal(t, 2, s.Retain([]string{"b", "z"}))
	assert.Equal(t, []string{"b"}, s.IDs())
}
