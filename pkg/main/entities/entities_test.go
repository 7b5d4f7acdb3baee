package entities

import (
	"testing"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/datatable"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	var rows []Site
	err := json.Unmarshal([]byte(`[{"id":12,"name":"Lyon"},{"id":"a-b","name":"Paris"},{"id":null}]`), &rows)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "12", rows[0].RecordID())
	assert.Equal(t, "a-b", rows[1].RecordID())
	assert.Equal(t, "", rows[2].RecordID())
}

func TestValidateUser(t *testing.T) {
	u := User{FirstName: "Ana", LastName: "Silva", Email: "ana@example.org", Role: "admin"}
	require.NoError(t, Validate("add_user", u))

	u.Role = PlaceholderValue
	err := Validate("add_user", u)
	require.Error(t, err)
	assert.True(t, apperrors.IsClass(err, apperrors.ErrClassValidation))
	assert.Equal(t, "Veuillez choisir une valeur pour role.", apperrors.UserMessage(err))

	u.Role = "admin"
	u.Site = "-- Choisir un site --"
	err = Validate("add_user", u)
	require.Error(t, err)
	fields := FieldErrors(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "site", fields[0].Field)
}

func TestValidateCollectsFields(t *testing.T) {
	err := Validate("add_course_type", CourseType{Price: -1})
	require.Error(t, err)
	var names []string
	for _, f := range FieldErrors(err) {
		names = append(names, f.Field)
	}
	assert.ElementsMatch(t, []string{"name", "filiere", "price"}, names)
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder(PlaceholderValue))
	assert.True(t, IsPlaceholder(" -- Rôle --"))
	assert.False(t, IsPlaceholder("admin"))
	assert.False(t, IsPlaceholder(""))
}

func TestColumnsRender(t *testing.T) {
	role := Users.Columns.Find("role")
	require.NotNil(t, role)
	assert.Equal(t, "Secrétariat", role.Display(User{Role: "secretariat"}))
	assert.Equal(t, "secretariat", role.Text(User{Role: "secretariat"}))

	price := CourseTypes.Columns.Find("price")
	require.NotNil(t, price)
	assert.True(t, price.Numeric)
	assert.Contains(t, price.Display(CourseType{Price: 1250.5}), "€")
}

func TestCourseTypesSortByPrice(t *testing.T) {
	rows := []CourseType{
		{ID: "1", Name: "B", Price: 900},
		{ID: "2", Name: "A", Price: 80},
		{ID: "3", Name: "C", Price: 1200},
	}
	sorted := datatable.Sort(rows, "price", datatable.SortAsc, CourseTypes.Columns)
	assert.Equal(t, []string{"2", "1", "3"}, []string{sorted[0].RecordID(), sorted[1].RecordID(), sorted[2].RecordID()})
}

func TestDefinitionsSetID(t *testing.T) {
	var f Filiere
	Filieres.SetID(&f, "x1")
	assert.Equal(t, "x1", f.RecordID())
	assert.Equal(t, "Ana Silva", Users.Title(User{FirstName: "Ana", LastName: "Silva"}))
}
