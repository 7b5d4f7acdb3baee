package entities

import (
	"github.com/Kellerman81/go_admissions_admin/pkg/main/datatable"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Definition ties an entity type to its list columns and storage layout.
type Definition[T datatable.Record] struct {
	// Name is the url and config name, e.g. "course_types".
	Name string
	// Singular is used in confirmation dialogs and toasts.
	Singular string
	Columns  datatable.Columns[T]
	// Table and Fields describe the sqlite table; Fields excludes id.
	Table  string
	Fields []string
	SetID  func(*T, string)
	// Title is the human name of a record.
	Title func(T) string
}

var frPrinter = message.NewPrinter(language.French)

// FormatPrice renders an amount in euros with French separators.
func FormatPrice(v float64) string {
	return frPrinter.Sprintf("%.2f €", v)
}

var Users = Definition[User]{
	Name:     "users",
	Singular: "utilisateur",
	Columns: datatable.Columns[User]{
		{Key: "last_name", Label: "Nom", Sortable: true, Filterable: true},
		{Key: "first_name", Label: "Prénom", Sortable: true, Filterable: true},
		{Key: "email", Label: "Email", Sortable: true, Filterable: true},
		{Key: "phone", Label: "Téléphone", Width: "140px"},
		{
			Key: "role", Label: "Rôle", Sortable: true, Filterable: true,
			Render: func(u User) string { return RoleLabel(u.Role) },
		},
		{Key: "site", Label: "Site", Sortable: true, Filterable: true},
	},
	Table:  "users",
	Fields: []string{"first_name", "last_name", "email", "phone", "role", "site"},
	SetID:  func(u *User, id string) { u.ID = ID(id) },
	Title:  User.FullName,
}

var Sites = Definition[Site]{
	Name:     "sites",
	Singular: "site",
	Columns: datatable.Columns[Site]{
		{Key: "name", Label: "Nom", Sortable: true, Filterable: true},
		{Key: "city", Label: "Ville", Sortable: true, Filterable: true},
		{Key: "address", Label: "Adresse"},
		{Key: "phone", Label: "Téléphone", Width: "140px"},
		{Key: "capacity", Label: "Capacité", Sortable: true, Numeric: true, SearchDisabled: true, ClassName: "text-end"},
	},
	Table:  "sites",
	Fields: []string{"name", "city", "address", "phone", "capacity"},
	SetID:  func(s *Site, id string) { s.ID = ID(id) },
	Title:  func(s Site) string { return s.Name },
}

var Filieres = Definition[Filiere]{
	Name:     "filieres",
	Singular: "filière",
	Columns: datatable.Columns[Filiere]{
		{Key: "code", Label: "Code", Sortable: true, Filterable: true, Width: "100px"},
		{Key: "name", Label: "Nom", Sortable: true, Filterable: true},
		{Key: "description", Label: "Description"},
		{
			Key: "duration_months", Label: "Durée (mois)", Sortable: true, Numeric: true,
			SearchDisabled: true, ClassName: "text-end",
		},
	},
	Table:  "filieres",
	Fields: []string{"name", "code", "description", "duration_months"},
	SetID:  func(f *Filiere, id string) { f.ID = ID(id) },
	Title:  func(f Filiere) string { return f.Name },
}

var CourseTypes = Definition[CourseType]{
	Name:     "course_types",
	Singular: "type de cours",
	Columns: datatable.Columns[CourseType]{
		{Key: "name", Label: "Nom", Sortable: true, Filterable: true},
		{Key: "filiere", Label: "Filière", Sortable: true, Filterable: true},
		{
			Key: "price", Label: "Prix", Sortable: true, Numeric: true, ClassName: "text-end",
			Render: func(c CourseType) string { return FormatPrice(c.Price) },
		},
		{Key: "delay_days", Label: "Délai (jours)", Sortable: true, Numeric: true, SearchDisabled: true, ClassName: "text-end"},
		{Key: "description", Label: "Description", SearchDisabled: true},
	},
	Table:  "course_types",
	Fields: []string{"name", "filiere", "price", "delay_days", "description"},
	SetID:  func(c *CourseType, id string) { c.ID = ID(id) },
	Title:  func(c CourseType) string { return c.Name },
}
