// Package entities defines the admission records managed by the dashboard
// together with their list columns and validation rules.
package entities

import (
	"context"
	"strings"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/datatable"
	"github.com/goccy/go-json"
)

// ID is a record identifier. The backend sends numeric ids for some
// entities and uuid strings for others; both decode into an ID.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if string(b) == "null" {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Repository is the storage of one entity type, either the REST backend or
// the local database.
type Repository[T datatable.Record] interface {
	List(ctx context.Context) ([]T, error)
	Add(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, rec T) (T, error)
	Delete(ctx context.Context, id string) error
}

// User is an operator, teacher or student account.
type User struct {
	ID        ID     `json:"id"         db:"id"         form:"id"`
	FirstName string `json:"first_name" db:"first_name" form:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name"  db:"last_name"  form:"last_name"  validate:"required,max=100"`
	Email     string `json:"email"      db:"email"      form:"email"      validate:"required,email,max=200"`
	Phone     string `json:"phone"      db:"phone"      form:"phone"      validate:"omitempty,max=30"`
	Role      string `json:"role"       db:"role"       form:"role"       validate:"required,notplaceholder,oneof=admin secretariat enseignant etudiant"`
	Site      string `json:"site"       db:"site"       form:"site"       validate:"omitempty,notplaceholder,max=100"`
}

func (u User) RecordID() string { return string(u.ID) }

// FullName returns "first last".
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Site is a training center.
type Site struct {
	ID       ID     `json:"id"       db:"id"       form:"id"`
	Name     string `json:"name"     db:"name"     form:"name"     validate:"required,max=100"`
	City     string `json:"city"     db:"city"     form:"city"     validate:"required,max=100"`
	Address  string `json:"address"  db:"address"  form:"address"  validate:"omitempty,max=250"`
	Phone    string `json:"phone"    db:"phone"    form:"phone"    validate:"omitempty,max=30"`
	Capacity int    `json:"capacity" db:"capacity" form:"capacity" validate:"gte=0"`
}

func (s Site) RecordID() string { return string(s.ID) }

// Filiere is a study track.
type Filiere struct {
	ID             ID     `json:"id"              db:"id"              form:"id"`
	Name           string `json:"name"            db:"name"            form:"name"            validate:"required,max=100"`
	Code           string `json:"code"            db:"code"            form:"code"            validate:"required,alphanum,max=20"`
	Description    string `json:"description"     db:"description"     form:"description"     validate:"omitempty,max=1000"`
	DurationMonths int    `json:"duration_months" db:"duration_months" form:"duration_months" validate:"gte=0,lte=120"`
}

func (f Filiere) RecordID() string { return string(f.ID) }

// CourseType is a sellable course of a filière.
type CourseType struct {
	ID          ID      `json:"id"          db:"id"          form:"id"`
	Name        string  `json:"name"        db:"name"        form:"name"        validate:"required,max=100"`
	Filiere     string  `json:"filiere"     db:"filiere"     form:"filiere"     validate:"required,notplaceholder,max=100"`
	Price       float64 `json:"price"       db:"price"       form:"price"       validate:"gte=0"`
	DelayDays   int     `json:"delay_days"  db:"delay_days"  form:"delay_days"  validate:"gte=0"`
	Description string  `json:"description" db:"description" form:"description" validate:"omitempty,max=1000"`
}

func (c CourseType) RecordID() string { return string(c.ID) }

// Roles lists the user roles with their French labels, in form order.
var Roles = []Option{
	{Value: "admin", Label: "Administrateur"},
	{Value: "secretariat", Label: "Secrétariat"},
	{Value: "enseignant", Label: "Enseignant"},
	{Value: "etudiant", Label: "Étudiant"},
}

// Option is a select option.
type Option struct {
	Value string
	Label string
}

// RoleLabel returns the label of role, or role itself when unknown.
func RoleLabel(role string) string {
	for _, r := range Roles {
		if r.Value == role {
			return r.Label
		}
	}
	return role
}
