package entities

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/go-playground/validator/v10"
)

// PlaceholderValue is the value of the disabled "choose" option of a select.
const PlaceholderValue = "__placeholder__"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("notplaceholder", func(fl validator.FieldLevel) bool {
			return !IsPlaceholder(fl.Field().String())
		})
	})
	return validate
}

// IsPlaceholder reports whether v is a select placeholder rather than a
// real choice.
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == PlaceholderValue || strings.HasPrefix(v, "--")
}

// FieldError is one rejected field.
type FieldError struct {
	Field   string
	Message string
}

// Validate checks rec against its validate tags. The returned error is a
// VALIDATION ClassifiedError whose message names the first rejected field;
// every rejected field is listed in its "fields" context.
func Validate(operation string, rec any) error {
	err := getValidator().Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Wrap(apperrors.ErrClassValidation, operation, err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return apperrors.WrapWithMessage(apperrors.ErrClassValidation, operation, fields[0].Message, err).
		WithContext("fields", fields)
}

// FieldErrors returns the rejected fields carried by a Validate error.
func FieldErrors(err error) []FieldError {
	fields, _ := apperrors.GetContext(err)["fields"].([]FieldError)
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return "Le champ " + name + " est obligatoire."
	case "notplaceholder":
		return "Veuillez choisir une valeur pour " + name + "."
	case "email":
		return "L'adresse email n'est pas valide."
	case "oneof":
		return "La valeur de " + name + " n'est pas autorisée."
	case "max":
		return "Le champ " + name + " dépasse " + fe.Param() + " caractères."
	case "gte", "lte":
		return "La valeur de " + name + " est hors limites."
	case "alphanum":
		return "Le champ " + name + " ne doit contenir que des lettres et des chiffres."
	}
	return "Le champ " + name + " est invalide."
}
