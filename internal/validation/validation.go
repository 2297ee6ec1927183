// Package validation runs declarative struct checks and flattens the result
// into field errors that every transport can render.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates s and returns its field errors, or nil when s is valid.
func Struct(s any) []FieldError {
	return FromError(validate.Struct(s))
}

// FromError flattens validator errors. Other errors become a single
// field-less entry.
func FromError(err error) []FieldError {
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Tag: "invalid", Message: err.Error()}}
	}

	out := make([]FieldError, len(ve))
	for i, fe := range ve {
		out[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: message(fe),
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("at least %s %s are required", fe.Param(), field)
		}
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("at most %s %s are allowed", fe.Param(), field)
		}
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s", field, map[string]string{"gte": ">=", "lte": "<="}[fe.Tag()], fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", field)
	}
	return fmt.Sprintf("%s failed on the '%s' rule", field, fe.Tag())
}
