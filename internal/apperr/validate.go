package apperr

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidate returns a validator that reports fields by their json names.
func NewValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// FromValidator turns validator field errors into a ValidationError mapping field to
// the failed tag. Other errors are returned as is.
func FromValidator(message string, err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	fields := make(map[string]string, len(ves))
	for _, ve := range ves {
		fields[ve.Field()] = ve.Tag()
	}
	return &ValidationError{Message: message, Fields: fields}
}
