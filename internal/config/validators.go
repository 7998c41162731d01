package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/idelchi/gogen/pkg/validator"

	"github.com/idelchi/nwwm/internal/container"
)

// newValidator returns a validator with the custom rules, their messages and
// label-based field names registered.
func newValidator() (*validator.Validator, error) {
	validate := validator.NewValidator()

	if err := validate.RegisterValidationAndTranslation(
		"exclusive",
		validateExclusive,
		"{0} is mutually exclusive",
	); err != nil {
		return nil, fmt.Errorf("registering exclusive validation: %w", err)
	}

	if err := validate.RegisterValidationAndTranslation(
		"blockmultiple",
		validateBlockMultiple,
		"{0} must be a multiple of "+strconv.Itoa(container.BlockSize),
	); err != nil {
		return nil, fmt.Errorf("registering blockmultiple validation: %w", err)
	}

	validate.Validator().RegisterTagNameFunc(func(fld reflect.StructField) string {
		const splitSize = 2

		name := strings.SplitN(fld.Tag.Get("label"), ",", splitSize)[0]
		if name == "-" || name == "" {
			return fld.Name
		}

		return name
	})

	return validate, nil
}

// validateExclusive checks if two fields are mutually exclusive.
// Returns false if both fields have non-empty values.
func validateExclusive(fl validator.FieldLevel) bool {
	otherFieldName := fl.Param()
	field := fl.Field()
	otherField := fl.Parent().FieldByName(otherFieldName)

	if !field.IsValid() || !otherField.IsValid() {
		return true
	}

	if field.Kind() == reflect.String && otherField.Kind() == reflect.String {
		return field.String() == "" || otherField.String() == ""
	}

	return true
}

// validateBlockMultiple checks that an integer field is a multiple of the cipher block size.
func validateBlockMultiple(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() { //nolint:exhaustive // only integers carry sizes
	case reflect.Int, reflect.Int32, reflect.Int64:
		return fl.Field().Int()%container.BlockSize == 0
	default:
		return false
	}
}
