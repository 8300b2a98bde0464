package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

// ValidationErrors converts the errors produced by validator into one readable error per field.
// Any other error is returned unchanged.
func ValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var result *multierror.Error
	for _, fieldErr := range fieldErrs {
		fieldName := stripPrefix(fieldErr.Namespace())
		switch fieldErr.Tag() {
		case "required":
			result = multierror.Append(result, fmt.Errorf("field %s is required but was not found", fieldName))
		case "oneof":
			result = multierror.Append(result, fmt.Errorf("field %s has invalid value %v: must be one of [%s]", fieldName, fieldErr.Value(), fieldErr.Param()))
		default:
			result = multierror.Append(result, fmt.Errorf("field %s has invalid value %v: %s", fieldName, fieldErr.Value(), fieldErr.Tag()))
		}
	}
	return result.ErrorOrNil()
}

func stripPrefix(s string) string {
	if idx := strings.Index(s, "."); idx != -1 {
		return s[idx+1:]
	}
	return s
}
