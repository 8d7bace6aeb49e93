// Package validate holds the shared struct validator and turns its failures
// into caller-facing validation errors.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"tweeter/internal/apperr"
)

var (
	v = newValidator()

	handlePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// handle: usable in a URL path segment and never mistaken for an id.
	v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return handlePattern.MatchString(s) && !digitsPattern.MatchString(s)
	})
	return v
}

// Struct validates s, returning an apperr validation error naming the first
// offending field.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.KindInternal, "validation failed", err)
	}
	return apperr.Validation(describe(verrs[0]))
}

func describe(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "handle":
		return fmt.Sprintf("%s may only contain letters, digits, '_', '.', '-' and cannot be all digits", field)
	case "eqfield":
		return fmt.Sprintf("%s does not match %s", field, e.Param())
	default:
		return fmt.Sprintf("Field '%s' failed on the '%s' tag", field, e.Tag())
	}
}
