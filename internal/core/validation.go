// AngelaMos | 2026
// validation.go

package core

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	emailPattern    = regexp.MustCompile(
		`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`,
	)
)

// NewValidator returns a validator that reports JSON field names and knows
// the "username" and "email_addr" tags.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	//nolint:errcheck // tag names are static and valid
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return IsValidUsername(fl.Field().String())
	})

	//nolint:errcheck // tag names are static and valid
	_ = v.RegisterValidation("email_addr", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})

	return v
}

func IsValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// FormatValidationError turns the first failed rule into a client message.
func FormatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	fe := verrs[0]
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required and cannot be empty", field)
	case "email_addr":
		return "Invalid email address"
	case "username":
		return fmt.Sprintf(
			"%s may only contain letters, digits, '_', '.' and '-'",
			field,
		)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		if fe.Param() == "1" {
			return fmt.Sprintf("%s is required and cannot be empty", field)
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// TrimFields trims surrounding whitespace from each non-nil string.
func TrimFields(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}
