// AngelaMos | 2026
// policy.go

package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nthalt/user-api/internal/config"
	"github.com/nthalt/user-api/internal/core"
)

type PasswordPolicy struct {
	MinLength         int
	RequireComplexity bool
}

func NewPasswordPolicy(cfg config.PasswordConfig) PasswordPolicy {
	minLength := cfg.MinLength
	if minLength < config.MinPasswordLength {
		minLength = config.MinPasswordLength
	}
	return PasswordPolicy{
		MinLength:         minLength,
		RequireComplexity: cfg.RequireComplexity,
	}
}

// Validate returns a 400 AppError describing the first rule password breaks.
// Whitespace-only passwords are rejected even though passwords are stored
// untrimmed.
func (p PasswordPolicy) Validate(password string) error {
	if strings.TrimSpace(password) == "" {
		return core.ValidationError("password is required and cannot be empty")
	}

	if utf8.RuneCountInString(password) < p.MinLength {
		return core.ValidationError(
			fmt.Sprintf("password must be at least %d characters", p.MinLength),
		)
	}

	if !p.RequireComplexity {
		return nil
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	if !upper || !lower || !digit || !special {
		return core.ValidationError(
			"password must contain upper and lower case letters, a digit and a symbol",
		)
	}

	return nil
}
