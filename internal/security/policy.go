package security

import (
	"strings"
	"unicode"
)

const (
	MinPasswordLength = 8
	// bcrypt refuses inputs longer than this
	MaxPasswordBytes = 72
)

// PolicyViolation lists every complexity rule a password failed.
type PolicyViolation struct {
	Rules []string
}

func (v *PolicyViolation) Error() string {
	return "password must " + strings.Join(v.Rules, ", ")
}

// ValidatePassword enforces the complexity policy shared by registration,
// password reset, password change and admin-created accounts.
func ValidatePassword(plain string) error {
	var hasDigit, hasLower, hasUpper bool

	for _, r := range plain {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}

	var rules []string

	if len([]rune(plain)) < MinPasswordLength {
		rules = append(rules, "be at least 8 characters long")
	}
	if len(plain) > MaxPasswordBytes {
		rules = append(rules, "be at most 72 bytes long")
	}
	if !hasDigit {
		rules = append(rules, "contain a number")
	}
	if !hasLower {
		rules = append(rules, "contain a lowercase letter")
	}
	if !hasUpper {
		rules = append(rules, "contain an uppercase letter")
	}

	if len(rules) > 0 {
		return &PolicyViolation{Rules: rules}
	}
	return nil
}
