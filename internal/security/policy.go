package security

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the floor applied regardless of configuration.
const MinPasswordLength = 8

type PasswordRule string

const (
	RuleMinLength PasswordRule = "min_length"
	RuleMixedCase PasswordRule = "mixed_case"
	RuleDigit     PasswordRule = "digit"
	RuleSymbol    PasswordRule = "symbol"
)

type PasswordPolicy struct {
	MinLength        int
	RequireMixedCase bool
	RequireDigit     bool
	RequireSymbol    bool
}

var DefaultPasswordPolicy = PasswordPolicy{
	MinLength:        MinPasswordLength,
	RequireMixedCase: true,
	RequireDigit:     true,
}

func (p PasswordPolicy) minLength() int {
	if p.MinLength < MinPasswordLength {
		return MinPasswordLength
	}
	return p.MinLength
}

// Check returns every rule the password fails, in a stable order. An empty
// result means the password is acceptable.
func (p PasswordPolicy) Check(password string) []PasswordRule {
	var (
		upper, lower, digit, symbol bool
		unmet                       []PasswordRule
	)
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	if utf8.RuneCountInString(password) < p.minLength() {
		unmet = append(unmet, RuleMinLength)
	}
	if p.RequireMixedCase && !(upper && lower) {
		unmet = append(unmet, RuleMixedCase)
	}
	if p.RequireDigit && !digit {
		unmet = append(unmet, RuleDigit)
	}
	if p.RequireSymbol && !symbol {
		unmet = append(unmet, RuleSymbol)
	}
	return unmet
}

// Describe renders a rule as user-facing text.
func (p PasswordPolicy) Describe(rule PasswordRule) string {
	switch rule {
	case RuleMinLength:
		return fmt.Sprintf("must be at least %d characters long", p.minLength())
	case RuleMixedCase:
		return "must contain both upper and lower case letters"
	case RuleDigit:
		return "must contain a digit"
	case RuleSymbol:
		return "must contain a symbol"
	default:
		return string(rule)
	}
}
