package security

import (
	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const (
	defaultMinPasswordLength = 6
	defaultMaxPasswordLength = 256
	weakPasswordScore        = 2
)

// PasswordPolicy enforces the acceptance rules and grades strength for advisory logging.
type PasswordPolicy struct {
	validator *PasswordValidator
}

// NewPasswordPolicy returns the registry policy: 6 characters minimum. The 256-byte
// ceiling caps the input handed to argon2.
func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{validator: NewPasswordValidator(
		MinLengthRule(defaultMinPasswordLength),
		MaxLengthRule(defaultMaxPasswordLength),
	)}
}

// NewPasswordPolicyFromValidator wraps a custom validator.
func NewPasswordPolicyFromValidator(validator *PasswordValidator) *PasswordPolicy {
	if validator == nil {
		return NewPasswordPolicy()
	}
	return &PasswordPolicy{validator: validator}
}

func (p *PasswordPolicy) Validate(password string) error {
	return p.validator.Validate(password)
}

// Strength returns the zxcvbn score (0-4) of password given user-specific inputs.
// It never rejects a password.
func (p *PasswordPolicy) Strength(password string, userInputs ...string) int {
	return zxcvbn.PasswordStrength(password, userInputs).Score
}

// IsWeak reports whether a score falls below the advisory threshold.
func IsWeak(score int) bool {
	return score < weakPasswordScore
}
