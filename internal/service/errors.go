package service

import (
	"errors"
	"strings"

	"github.com/AdrianLinares/petcare-app-sub000/internal/repository"
	"github.com/AdrianLinares/petcare-app-sub000/internal/security"
)

var (
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
	ErrUnauthorized          = errors.New("not permitted")
	ErrInvalidRole           = errors.New("invalid role")
	ErrInvalidTier           = errors.New("invalid administrator tier")
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrInvalidCredentials    = errors.New("invalid credentials")

	// Repository sentinels are re-exported so callers only import service.
	ErrEmailTaken      = repository.ErrEmailTaken
	ErrAccountNotFound = repository.ErrAccountNotFound
)

// WeakPasswordError lists every policy rule a proposed password fails.
type WeakPasswordError struct {
	Unmet   []security.PasswordRule
	Details []string
}

func newWeakPasswordError(policy security.PasswordPolicy, unmet []security.PasswordRule) *WeakPasswordError {
	details := make([]string, 0, len(unmet))
	for _, rule := range unmet {
		details = append(details, policy.Describe(rule))
	}
	return &WeakPasswordError{Unmet: unmet, Details: details}
}

func (e *WeakPasswordError) Error() string {
	rules := make([]string, 0, len(e.Unmet))
	for _, rule := range e.Unmet {
		rules = append(rules, string(rule))
	}
	return "password does not meet policy: " + strings.Join(rules, ", ")
}
