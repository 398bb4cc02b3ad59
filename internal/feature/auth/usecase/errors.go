// Package usecase implements the business logic for the auth feature.
package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUserNotFound is returned when a user cannot be found by email or ID.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailAlreadyExists is returned when attempting to create a user with an email that already exists.
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ThrottledError is returned by Login when too many attempts were made for one email.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many login attempts, retry after %s", e.RetryAfter)
}
