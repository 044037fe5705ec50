// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound          = errors.New("not found")
	ErrReceiptNotFound   = errors.New("receipt not found")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Review session errors.
	ErrSaveInFlight    = errors.New("a save is already in progress")
	ErrSaveCanceled    = errors.New("save canceled")
	ErrUploadDiscarded = errors.New("save canceled and upload discarded")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsUserError checks if an error is a UserError.
func IsUserError(err error) bool {
	var userErr *UserError
	return errors.As(err, &userErr)
}

// GetUserMessage extracts the user-friendly message from an error.
func GetUserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	return err.Error()
}
