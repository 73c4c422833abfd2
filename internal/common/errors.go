// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// GenericFailureMessage is shown when the backend rejects a request without a message.
const GenericFailureMessage = "Something went wrong. Please try again."

// Common application errors.
var (
	// Backend errors.
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTimeout      = errors.New("request timed out")

	// Session errors.
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTokenExpired     = errors.New("token expired")

	// Export errors.
	ErrUnknownSink = errors.New("unknown export sink")

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

// ValidationError is a local, field-level failure. It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NetworkError covers connection failures and client-side timeouts.
type NetworkError struct {
	Err     error
	Op      string
	Timeout bool
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: %v: %v", e.Op, ErrTimeout, e.Err)
	}
	return fmt.Sprintf("%s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerRejection is a 4xx/5xx answer other than an authentication failure.
type ServerRejection struct {
	Message    string
	StatusCode int
}

func (e *ServerRejection) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.UserMessage())
}

// UserMessage returns the server-provided message, or the generic fallback.
func (e *ServerRejection) UserMessage() string {
	if strings.TrimSpace(e.Message) == "" {
		return GenericFailureMessage
	}
	return e.Message
}

// Is lets errors.Is(err, ErrNotFound) match 404 rejections.
func (e *ServerRejection) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

// AuthExpired is a 401/403 answer. Receiving one tears the session down.
type AuthExpired struct {
	Message    string
	StatusCode int
}

func (e *AuthExpired) Error() string {
	return fmt.Sprintf("authentication expired (%d)", e.StatusCode)
}

func (e *AuthExpired) Unwrap() error {
	return ErrUnauthorized
}

// UserMessage extracts the text that should be surfaced to a person for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	var rejection *ServerRejection
	if errors.As(err, &rejection) {
		return rejection.UserMessage()
	}

	var authErr *AuthExpired
	if errors.As(err, &authErr) {
		return "Your session has expired. Please sign in again."
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		if netErr.Timeout {
			return "The server took too long to respond. Please try again."
		}
		return "Unable to reach the server. Check your connection and try again."
	}

	return GenericFailureMessage
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var rejection *ServerRejection
	if errors.As(err, &rejection) {
		return rejection.StatusCode == 429 || rejection.StatusCode >= 500
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
