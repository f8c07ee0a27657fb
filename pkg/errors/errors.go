package errors

import (
	"errors"
	"fmt"
)

// Application errors shared by services and handlers. Handlers map them to
// HTTP status codes with errors.Is.

var (
	// ErrInvalidInput indicates a request that failed field validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedBody indicates a request body that could not be decoded at all
	ErrMalformedBody = errors.New("malformed body")

	// ErrRateLimited indicates the caller exhausted its submission budget
	ErrRateLimited = errors.New("rate limited")

	// ErrVerificationFailed indicates the human-interaction challenge was not confirmed
	ErrVerificationFailed = errors.New("verification failed")

	// ErrNotConfigured indicates a required server-side credential is missing
	ErrNotConfigured = errors.New("not configured")

	// ErrUpstream indicates a remote dependency rejected or failed a call
	ErrUpstream = errors.New("upstream failure")

	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")
)

// InvalidInputError creates an invalid input error carrying the user-facing reason
func InvalidInputError(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrInvalidInput)
}

// NotConfiguredError names the missing setting
func NotConfiguredError(setting string) error {
	return fmt.Errorf("%s is not set: %w", setting, ErrNotConfigured)
}

// UpstreamError wraps a failure from a named remote service
func UpstreamError(service string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", service, ErrUpstream)
	}
	return fmt.Errorf("%s: %w: %w", service, ErrUpstream, err)
}

// NotFoundError creates a not found error with context
func NotFoundError(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// InternalError creates an internal error with context
func InternalError(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInternal)
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
