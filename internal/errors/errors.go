package errors

import (
	"errors"
	"fmt"
)

// Common error kinds for the session client. Transport and API failures
// carry one of these as their Kind so callers can match with Is.
var (
	// Transport errors (no response received)
	ErrConnectionRefused = errors.New("connection refused")
	ErrDNS               = errors.New("dns lookup failed")
	ErrTimeout           = errors.New("request timed out")
	ErrNetwork           = errors.New("network error")

	// Server status errors
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrServerError        = errors.New("internal server error")
	ErrBadGateway         = errors.New("bad gateway")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrGatewayTimeout     = errors.New("gateway timeout")
	ErrUnexpectedStatus   = errors.New("unexpected status")

	// Validation errors
	ErrPhoneAlreadyRegistered    = errors.New("phone already registered")
	ErrFullNameAlreadyRegistered = errors.New("full name already registered")
	ErrUserTypeAlreadyRegistered = errors.New("user type already registered")
	ErrPhoneNotFound             = errors.New("phone not found")
	ErrRequiredField             = errors.New("required field missing")
	ErrValidation                = errors.New("validation failed")

	// OTP errors
	ErrInvalidCode       = errors.New("invalid or expired code")
	ErrInvalidHandle     = errors.New("invalid or expired challenge handle")
	ErrMalformedResponse = errors.New("malformed server response")
	ErrChallengeState    = errors.New("challenge not awaiting a code")
	ErrChallengeConsumed = errors.New("challenge already validated")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidUserType  = errors.New("invalid user type")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsAuthRejected reports whether the server refused the credentials outright
// (401 or 403), as opposed to a transient failure.
func IsAuthRejected(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}
