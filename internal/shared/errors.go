package shared

import "errors"

var (
	// ErrNotFound indicates resource not found, or not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated indicates no principal could be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrDuplicate indicates a unique constraint conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrConflict indicates the resource is not in a state that allows the action.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotVerified blocks login until registration is confirmed.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrVerificationInvalid indicates an unknown or mismatching code.
	ErrVerificationInvalid = errors.New("invalid verification code")
	// ErrVerificationExpired indicates the code outlived its window.
	ErrVerificationExpired = errors.New("verification code expired")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
