package errors

import (
	"errors"
	"fmt"
)

// Exit codes for outpost-ctl
const (
	ExitSuccess                = 0
	ExitGeneralError           = 1
	ExitUnresolvedImage        = 2
	ExitIntegrityMismatch      = 3
	ExitFetchFailed            = 4
	ExitProvisioningFailed     = 5
	ExitEnvironmentUnreachable = 6
	ExitAuthenticationFailed   = 7
	ExitConfigError            = 8
)

// OutpostError is the base error type for outpost-ctl
type OutpostError struct {
	Code    int
	Message string
	Cause   error
}

func (e *OutpostError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *OutpostError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *OutpostError) ExitCode() int {
	return e.Code
}

// New creates a new OutpostError
func New(code int, message string) *OutpostError {
	return &OutpostError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an OutpostError
func Wrap(code int, message string, cause error) *OutpostError {
	return &OutpostError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// UnresolvedImage returns an error for an image identifier that is not in
// the image index.
func UnresolvedImage(image string) *OutpostError {
	return New(ExitUnresolvedImage, fmt.Sprintf("unresolved image: %s", image))
}

// IntegrityMismatch returns an error for an artifact whose checksum did not
// match its declared value. The artifact is named so the operator knows
// which download was rejected.
func IntegrityMismatch(artifact, want, got string) *OutpostError {
	return New(ExitIntegrityMismatch,
		fmt.Sprintf("integrity mismatch for %s: want sha256 %s, got %s", artifact, want, got))
}

// FetchFailed returns an error for a download that failed after retries
func FetchFailed(artifact string, cause error) *OutpostError {
	return Wrap(ExitFetchFailed, fmt.Sprintf("fetch failed for %s", artifact), cause)
}

// ProvisioningFailed returns an error identifying the failing step by
// position and description.
func ProvisioningFailed(step int, desc string, cause error) *OutpostError {
	return Wrap(ExitProvisioningFailed,
		fmt.Sprintf("provisioning failed at step %d (%s)", step, desc), cause)
}

// EnvironmentUnreachable returns an error for an environment that never
// started listening within the readiness deadline.
func EnvironmentUnreachable(name string, cause error) *OutpostError {
	return Wrap(ExitEnvironmentUnreachable, fmt.Sprintf("environment %s is unreachable", name), cause)
}

// AuthenticationFailed returns an error for rejected operator credentials
func AuthenticationFailed(name string, cause error) *OutpostError {
	return Wrap(ExitAuthenticationFailed, fmt.Sprintf("authentication failed for environment %s", name), cause)
}

// EnvironmentNotFound returns an error for a missing environment descriptor
func EnvironmentNotFound(name string) *OutpostError {
	return New(ExitConfigError, fmt.Sprintf("environment not found: %s", name))
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *OutpostError {
	return Wrap(ExitConfigError, message, cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *OutpostError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var outpostErr *OutpostError
	if errors.As(err, &outpostErr) {
		return outpostErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
