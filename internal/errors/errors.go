// Package errors defines the error taxonomy shared by every f5lm component.
// Transport failures, credential problems, store recovery and verification
// timeouts each get a distinct type so callers can branch on the class of
// failure instead of matching message text.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error codes attached to structured errors. They surface in logs and in
// operator-facing messages so a batch summary can name the failure class.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeCredential         = "CREDENTIAL_ERROR"
	CodeUnreachable        = "DEVICE_UNREACHABLE"
	CodeAuthFailed         = "AUTH_FAILED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeUnparseable        = "RESPONSE_UNPARSEABLE"
	CodeUnlicensed         = "DEVICE_UNLICENSED"
	CodeStoreRecovered     = "STORE_RECOVERED"
	CodeVerifyTimeout      = "VERIFY_TIMEOUT"
	CodeUnsupportedOp      = "OPERATION_UNSUPPORTED"
)

// Transport failure sentinels. Every transport call maps to exactly one of
// these; conflating two classes is a defect (callers key retry and batch
// behavior off the class).
var (
	// ErrUnreachable: no response at all (dial failure, connection refused,
	// request timeout).
	ErrUnreachable = errors.New("device unreachable")

	// ErrAuthFailed: the device explicitly rejected the credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrServiceUnavailable: the device answered but reported its management
	// plane as restarting or otherwise unavailable.
	ErrServiceUnavailable = errors.New("device service unavailable")

	// ErrUnparseable: a response arrived but carried no usable license fields.
	ErrUnparseable = errors.New("license response unparseable")

	// ErrUnlicensed: the device explicitly reports no license installed.
	ErrUnlicensed = errors.New("device has no license installed")

	// ErrUnsupportedOp: the management API reported the requested operation
	// as unsupported; callers fall back to the remote shell.
	ErrUnsupportedOp = errors.New("operation not supported by management API")

	// ErrPromptAborted: the operator cancelled an interactive prompt.
	ErrPromptAborted = errors.New("prompt aborted")
)

// ValidationError reports malformed operator input (bad device identifier,
// missing argument). It is raised before any transport call and mutates no
// state.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation failed: %s %q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a named input field.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CredentialError reports that credentials for one device could not be
// resolved (empty required field, missing key file). It aborts only the
// current device's operation, never a whole batch.
type CredentialError struct {
	IP      string
	Reason  string
	Wrapped error
}

func (e *CredentialError) Error() string {
	if e.IP == "" {
		return fmt.Sprintf("credential error: %s", e.Reason)
	}
	return fmt.Sprintf("credential error for %s: %s", e.IP, e.Reason)
}

func (e *CredentialError) Unwrap() error { return e.Wrapped }

// NewCredentialError creates a credential error scoped to one device.
func NewCredentialError(ip, reason string, wrapped error) *CredentialError {
	return &CredentialError{IP: ip, Reason: reason, Wrapped: wrapped}
}

// IsCredential reports whether err is a CredentialError.
func IsCredential(err error) bool {
	var ce *CredentialError
	return errors.As(err, &ce)
}

// TransportError wraps one of the transport sentinels with the device and
// transport that produced it. Unwrap exposes the sentinel so callers use
// errors.Is(err, ErrAuthFailed) etc.
type TransportError struct {
	IP        string
	Transport string // "rest" or "ssh"
	Class     error  // one of the sentinels above
	Cause     error  // underlying error, may be nil
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s transport to %s: %v", e.Transport, e.IP, e.Class)
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Class }

// Code maps the failure class to its error code.
func (e *TransportError) Code() string {
	switch {
	case errors.Is(e.Class, ErrUnreachable):
		return CodeUnreachable
	case errors.Is(e.Class, ErrAuthFailed):
		return CodeAuthFailed
	case errors.Is(e.Class, ErrServiceUnavailable):
		return CodeServiceUnavailable
	case errors.Is(e.Class, ErrUnlicensed):
		return CodeUnlicensed
	case errors.Is(e.Class, ErrUnsupportedOp):
		return CodeUnsupportedOp
	default:
		return CodeUnparseable
	}
}

// NewTransportError wraps a failure class with device context.
func NewTransportError(ip, transport string, class, cause error) *TransportError {
	return &TransportError{IP: ip, Transport: transport, Class: class, Cause: cause}
}

// StoreError reports a record-store problem. Recovered is true when the
// store quarantined a corrupt file and restarted from an empty collection;
// that case is a warning, never fatal.
type StoreError struct {
	Path        string
	Recovered   bool
	Quarantined string // path the corrupt file was renamed to
	Wrapped     error
}

func (e *StoreError) Error() string {
	if e.Recovered {
		return fmt.Sprintf("record store %s was corrupt; quarantined to %s and reset", e.Path, e.Quarantined)
	}
	return fmt.Sprintf("record store %s: %v", e.Path, e.Wrapped)
}

func (e *StoreError) Unwrap() error { return e.Wrapped }

// TimeoutError is returned by the verification poller when the device never
// produced a usable expiry within the wait window. It asserts neither
// success nor failure of the underlying mutation.
type TimeoutError struct {
	IP      string
	Waited  time.Duration
	LastErr error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("verification of %s timed out after %s; the operation likely succeeded - re-check later", e.IP, e.Waited)
}

func (e *TimeoutError) Unwrap() error { return e.LastErr }

// IsTimeout reports whether err is a verification TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Retryable reports whether a transport failure is an expected transient
// state during a post-mutation restart window. Unreachable and
// service-unavailable both qualify; auth failures and unlicensed do not.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrServiceUnavailable)
}
