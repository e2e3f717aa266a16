package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// ErrClientInput is the parent of every user-correctable input failure.
	ErrClientInput                = fmt.Errorf("invalid message")
	ErrEmptyOrNotText             = fmt.Errorf("%w: message must be non-empty text", ErrClientInput)
	ErrTooShort                   = fmt.Errorf("%w: message too short", ErrClientInput)
	ErrTooLong                    = fmt.Errorf("%w: message too long", ErrClientInput)
	ErrTooShortAfterSanitization  = fmt.Errorf("%w: message too short once markup is removed", ErrClientInput)
	ErrInvalidBody                = fmt.Errorf("%w: request body is not valid JSON", ErrClientInput)
	ErrVerificationFailed         = fmt.Errorf("human verification failed")
	ErrModerationUnavailable      = fmt.Errorf("moderation service unavailable")
	ErrSessionAcquisitionFailed   = fmt.Errorf("moderation session acquisition failed")
	ErrStorage                    = fmt.Errorf("storage failure")
	ErrDuplicateMessage           = fmt.Errorf("%w: message id already pending", ErrStorage)
	ErrCacheMiss                  = fmt.Errorf("cache miss")
	ErrUnauthorized               = fmt.Errorf("unauthorized")
	ErrRelayFailed                = fmt.Errorf("relay failed")
	ErrRelayTimeout               = fmt.Errorf("relay timed out")
	ErrRelayNotConfigured         = fmt.Errorf("relay not configured")
	ErrInvalidAccessKeyHashFormat = fmt.Errorf("invalid access key hash format")
	ErrWeakAccessKey              = fmt.Errorf("access key too short")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// ThrottledError is returned when an origin submits again inside its cool-down window.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many submissions, retry in %s", e.RetryAfter)
}

// RetryAfterSeconds rounds the remaining window up to whole seconds.
func (e *ThrottledError) RetryAfterSeconds() int {
	return int((e.RetryAfter + time.Second - 1) / time.Second)
}

// RetryAfterMinutes rounds the remaining window up to whole minutes.
func (e *ThrottledError) RetryAfterMinutes() int {
	return int((e.RetryAfter + time.Minute - 1) / time.Minute)
}

// ModerationRejectedError carries the terms the moderator matched.
type ModerationRejectedError struct {
	Terms []string
}

func (e *ModerationRejectedError) Error() string {
	return fmt.Sprintf("content rejected by moderation: %s", strings.Join(e.Terms, ", "))
}

// ModerationError is a failure of the moderation dependency itself.
// AuthRejected is set when the service refused the cached session.
type ModerationError struct {
	Critical     bool
	AuthRejected bool
	StatusCode   int
	Err          error
}

func (e *ModerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("moderation error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("moderation error: %v", e.Err)
}

func (e *ModerationError) Unwrap() error {
	return e.Err
}

// MapToHTTPStatus converts a service error into the status code returned to callers.
func MapToHTTPStatus(err error) int {
	var throttled *ThrottledError
	var rejected *ModerationRejectedError
	var moderationErr *ModerationError
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrClientInput):
		return http.StatusBadRequest
	case stderrors.As(err, &throttled):
		return http.StatusTooManyRequests
	case stderrors.Is(err, ErrVerificationFailed):
		return http.StatusForbidden
	case stderrors.As(err, &rejected):
		return http.StatusUnprocessableEntity
	case stderrors.Is(err, ErrModerationUnavailable), stderrors.As(err, &moderationErr):
		return http.StatusServiceUnavailable
	case stderrors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrRelayTimeout):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, ErrRelayFailed), stderrors.Is(err, ErrRelayNotConfigured):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
