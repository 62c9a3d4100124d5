// Package apierr defines the failure classes shared by every call shutter makes
// against the photo service.
package apierr

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNetwork covers transport-level failures, timeouts included.
	ErrNetwork = errors.New("network failure")
	// ErrHTTPStatus is matched by every *StatusError.
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrDecode marks a response body that did not have the expected shape.
	ErrDecode = errors.New("decode failure")
	// ErrCancelled marks a request that was cancelled or superseded by a newer
	// request of the same kind.
	ErrCancelled = errors.New("request cancelled")
	// ErrPrecondition marks a call that was refused before any I/O happened.
	ErrPrecondition = errors.New("precondition failed")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("api returned status %d", e.Code)
	}
	return fmt.Sprintf("api %s returned status %d", e.URL, e.Code)
}

// Is lets errors.Is(err, ErrHTTPStatus) match any status error.
func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// StatusCode extracts the HTTP status from err when it carries one.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// Precondition wraps a refusal reason in ErrPrecondition.
func Precondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// Transport classifies an error returned by an HTTP round trip. A cancelled
// ctx always wins so a superseded request never looks like a network failure.
func Transport(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx != nil && errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// Cancelled returns the error reported for a superseded request.
func Cancelled(what string) error {
	return fmt.Errorf("%w: %s superseded", ErrCancelled, what)
}

// IsCancelled reports whether err is a cancellation-class failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
