// Package syncerr defines the closed error taxonomy shared by the transport
// adapter and the request coordinator.
package syncerr

import (
	"context"
	"errors"
	"fmt"
)

// CancellationError reports a request that was superseded or whose owning
// view was torn down. It is never a failure.
type CancellationError struct {
	Op  string
	Err error
}

func (e *CancellationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: canceled", e.Op)
	}
	return fmt.Sprintf("%s: canceled: %v", e.Op, e.Err)
}

func (e *CancellationError) Unwrap() error { return e.Err }

// TransportError is a network or HTTP level failure. StatusCode is zero when
// no response was received.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status code: %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: request failed: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is a response whose body does not have the expected shape.
type DecodeError struct {
	Resource string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed %s response: %v", e.Resource, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Canceled wraps err as a CancellationError for op
func Canceled(op string, err error) error {
	return &CancellationError{Op: op, Err: err}
}

// IsCancellation reports whether err means "no update" rather than failure.
// Bare context.Canceled is treated as cancellation; deadline expiry is not.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	var ce *CancellationError
	if errors.As(err, &ce) {
		return true
	}
	return errors.Is(err, context.Canceled)
}
