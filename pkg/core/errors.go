package core

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrStreamClosed   = errors.New("stream closed")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// ValidationError reports a structurally invalid event or message, detected
// at construction or decode time. It is fatal to the offending value only;
// the caller decides whether to abort the run or discard it.
type ValidationError struct {
	// Object names the type that failed validation, e.g. "TextMessageStartEvent".
	Object string
	// Field names the offending field in its wire spelling, e.g. "messageId".
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s: %v", e.Object, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a ValidationError for a required field.
func NewValidationError(object, field string, err error) *ValidationError {
	return &ValidationError{Object: object, Field: field, Err: err}
}

// DecodingError reports a malformed wire payload. Fatal per frame by
// default; lenient decoders may skip the frame and continue.
type DecodingError struct {
	// Format is the wire format being decoded: "sse", "json" or "binary".
	Format string
	// Frame is the offending payload, truncated for logging.
	Frame []byte
	Err   error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decoding error (%s): %v", e.Format, e.Err)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// TransportError reports a non-2xx response or a connection failure before
// streaming began. Terminal for the request attempt once retries exhaust.
type TransportError struct {
	// StatusCode is the HTTP status, or 0 for connection-level failures.
	StatusCode int
	// Attempts is the total number of requests made, including the first.
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error: status %d after %d attempt(s): %v", e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("transport error after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutStage identifies which timeout fired.
type TimeoutStage string

const (
	// TimeoutConnect covers dialing and waiting for the initial response.
	TimeoutConnect TimeoutStage = "connect"
	// TimeoutIdle covers the gap between consecutive stream chunks.
	TimeoutIdle TimeoutStage = "idle"
)

// TimeoutError reports an exceeded connect or idle-read timeout. Kept
// distinct from TransportError for observability.
type TimeoutError struct {
	Stage TimeoutStage
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timeout exceeded: %v", e.Stage, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// StateApplyError reports a STATE_DELTA or ACTIVITY_DELTA patch that failed
// to apply. The target state is left unchanged and reduction continues; the
// error is surfaced through the reducer's side-channel handler.
type StateApplyError struct {
	// Op is the JSON Patch operation that failed, e.g. "replace".
	Op string
	// Path is the JSON Pointer the operation targeted.
	Path string
	Err  error
}

func (e *StateApplyError) Error() string {
	return fmt.Sprintf("state apply failed: op %q at %q: %v", e.Op, e.Path, e.Err)
}

func (e *StateApplyError) Unwrap() error {
	return e.Err
}
