package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/mixer/internal/clip"
)

// RuntimeError represents an error detected while evaluating a frame.
//
// Runtime errors include:
//   - Invalid time: the playhead is NaN or infinite
//   - Malformed record: a clip the driver cannot dispatch
//   - Duplicate handle: two clips in one frame share a handle
//   - Callback failures: a sample, trigger or step returned an error or panicked
//
// Failures of host callbacks are isolated to their clip. They are reported
// through events and the logger rather than returned from Evaluate.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Handle identifies the affected clip, if any.
	Handle clip.Handle

	// Iteration is the frame the error was raised in.
	Iteration uint64

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying callback error, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidTime indicates a non-finite playhead time.
	ErrCodeInvalidTime RuntimeErrorCode = "INVALID_TIME"

	// ErrCodeMalformedRecord indicates a clip the driver cannot dispatch.
	ErrCodeMalformedRecord RuntimeErrorCode = "MALFORMED_RECORD"

	// ErrCodeDuplicateHandle indicates a handle seen twice in one frame.
	ErrCodeDuplicateHandle RuntimeErrorCode = "DUPLICATE_HANDLE"

	// ErrCodeSampleFailed indicates a scrubbable sample panicked.
	ErrCodeSampleFailed RuntimeErrorCode = "SAMPLE_FAILED"

	// ErrCodeTriggerFailed indicates a one-shot callback failed.
	ErrCodeTriggerFailed RuntimeErrorCode = "TRIGGER_FAILED"

	// ErrCodeStepFailed indicates a sequential step failed.
	ErrCodeStepFailed RuntimeErrorCode = "STEP_FAILED"
)

// ErrCallbackPanic wraps the value recovered from a panicking host callback.
var ErrCallbackPanic = errors.New("callback panicked")

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Handle != "" {
		msg = fmt.Sprintf("%s (handle=%s, iteration=%d)", msg, e.Handle, e.Iteration)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying callback error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, codes ...RuntimeErrorCode) bool {
	var re *RuntimeError
	if !errors.As(err, &re) {
		return false
	}
	for _, c := range codes {
		if re.Code == c {
			return true
		}
	}
	return false
}

// IsMalformedError returns true if err reports a rejected record.
// Uses errors.As to handle wrapped and joined errors.
func IsMalformedError(err error) bool {
	return hasCode(err, ErrCodeMalformedRecord, ErrCodeDuplicateHandle)
}

// IsInvalidTimeError returns true if err reports a non-finite playhead.
func IsInvalidTimeError(err error) bool {
	return hasCode(err, ErrCodeInvalidTime)
}

// IsCallbackError returns true if err reports a failed host callback.
func IsCallbackError(err error) bool {
	return hasCode(err, ErrCodeSampleFailed, ErrCodeTriggerFailed, ErrCodeStepFailed)
}

func newMalformedError(handle clip.Handle, iteration uint64, index int, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeMalformedRecord,
		Message:   fmt.Sprintf(format, args...),
		Handle:    handle,
		Iteration: iteration,
		Details: map[string]string{
			"index": fmt.Sprintf("%d", index),
		},
	}
}

func newCallbackError(code RuntimeErrorCode, handle clip.Handle, iteration uint64, err error) *RuntimeError {
	return &RuntimeError{
		Code:      code,
		Message:   "host callback failed",
		Handle:    handle,
		Iteration: iteration,
		Err:       err,
	}
}

// guard runs fn and converts a panic into an error wrapping ErrCallbackPanic.
func guard[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, r)
		}
	}()
	return fn()
}
