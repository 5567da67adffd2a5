package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/mixer/internal/clip"
)

// QuotaEnforcer counts the step invocations of one sequential run and
// enforces a maximum.
//
// Each run gets its own enforcer when the driver is built WithMaxSteps. A run
// that replaces a superseded one inherits its enforcer. The quota is checked
// before every step invocation, so a clip whose step keeps returning Pending
// (or that never completes) is cancelled instead of being driven forever.
type QuotaEnforcer struct {
	maxSteps int // Maximum allowed step invocations for this run
	current  int // Invocations so far
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{
		maxSteps: maxSteps,
		current:  0,
	}
}

// Check increments the step counter and validates against the limit.
//
// Returns StepsExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check(handle clip.Handle) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			Handle: handle,
			Steps:  q.current,
			Limit:  q.maxSteps,
		}
	}
	return nil
}

// StepsExceededError is reported when a run exceeds the max steps quota.
// The run is cancelled with ReasonBudget and not restarted while its clip
// stays on the timeline.
type StepsExceededError struct {
	Handle clip.Handle // The clip whose run exceeded the quota
	Steps  int         // Number of step invocations attempted
	Limit  int         // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded max steps quota: %d steps > %d limit",
		e.Handle, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
