package clip

import (
	"errors"
	"fmt"
)

// StepResult tells the sequential strategy how a step ended.
type StepResult uint8

const (
	// StepContinue advances the cursor; the next step runs next frame.
	StepContinue StepResult = iota
	// StepComplete ends the run.
	StepComplete
	// StepPending means the current step spans frames and is resumed next
	// frame at the same cursor.
	StepPending
)

func (r StepResult) String() string {
	switch r {
	case StepContinue:
		return "continue"
	case StepComplete:
		return "complete"
	case StepPending:
		return "pending"
	default:
		return fmt.Sprintf("StepResult(%d)", uint8(r))
	}
}

// ErrSuperseded is returned by StepContext.Checkpoint once a newer frame has
// been evaluated while the step was running.
var ErrSuperseded = errors.New("step superseded by a newer iteration")

// StepContext is the view a sequential step has of its run.
//
// The captured iteration is the frame the step was invoked for. If the
// driver is re-entered from inside the step, the live iteration moves on and
// the step must stop producing side effects; Checkpoint and Apply are the
// suspension points where it finds out.
type StepContext struct {
	handle    Handle
	cursor    int
	frame     int
	time      float64
	iteration uint64
	live      func() uint64
}

// NewStepContext builds a step context. frame counts the earlier
// invocations of the same cursor in this run. live reports the driver's
// current iteration.
func NewStepContext(handle Handle, cursor, frame int, time float64, iteration uint64, live func() uint64) *StepContext {
	return &StepContext{
		handle:    handle,
		cursor:    cursor,
		frame:     frame,
		time:      time,
		iteration: iteration,
		live:      live,
	}
}

func (sc *StepContext) Handle() Handle { return sc.handle }
func (sc *StepContext) Cursor() int { return sc.cursor }

// Frame is 0 the first time a cursor is invoked and grows by one each frame
// the step returns StepPending.
func (sc *StepContext) Frame() int { return sc.frame }

func (sc *StepContext) Time() float64 { return sc.time }
func (sc *StepContext) Iteration() uint64 { return sc.iteration }

// Stale reports whether a newer iteration has started since this step was
// invoked.
func (sc *StepContext) Stale() bool {
	if sc.live == nil {
		return false
	}
	return sc.live() != sc.iteration
}

// Checkpoint returns ErrSuperseded if the step is stale.
func (sc *StepContext) Checkpoint() error {
	if sc.Stale() {
		return ErrSuperseded
	}
	return nil
}

// Apply runs fn only while the step is current and reports whether it ran.
// Steps route shared-state mutations through Apply so a superseded step
// cannot write after cancellation.
func (sc *StepContext) Apply(fn func()) bool {
	if sc.Stale() {
		return false
	}
	fn()
	return true
}
