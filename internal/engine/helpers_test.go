package engine

import (
	"io"
	"log/slog"

	"github.com/roach88/mixer/internal/clip"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestDriver builds a driver that records every event into the returned
// log and discards log output.
func newTestDriver(opts ...Option) (*Driver, *EventLog) {
	log := &EventLog{}
	base := []Option{WithLogger(quietLogger()), WithObserver(log)}
	return New(append(base, opts...)...), log
}

func constant(v ...float64) func(float64) clip.Value {
	return func(float64) clip.Value { return clip.Value(v) }
}

func scrub(h clip.Handle, start, weight float64, sample func(float64) clip.Value) clip.Clip {
	return clip.Clip{Handle: h, Start: start, Weight: weight, Behaviour: clip.Scrubbable{Sample: sample}}
}

func trigger(h clip.Handle, start float64, fire func() error) clip.Clip {
	return clip.Clip{Handle: h, Start: start, Weight: 1, Behaviour: clip.Triggerable{Fire: fire}}
}

func sequence(h clip.Handle, start float64, step func(*clip.StepContext) (clip.StepResult, error)) clip.Clip {
	return clip.Clip{Handle: h, Start: start, Weight: 1, Behaviour: clip.Sequential{Step: step}}
}

// steps returns a step callback running n steps; it records the cursors it
// was invoked with.
func steps(n int, calls *[]int) func(*clip.StepContext) (clip.StepResult, error) {
	return func(sc *clip.StepContext) (clip.StepResult, error) {
		*calls = append(*calls, sc.Cursor())
		if sc.Cursor() >= n-1 {
			return clip.StepComplete, nil
		}
		return clip.StepContinue, nil
	}
}
