package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/mixer/internal/clip"
)

// DefaultFrameDuration is the trigger window used when none is configured:
// one frame at 60 fps.
const DefaultFrameDuration = 1.0 / 60

// Driver is the per-track frame driver.
type Driver struct {
	clock         IterationSource
	current       uint64
	frameDuration float64
	observer      Observer
	target        func(clip.Value)
	rest          clip.Value
	logger        *slog.Logger
	maxSteps      int

	scrubbable  *scrubbableStrategy
	triggerable *triggerableStrategy
	sequential  *sequentialStrategy
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock injects the iteration source. Share one Clock across drivers to
// order frames host-wide.
func WithClock(src IterationSource) Option {
	return func(d *Driver) {
		d.clock = src
	}
}

// WithFrameDuration sets the trigger window in seconds. Non-positive values
// are ignored.
func WithFrameDuration(seconds float64) Option {
	return func(d *Driver) {
		if seconds > 0 && !math.IsInf(seconds, 0) {
			d.frameDuration = seconds
		}
	}
}

// WithObserver registers an observer for frame events.
func WithObserver(obs Observer) Option {
	return func(d *Driver) {
		d.observer = obs
	}
}

// WithTarget sets the function receiving the blended scrubbable value.
func WithTarget(fn func(clip.Value)) Option {
	return func(d *Driver) {
		d.target = fn
	}
}

// WithRest sets the value blending starts from each frame.
func WithRest(rest clip.Value) Option {
	return func(d *Driver) {
		d.rest = rest.Clone()
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMaxSteps caps the number of step invocations of a single sequential
// run. Zero means unlimited.
func WithMaxSteps(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxSteps = n
		}
	}
}

// New creates a Driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		clock:         NewClock(),
		frameDuration: DefaultFrameDuration,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	env := mixEnv{emit: d.emit, logger: d.logger}
	d.scrubbable = &scrubbableStrategy{mixEnv: env, rest: d.rest, target: d.target}
	d.triggerable = newTriggerableStrategy(env, d.frameDuration)
	d.sequential = newSequentialStrategy(env, d.Iteration, d.maxSteps)
	return d
}

// mixEnv is what the strategies share with their driver.
type mixEnv struct {
	emit   func(Event)
	logger *slog.Logger
}

// Evaluate mixes one frame at playhead time t.
//
// clips are the clip instances overlapping the playhead, in any order.
// Malformed clips are skipped and reported; the returned error joins every
// rejection of the frame. A non-finite t is rejected before the frame starts
// and does not consume an iteration.
func (d *Driver) Evaluate(t float64, clips []clip.Clip) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return &RuntimeError{
			Code:    ErrCodeInvalidTime,
			Message: fmt.Sprintf("playhead time must be finite, got %v", t),
		}
	}

	iteration := d.clock.Next()
	d.current = iteration
	d.logger.Debug("frame begin", "iteration", iteration, "time", t, "clips", len(clips))
	d.emit(Event{Iteration: iteration, Time: t, Type: EventFrameBegin})

	b, errs := d.collect(t, iteration, clips)
	b.sort()

	d.scrubbable.Mix(b.scrubbable, t, iteration)
	d.triggerable.Mix(b.triggerable, t, iteration)
	d.sequential.Mix(b.sequential, t, iteration)

	d.emit(Event{Iteration: iteration, Time: t, Type: EventFrameEnd})
	return errors.Join(errs...)
}

// collect validates clips and groups the accepted ones by kind.
func (d *Driver) collect(t float64, iteration uint64, clips []clip.Clip) (buckets, []error) {
	var b buckets
	var errs []error
	seen := make(map[clip.Handle]int, len(clips))

	reject := func(err *RuntimeError, c clip.Clip) {
		d.logger.Warn("clip rejected",
			"handle", c.Handle,
			"iteration", iteration,
			"code", err.Code,
			"error", err.Message)
		d.emit(Event{
			Iteration: iteration,
			Time:      t,
			Type:      EventRecordRejected,
			Kind:      c.Kind(),
			Handle:    c.Handle,
			Err:       err,
		})
		errs = append(errs, err)
	}

	for i, c := range clips {
		if err := validateClip(c, iteration, i); err != nil {
			reject(err, c)
			continue
		}
		if prev, dup := seen[c.Handle]; dup {
			reject(&RuntimeError{
				Code:      ErrCodeDuplicateHandle,
				Message:   fmt.Sprintf("handle already used by clip %d in this frame", prev),
				Handle:    c.Handle,
				Iteration: iteration,
				Details: map[string]string{
					"index": fmt.Sprintf("%d", i),
				},
			}, c)
			continue
		}
		seen[c.Handle] = i

		rec := Record{
			Handle:    c.Handle,
			Start:     c.Start,
			Weight:    c.Weight,
			Iteration: iteration,
			Order:     i,
		}
		switch beh := c.Behaviour.(type) {
		case clip.Scrubbable:
			b.scrubbable = append(b.scrubbable, scrubbableRecord{Record: rec, sample: beh.Sample})
		case clip.Triggerable:
			b.triggerable = append(b.triggerable, triggerableRecord{Record: rec, fire: beh.Fire})
		case clip.Sequential:
			b.sequential = append(b.sequential, sequentialRecord{Record: rec, step: beh.Step})
		}
	}
	return b, errs
}

// validateClip reports why c cannot be dispatched, or nil.
func validateClip(c clip.Clip, iteration uint64, index int) *RuntimeError {
	if c.Handle == "" {
		return newMalformedError(c.Handle, iteration, index, "clip %d has an empty handle", index)
	}
	if math.IsNaN(c.Start) || math.IsInf(c.Start, 0) || c.Start < 0 {
		return newMalformedError(c.Handle, iteration, index, "start must be finite and non-negative, got %v", c.Start)
	}
	if math.IsNaN(c.Weight) || c.Weight < 0 || c.Weight > 1 {
		return newMalformedError(c.Handle, iteration, index, "weight must be within [0,1], got %v", c.Weight)
	}

	var missing bool
	switch beh := c.Behaviour.(type) {
	case clip.Scrubbable:
		missing = beh.Sample == nil
	case clip.Triggerable:
		missing = beh.Fire == nil
	case clip.Sequential:
		missing = beh.Step == nil
	default:
		return newMalformedError(c.Handle, iteration, index, "unsupported behaviour %T", c.Behaviour)
	}
	if missing {
		return newMalformedError(c.Handle, iteration, index, "%s clip has no callback", c.Behaviour.Kind())
	}
	return nil
}

func (d *Driver) emit(ev Event) {
	if d.observer != nil {
		d.observer.Observe(ev)
	}
}

// Iteration returns the iteration of the most recent frame this driver
// evaluated, or 0 before the first frame.
func (d *Driver) Iteration() uint64 {
	return d.current
}

// FrameDuration returns the trigger window in seconds.
func (d *Driver) FrameDuration() float64 {
	return d.frameDuration
}

// LiveRuns returns the sequential runs currently in progress, in the order
// they were started.
func (d *Driver) LiveRuns() []RunSnapshot {
	return d.sequential.snapshot()
}

// Fired returns the handles of triggerable clips that have fired and not
// re-armed yet, sorted.
func (d *Driver) Fired() []clip.Handle {
	return d.triggerable.firedHandles()
}
