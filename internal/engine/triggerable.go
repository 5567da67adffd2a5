package engine

import (
	"slices"

	"github.com/roach88/mixer/internal/clip"
)

// triggerableStrategy fires one-shot clips when the playhead enters them.
//
// A clip fires when the playhead lies within one frame duration after its
// start, or when it crossed the start since the previous frame. The second
// rule keeps frame grids built by repeated float addition from stepping over
// a window that is exactly one frame wide. Its fired flag stays set until the
// playhead moves before the start or the clip leaves the frame, which
// re-arms it.
type triggerableStrategy struct {
	mixEnv
	window float64
	fired  map[clip.Handle]bool

	last    float64 // playhead time of the previous frame
	hasLast bool
}

func newTriggerableStrategy(env mixEnv, window float64) *triggerableStrategy {
	return &triggerableStrategy{
		mixEnv: env,
		window: window,
		fired:  make(map[clip.Handle]bool),
	}
}

// Mix fires, re-arms or skips each record.
func (s *triggerableStrategy) Mix(records []triggerableRecord, t float64, iteration uint64) {
	prev, hadPrev := s.last, s.hasLast
	s.last, s.hasLast = t, true

	present := make(map[clip.Handle]bool, len(records))
	for _, r := range records {
		present[r.Handle] = true
	}
	for _, h := range s.firedHandles() {
		if !present[h] {
			s.rearm(h, t, iteration, ReasonExited)
		}
	}

	for _, r := range records {
		if t < r.Start {
			if s.fired[r.Handle] {
				s.rearm(r.Handle, t, iteration, ReasonBeforeStart)
			}
			continue
		}
		if s.fired[r.Handle] {
			continue
		}
		crossed := hadPrev && prev < r.Start
		if t >= r.Start+s.window && !crossed {
			continue
		}

		s.fired[r.Handle] = true
		_, err := guard(func() (struct{}, error) {
			return struct{}{}, r.fire()
		})
		if err != nil {
			s.logger.Error("trigger failed",
				"handle", r.Handle,
				"iteration", iteration,
				"error", err)
			s.emit(Event{
				Iteration: iteration,
				Time:      t,
				Type:      EventTriggerFailed,
				Kind:      clip.KindTriggerable,
				Handle:    r.Handle,
				Err:       newCallbackError(ErrCodeTriggerFailed, r.Handle, iteration, err),
			})
			continue
		}
		s.emit(Event{
			Iteration: iteration,
			Time:      t,
			Type:      EventTriggered,
			Kind:      clip.KindTriggerable,
			Handle:    r.Handle,
		})
	}
}

func (s *triggerableStrategy) rearm(h clip.Handle, t float64, iteration uint64, reason Reason) {
	delete(s.fired, h)
	s.logger.Debug("trigger re-armed", "handle", h, "iteration", iteration, "reason", reason)
	s.emit(Event{
		Iteration: iteration,
		Time:      t,
		Type:      EventRearmed,
		Kind:      clip.KindTriggerable,
		Handle:    h,
		Reason:    reason,
	})
}

func (s *triggerableStrategy) firedHandles() []clip.Handle {
	out := make([]clip.Handle, 0, len(s.fired))
	for h := range s.fired {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}
