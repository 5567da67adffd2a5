package engine

import "github.com/roach88/mixer/internal/clip"

// scrubbableStrategy blends scrubbable clips into one value per frame.
// It keeps no state between frames: the same records at the same time
// always produce the same value.
type scrubbableStrategy struct {
	mixEnv
	rest   clip.Value
	target func(clip.Value)
}

// Mix folds the records, in start order, over the rest value. Each sample
// is interpolated toward with its clip's weight, so later clips override
// earlier ones in proportion to their weight. A weight of 0 skips the clip
// without sampling it.
func (s *scrubbableStrategy) Mix(records []scrubbableRecord, t float64, iteration uint64) {
	if len(records) == 0 {
		return
	}

	acc := s.rest.Clone()
	for _, r := range records {
		if r.Weight == 0 {
			continue
		}
		sample, err := guard(func() (clip.Value, error) {
			return r.sample(t - r.Start), nil
		})
		if err != nil {
			s.logger.Error("scrubbable sample failed",
				"handle", r.Handle,
				"iteration", iteration,
				"error", err)
			s.emit(Event{
				Iteration: iteration,
				Time:      t,
				Type:      EventSampleFailed,
				Kind:      clip.KindScrubbable,
				Handle:    r.Handle,
				Err:       newCallbackError(ErrCodeSampleFailed, r.Handle, iteration, err),
			})
			continue
		}
		acc = clip.Lerp(acc, sample, r.Weight)
	}
	if acc == nil {
		acc = clip.Value{}
	}

	if s.target != nil {
		s.target(acc.Clone())
	}
	s.emit(Event{
		Iteration: iteration,
		Time:      t,
		Type:      EventBlended,
		Kind:      clip.KindScrubbable,
		Value:     acc,
	})
}
