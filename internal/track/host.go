package track

import (
	"fmt"
	"math"

	"github.com/roach88/mixer/internal/clip"
	"github.com/roach88/mixer/internal/engine"
)

// Host plays the host side of a compiled track: it reports the clips
// overlapping the playhead, receives the blended output and logs the side
// effects performed by triggerable and sequential clips.
//
// A Host is not safe for concurrent use; it belongs to one driver.
type Host struct {
	def    *Definition
	clips  []hostClip
	rest   clip.Value
	output clip.Value
	log    []string
}

type hostClip struct {
	def       ClipDef
	behaviour clip.Behaviour
}

// Compile validates def and builds a host for it.
func Compile(def *Definition) (*Host, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	h := &Host{
		def:  def,
		rest: clip.Value(def.Rest).Clone(),
	}
	for _, c := range def.Clips {
		kind, _ := clip.ParseKind(c.Kind)
		hc := hostClip{def: c}
		switch kind {
		case clip.KindScrubbable:
			hc.behaviour = clip.Scrubbable{Sample: sampler(c.Keyframes)}
		case clip.KindTriggerable:
			hc.behaviour = clip.Triggerable{Fire: h.firer(c.EffectiveEvent())}
		case clip.KindSequential:
			hc.behaviour = clip.Sequential{Step: h.stepper(c.ID, c.Steps)}
		}
		h.clips = append(h.clips, hc)
	}
	return h, nil
}

// Definition returns the compiled definition.
func (h *Host) Definition() *Definition {
	return h.def
}

// Active returns the clips overlapping t, in definition order. A clip with
// zero duration stays active from its start onwards. Blend-in ramps the
// weight linearly from 0 at the start to the static weight.
func (h *Host) Active(t float64) []clip.Clip {
	var out []clip.Clip
	for _, hc := range h.clips {
		c := hc.def
		if t < c.Start || (c.Duration > 0 && t >= c.Start+c.Duration) {
			continue
		}
		weight := c.EffectiveWeight()
		if c.BlendIn > 0 {
			weight *= math.Min(1, (t-c.Start)/c.BlendIn)
		}
		out = append(out, clip.Clip{
			Handle:    clip.Handle(c.ID),
			Start:     c.Start,
			Weight:    weight,
			Behaviour: hc.behaviour,
		})
	}
	return out
}

// SetOutput stores the blended value. Pass it to engine.WithTarget.
func (h *Host) SetOutput(v clip.Value) {
	h.output = v.Clone()
}

// Output returns the last blended value.
func (h *Host) Output() clip.Value {
	return h.output.Clone()
}

// Log returns the side effects performed so far, in order.
func (h *Host) Log() []string {
	out := make([]string, len(h.log))
	copy(out, h.log)
	return out
}

// Rest returns the value blending starts from.
func (h *Host) Rest() clip.Value {
	return h.rest.Clone()
}

// FrameDuration returns the duration of one frame in seconds.
func (h *Host) FrameDuration() float64 {
	return 1 / h.def.EffectiveFrameRate()
}

// DriverOptions returns the options that connect a driver to this host.
func (h *Host) DriverOptions() []engine.Option {
	return []engine.Option{
		engine.WithRest(h.rest),
		engine.WithTarget(h.SetOutput),
		engine.WithFrameDuration(h.FrameDuration()),
	}
}

// Times returns the frame times from from to to inclusive, one frame apart.
func (h *Host) Times(from, to float64) []float64 {
	dt := h.FrameDuration()
	var out []float64
	for i := 0; ; i++ {
		t := from + float64(i)*dt
		if t > to+dt*1e-6 {
			break
		}
		out = append(out, t)
	}
	return out
}

// sampler interpolates keyframes piecewise linearly, holding the first and
// last values outside their range.
func sampler(kfs []Keyframe) func(float64) clip.Value {
	return func(local float64) clip.Value {
		if local <= kfs[0].At {
			return clip.Value(kfs[0].Value).Clone()
		}
		for i := 1; i < len(kfs); i++ {
			next := kfs[i]
			if local >= next.At {
				continue
			}
			prev := kfs[i-1]
			frac := (local - prev.At) / (next.At - prev.At)
			return clip.Lerp(prev.Value, next.Value, frac)
		}
		return clip.Value(kfs[len(kfs)-1].Value).Clone()
	}
}

func (h *Host) firer(event string) func() error {
	return func() error {
		h.log = append(h.log, "fired:"+event)
		return nil
	}
}

// stepper runs steps in order. Each step reports Pending until its last
// frame, then logs itself.
func (h *Host) stepper(id string, steps []StepDef) func(*clip.StepContext) (clip.StepResult, error) {
	return func(sc *clip.StepContext) (clip.StepResult, error) {
		cursor := sc.Cursor()
		if cursor >= len(steps) {
			return clip.StepComplete, nil
		}
		step := steps[cursor]
		if step.Fail {
			return clip.StepContinue, fmt.Errorf("step %q of clip %q failed", step.Name, id)
		}
		if sc.Frame() < max(step.Frames, 1)-1 {
			return clip.StepPending, nil
		}
		sc.Apply(func() {
			h.log = append(h.log, fmt.Sprintf("step:%s:%s", id, step.Name))
		})
		if cursor == len(steps)-1 {
			return clip.StepComplete, nil
		}
		return clip.StepContinue, nil
	}
}
