package track

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/roach88/mixer/internal/clip"
)

// DefaultFrameRate is used when a definition does not set frame_rate.
const DefaultFrameRate = 60

// Definition is a timeline of clips.
type Definition struct {
	Name      string    `json:"name" yaml:"name"`
	FrameRate float64   `json:"frame_rate,omitempty" yaml:"frame_rate,omitempty"`
	Rest      []float64 `json:"rest,omitempty" yaml:"rest,omitempty"`
	Clips     []ClipDef `json:"clips" yaml:"clips"`
}

// ClipDef places one clip on the timeline.
//
// Keyframes apply to scrubbable clips, Event to triggerable clips and Steps
// to sequential clips.
type ClipDef struct {
	ID       string   `json:"id" yaml:"id"`
	Kind     string   `json:"kind" yaml:"kind"`
	Start    float64  `json:"start" yaml:"start"`
	Duration float64  `json:"duration,omitempty" yaml:"duration,omitempty"`
	Weight   *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	BlendIn  float64  `json:"blend_in,omitempty" yaml:"blend_in,omitempty"`

	Keyframes []Keyframe `json:"keyframes,omitempty" yaml:"keyframes,omitempty"`
	Event     string     `json:"event,omitempty" yaml:"event,omitempty"`
	Steps     []StepDef  `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Keyframe is a value at a clip-local time.
type Keyframe struct {
	At    float64   `json:"at" yaml:"at"`
	Value []float64 `json:"value" yaml:"value"`
}

// StepDef is one step of a sequential clip. A step spans Frames frames
// (at least one) and fails when Fail is set.
type StepDef struct {
	Name   string `json:"name" yaml:"name"`
	Frames int    `json:"frames,omitempty" yaml:"frames,omitempty"`
	Fail   bool   `json:"fail,omitempty" yaml:"fail,omitempty"`
}

// ValidationError reports one problem in a definition.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// EffectiveWeight returns the clip's static weight, 1 when unset.
func (c ClipDef) EffectiveWeight() float64 {
	if c.Weight == nil {
		return 1
	}
	return *c.Weight
}

// EffectiveEvent returns the trigger's event name, the clip id when unset.
func (c ClipDef) EffectiveEvent() string {
	if c.Event == "" {
		return c.ID
	}
	return c.Event
}

// EffectiveFrameRate returns FrameRate, DefaultFrameRate when unset.
func (d *Definition) EffectiveFrameRate() float64 {
	if d.FrameRate <= 0 {
		return DefaultFrameRate
	}
	return d.FrameRate
}

// Validate checks the definition and returns every problem found, joined.
func (d *Definition) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if d.Name == "" {
		add("name", "is required")
	}
	if d.FrameRate < 0 || math.IsNaN(d.FrameRate) || math.IsInf(d.FrameRate, 0) {
		add("frame_rate", "must be a positive number, got %v", d.FrameRate)
	}

	ids := make(map[string]bool, len(d.Clips))
	for i, c := range d.Clips {
		field := fmt.Sprintf("clips[%d]", i)
		if c.ID == "" {
			add(field+".id", "is required")
		} else if ids[c.ID] {
			add(field+".id", "duplicate clip id %q", c.ID)
		}
		ids[c.ID] = true

		if !finiteNonNegative(c.Start) {
			add(field+".start", "must be a non-negative number, got %v", c.Start)
		}
		if !finiteNonNegative(c.Duration) {
			add(field+".duration", "must be a non-negative number, got %v", c.Duration)
		}
		if !finiteNonNegative(c.BlendIn) {
			add(field+".blend_in", "must be a non-negative number, got %v", c.BlendIn)
		}
		if w := c.EffectiveWeight(); math.IsNaN(w) || w < 0 || w > 1 {
			add(field+".weight", "must be within [0,1], got %v", w)
		}

		kind, err := clip.ParseKind(c.Kind)
		if err != nil {
			add(field+".kind", "%v", err)
			continue
		}
		switch kind {
		case clip.KindScrubbable:
			if len(c.Keyframes) == 0 {
				add(field+".keyframes", "scrubbable clip needs at least one keyframe")
			}
			if !slices.IsSortedFunc(c.Keyframes, func(a, b Keyframe) int {
				return cmp.Compare(a.At, b.At)
			}) {
				add(field+".keyframes", "keyframes must be ordered by at")
			}
		case clip.KindSequential:
			if len(c.Steps) == 0 {
				add(field+".steps", "sequential clip needs at least one step")
			}
			for j, s := range c.Steps {
				if s.Name == "" {
					add(fmt.Sprintf("%s.steps[%d].name", field, j), "is required")
				}
				if s.Frames < 0 {
					add(fmt.Sprintf("%s.steps[%d].frames", field, j), "must not be negative, got %d", s.Frames)
				}
			}
		}
	}
	return errors.Join(errs...)
}

// ParseJSON decodes and validates a JSON definition.
func ParseJSON(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decoding track: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// JSON encodes the definition as stored with a recorded session.
func (d *Definition) JSON() ([]byte, error) {
	return json.Marshal(d)
}

func finiteNonNegative(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}
