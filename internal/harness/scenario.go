package harness

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mixer/internal/track"
)

// Scenario defines a timeline scenario: a track, the playhead times to
// evaluate it at and the assertions the run must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Track is an inline track definition.
	Track *track.Definition `yaml:"track,omitempty"`

	// TrackFile is a CUE track file. LoadScenario resolves it relative to
	// the scenario file.
	TrackFile string `yaml:"track_file,omitempty"`

	// Times lists the playhead times, one frame each, in order. Times may
	// move backwards to model scrubbing.
	Times []float64 `yaml:"times,omitempty"`

	// Range expands to frame times at the track's frame rate when Times is
	// empty.
	Range *Range `yaml:"range,omitempty"`

	// FrameDuration overrides the trigger window derived from the track's
	// frame rate.
	FrameDuration float64 `yaml:"frame_duration,omitempty"`

	// MaxSteps caps the steps of each sequential run. Zero means no cap.
	MaxSteps int `yaml:"max_steps,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// Range is an inclusive span of playhead times.
type Range struct {
	From float64 `yaml:"from"`
	To   float64 `yaml:"to"`
}

// Assertion validates the trace, output or host state after a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event is the event type (event_count, event_at).
	Event string `yaml:"event,omitempty"`

	// Handle restricts event_count and event_at to one clip.
	Handle string `yaml:"handle,omitempty"`

	// Count is the expected number (event_count, live_runs).
	Count int `yaml:"count,omitempty"`

	// Time is the playhead time (event_at, output_at).
	Time *float64 `yaml:"time,omitempty"`

	// Events is the expected order (event_order).
	Events []string `yaml:"events,omitempty"`

	// Value is the expected output (output_at).
	Value []float64 `yaml:"value,omitempty"`

	// Tolerance is the allowed per-component difference (output_at).
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Entry is the expected host log entry (log_contains).
	Entry string `yaml:"entry,omitempty"`
}

// Assertion type constants.
const (
	AssertEventCount  = "event_count"
	AssertEventAt     = "event_at"
	AssertEventOrder  = "event_order"
	AssertOutputAt    = "output_at"
	AssertLiveRuns    = "live_runs"
	AssertLogContains = "log_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.TrackFile != "" && !filepath.IsAbs(scenario.TrackFile) {
		scenario.TrackFile = filepath.Join(filepath.Dir(path), scenario.TrackFile)
	}
	if scenario.TrackFile != "" {
		if _, err := os.Stat(scenario.TrackFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: track file not found: %s", scenario.TrackFile)
		}
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML. A relative track_file is left as is.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" for "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Track == nil && s.TrackFile == "":
		return fmt.Errorf("one of track or track_file is required")
	case s.Track != nil && s.TrackFile != "":
		return fmt.Errorf("track and track_file are mutually exclusive")
	}

	switch {
	case len(s.Times) == 0 && s.Range == nil:
		return fmt.Errorf("one of times or range is required")
	case len(s.Times) > 0 && s.Range != nil:
		return fmt.Errorf("times and range are mutually exclusive")
	}
	for i, t := range s.Times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("times[%d]: must be finite", i)
		}
	}
	if s.Range != nil && s.Range.To < s.Range.From {
		return fmt.Errorf("range: to (%v) is before from (%v)", s.Range.To, s.Range.From)
	}

	if s.FrameDuration < 0 {
		return fmt.Errorf("frame_duration must be positive")
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventAt:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_at", index)
		}
		if a.Time == nil {
			return fmt.Errorf("assertions[%d]: time is required for event_at", index)
		}
	case AssertEventOrder:
		if len(a.Events) < 2 {
			return fmt.Errorf("assertions[%d]: events needs at least two entries for event_order", index)
		}
	case AssertOutputAt:
		if a.Time == nil {
			return fmt.Errorf("assertions[%d]: time is required for output_at", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for output_at", index)
		}
		if a.Tolerance < 0 {
			return fmt.Errorf("assertions[%d]: tolerance must be non-negative for output_at", index)
		}
	case AssertLiveRuns:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for live_runs", index)
		}
	case AssertLogContains:
		if a.Entry == "" {
			return fmt.Errorf("assertions[%d]: entry is required for log_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
