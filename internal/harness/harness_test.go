package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mixer/internal/track"
)

func weight(w float64) *float64 { return &w }

func TestRun_InlineTrack(t *testing.T) {
	scenario, err := ParseScenario([]byte(inlineScenario))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "iter=2 t=1 triggered handle=bell", result.Trace[0].String())
	assert.Equal(t, []string{"fired:bell"}, result.Log)
	assert.Len(t, result.Outputs, 3)
}

func TestRun_FailingAssertion(t *testing.T) {
	scenario := &Scenario{
		Name:        "fails",
		Description: "expects a trigger that never happens",
		Track: &track.Definition{
			Name:      "fails",
			FrameRate: 1,
			Clips: []track.ClipDef{
				{ID: "late", Kind: "triggerable", Start: 10},
			},
		},
		Times: []float64{0, 1},
		Assertions: []Assertion{
			{Type: AssertEventCount, Event: "triggered", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "1 occurrences of triggered")
}

func TestRun_StepFailure(t *testing.T) {
	scenario := &Scenario{
		Name:        "step_failure",
		Description: "a failing step ends the run",
		Track: &track.Definition{
			Name:      "step_failure",
			FrameRate: 1,
			Clips: []track.ClipDef{{
				ID:    "seq",
				Kind:  "sequential",
				Steps: []track.StepDef{{Name: "ok"}, {Name: "boom", Fail: true}, {Name: "never"}},
			}},
		},
		Times: []float64{0, 1, 2, 3},
		Assertions: []Assertion{
			{Type: AssertEventCount, Event: "run_failed", Handle: "seq", Count: 1},
			{Type: AssertEventAt, Event: "run_failed", Time: ptr(1.0)},
			{Type: AssertEventCount, Event: "run_started", Count: 1},
			{Type: AssertLiveRuns, Count: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, []string{"step:seq:ok"}, result.Log)

	var failed TraceEvent
	for _, ev := range result.Trace {
		if ev.Type == "run_failed" {
			failed = ev
		}
	}
	assert.Contains(t, failed.Error, `step "boom" of clip "seq" failed`)
}

func TestRun_MaxSteps(t *testing.T) {
	scenario := &Scenario{
		Name:        "budget",
		Description: "a long step is cancelled by the budget",
		Track: &track.Definition{
			Name:      "budget",
			FrameRate: 1,
			Clips: []track.ClipDef{{
				ID:    "slow",
				Kind:  "sequential",
				Steps: []track.StepDef{{Name: "wait", Frames: 10}},
			}},
		},
		Times:    []float64{0, 1, 2, 3},
		MaxSteps: 2,
		Assertions: []Assertion{
			{Type: AssertEventCount, Event: "step_pending", Count: 2},
			{Type: AssertEventAt, Event: "run_cancelled", Handle: "slow", Time: ptr(2.0)},
			{Type: AssertEventCount, Event: "run_started", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	var cancelled TraceEvent
	for _, ev := range result.Trace {
		if ev.Type == "run_cancelled" {
			cancelled = ev
		}
	}
	assert.Equal(t, "budget", cancelled.Reason)
}

func TestRun_FrameDurationOverride(t *testing.T) {
	// At 1 fps the trigger window is 1s, so t=1.5 still fires a clip at 1.
	// With a 0.25s window it does not.
	scenario := &Scenario{
		Name:        "window",
		Description: "frame_duration narrows the trigger window",
		Track: &track.Definition{
			Name:      "window",
			FrameRate: 1,
			Clips:     []track.ClipDef{{ID: "bell", Kind: "triggerable", Start: 1}},
		},
		Times:         []float64{0, 1.5},
		FrameDuration: 0.25,
		Assertions: []Assertion{
			{Type: AssertEventCount, Event: "triggered", Count: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/rewind.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, FormatTrace(first.Trace), FormatTrace(second.Trace))
	assert.Equal(t, first.Log, second.Log)
}

func TestRun_InvalidTrack(t *testing.T) {
	scenario := &Scenario{
		Name:        "invalid",
		Description: "weight out of range",
		Track: &track.Definition{
			Name:  "invalid",
			Clips: []track.ClipDef{{ID: "a", Kind: "scrubbable", Weight: weight(2), Keyframes: []track.Keyframe{{At: 0, Value: []float64{1}}}}},
		},
		Times:      []float64{0},
		Assertions: []Assertion{{Type: AssertLiveRuns}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile track")
}
