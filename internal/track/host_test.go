package track

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/mixer/internal/clip"
	"github.com/roach88/mixer/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoHost(t *testing.T) *Host {
	t.Helper()
	def, err := LoadCUE(filepath.Join("testdata", "demo.cue"))
	require.NoError(t, err)
	h, err := Compile(def)
	require.NoError(t, err)
	return h
}

func TestCompile_RejectsInvalid(t *testing.T) {
	_, err := Compile(&Definition{})
	require.Error(t, err)
}

func TestHost_Active(t *testing.T) {
	h, err := Compile(&Definition{
		Name: "t",
		Clips: []ClipDef{
			{ID: "a", Kind: "triggerable", Start: 1, Duration: 2},
			{ID: "b", Kind: "triggerable", Start: 0},
			{ID: "c", Kind: "scrubbable", Start: 2, BlendIn: 2, Weight: ptr(0.5),
				Keyframes: []Keyframe{{At: 0, Value: []float64{1}}}},
		},
	})
	require.NoError(t, err)

	handles := func(cs []clip.Clip) []clip.Handle {
		var out []clip.Handle
		for _, c := range cs {
			out = append(out, c.Handle)
		}
		return out
	}

	assert.Equal(t, []clip.Handle{"b"}, handles(h.Active(0.5)))
	assert.Equal(t, []clip.Handle{"a", "b"}, handles(h.Active(1)))
	assert.Equal(t, []clip.Handle{"b", "c"}, handles(h.Active(3)), "duration end is exclusive")
	assert.Equal(t, []clip.Handle{"b", "c"}, handles(h.Active(100)), "zero duration is open-ended")

	active := h.Active(3)
	require.Len(t, active, 2)
	assert.Equal(t, 0.25, active[1].Weight, "half-way through blend-in")
	assert.Equal(t, clip.KindScrubbable, active[1].Kind())
}

func TestSampler_InterpolatesAndClamps(t *testing.T) {
	s := sampler([]Keyframe{
		{At: 1, Value: []float64{0, 10}},
		{At: 3, Value: []float64{4, 10}},
		{At: 4, Value: []float64{0}},
	})

	assert.Equal(t, clip.Value{0, 10}, s(0))
	assert.Equal(t, clip.Value{0, 10}, s(1))
	assert.Equal(t, clip.Value{2, 10}, s(2))
	assert.Equal(t, clip.Value{4, 10}, s(3))
	assert.Equal(t, clip.Value{2, 5}, s(3.5))
	assert.Equal(t, clip.Value{0}, s(9))
}

func TestHost_Times(t *testing.T) {
	h := demoHost(t)
	assert.Equal(t, []float64{0, 1, 2, 3}, h.Times(0, 3))
	assert.Equal(t, []float64{2}, h.Times(2, 2.5))

	fast, err := Compile(&Definition{Name: "f", FrameRate: 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5}, fast.Times(0, 0.5))
}

func TestHost_PlaysDemoTrack(t *testing.T) {
	h := demoHost(t)
	opts := append(h.DriverOptions(), engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	d := engine.New(opts...)

	var outputs []clip.Value
	for _, tm := range h.Times(0, 3) {
		require.NoError(t, d.Evaluate(tm, h.Active(tm)))
		outputs = append(outputs, h.Output())
	}

	assert.Equal(t, []clip.Value{{0}, {0.5}, {1}, {1.5}}, outputs)
	assert.Equal(t, []string{"step:intro:fade", "fired:chime", "step:intro:title"}, h.Log())
	assert.Empty(t, d.LiveRuns())
}

func TestHost_MultiFrameAndFailingSteps(t *testing.T) {
	h, err := Compile(&Definition{
		Name:      "steps",
		FrameRate: 1,
		Clips: []ClipDef{
			{ID: "long", Kind: "sequential", Steps: []StepDef{{Name: "wait", Frames: 3}, {Name: "done"}}},
			{ID: "broken", Kind: "sequential", Steps: []StepDef{{Name: "ok"}, {Name: "boom", Fail: true}}},
		},
	})
	require.NoError(t, err)

	log := &engine.EventLog{}
	opts := append(h.DriverOptions(),
		engine.WithObserver(log),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	d := engine.New(opts...)

	for _, tm := range h.Times(0, 4) {
		require.NoError(t, d.Evaluate(tm, h.Active(tm)))
	}

	assert.Equal(t, []string{"step:broken:ok", "step:long:wait", "step:long:done"}, h.Log())
	failed := log.OfType(engine.EventRunFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, clip.Handle("broken"), failed[0].Handle)
	assert.Contains(t, failed[0].Err.Error(), `step "boom" of clip "broken" failed`)
}

func TestHost_TriggersFireOnSixtyFPSGrid(t *testing.T) {
	for _, start := range []float64{3.7, 6.9, 7.4, 7.9} {
		h, err := Compile(&Definition{
			Name:      "grid",
			FrameRate: 60,
			Clips:     []ClipDef{{ID: "cue", Kind: "triggerable", Start: start, Duration: 1, Event: "cue"}},
		})
		require.NoError(t, err)
		opts := append(h.DriverOptions(), engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		d := engine.New(opts...)

		for _, tm := range h.Times(0, start+2) {
			require.NoError(t, d.Evaluate(tm, h.Active(tm)))
		}
		assert.Equal(t, []string{"fired:cue"}, h.Log(), "start=%v", start)
	}
}
