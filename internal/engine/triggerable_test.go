package engine

import (
	"errors"
	"testing"

	"github.com/roach88/mixer/internal/clip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerable_FiresOncePerEntry(t *testing.T) {
	fired := 0
	d, _ := newTestDriver(WithFrameDuration(0.1))
	c := trigger("fx", 5, func() error { fired++; return nil })

	for _, tm := range []float64{4.9, 5.0, 5.05, 5.08} {
		require.NoError(t, d.Evaluate(tm, []clip.Clip{c}))
	}
	assert.Equal(t, 1, fired)
	assert.Equal(t, []clip.Handle{"fx"}, d.Fired())
}

func TestTriggerable_RearmOnScrubBack(t *testing.T) {
	fired := 0
	d, log := newTestDriver()
	c := trigger("fx", 5, func() error { fired++; return nil })

	for _, tm := range []float64{4.9, 5.0, 4.0, 5.0} {
		require.NoError(t, d.Evaluate(tm, []clip.Clip{c}))
	}

	assert.Equal(t, 2, fired)
	rearmed := log.OfType(EventRearmed)
	require.Len(t, rearmed, 1)
	assert.Equal(t, ReasonBeforeStart, rearmed[0].Reason)
	assert.Equal(t, uint64(3), rearmed[0].Iteration)
}

func TestTriggerable_RearmOnExit(t *testing.T) {
	fired := 0
	d, log := newTestDriver(WithFrameDuration(1))
	c := trigger("fx", 1, func() error { fired++; return nil })

	require.NoError(t, d.Evaluate(1, []clip.Clip{c}))
	require.NoError(t, d.Evaluate(1.5, nil))
	assert.Empty(t, d.Fired())
	require.NoError(t, d.Evaluate(1.5, []clip.Clip{c}))

	assert.Equal(t, 2, fired, "re-entering the clip within the window fires again")
	rearmed := log.OfType(EventRearmed)
	require.Len(t, rearmed, 1)
	assert.Equal(t, ReasonExited, rearmed[0].Reason)
}

func TestTriggerable_SkipsPastWindow(t *testing.T) {
	fired := 0
	d, _ := newTestDriver()
	c := trigger("fx", 1, func() error { fired++; return nil })

	require.NoError(t, d.Evaluate(2, []clip.Clip{c}))
	assert.Equal(t, 0, fired, "playhead jumped over the firing window")
}

func TestTriggerable_FailureCountsAsFired(t *testing.T) {
	calls := 0
	d, log := newTestDriver()
	c := trigger("fx", 0, func() error {
		calls++
		return errors.New("audio device busy")
	})
	p := trigger("panics", 0, func() error { panic("nope") })
	ok := trigger("ok", 0, func() error { return nil })

	require.NoError(t, d.Evaluate(0, []clip.Clip{c, p, ok}))
	require.NoError(t, d.Evaluate(0, []clip.Clip{c, p, ok}))

	assert.Equal(t, 1, calls)
	failed := log.OfType(EventTriggerFailed)
	require.Len(t, failed, 2)
	assert.True(t, IsCallbackError(failed[0].Err))
	assert.ErrorIs(t, failed[1].Err, ErrCallbackPanic)
	assert.Len(t, log.OfType(EventTriggered), 1)
	assert.Equal(t, []clip.Handle{"fx", "ok", "panics"}, d.Fired())
}

func TestTriggerable_FiresWhenFrameStepsOverWindow(t *testing.T) {
	var fired []float64
	var now float64
	window := 1.0 / 60
	d, _ := newTestDriver(WithFrameDuration(window))
	c := trigger("fx", 3.7, func() error { fired = append(fired, now); return nil })

	// The frame before lands just short of the start and the next exactly
	// on the window's end.
	before := 3.7 - 1e-12
	after := 3.7 + window
	for _, tm := range []float64{before, after, after + window} {
		now = tm
		require.NoError(t, d.Evaluate(tm, []clip.Clip{c}))
	}
	assert.Equal(t, []float64{after}, fired)
}

func TestTriggerable_FiresWhenScrubbedForwardPastStart(t *testing.T) {
	fired := 0
	d, _ := newTestDriver(WithFrameDuration(0.1))
	c := trigger("fx", 5, func() error { fired++; return nil })

	for _, tm := range []float64{4.0, 10.0, 11.0} {
		require.NoError(t, d.Evaluate(tm, []clip.Clip{c}))
	}
	assert.Equal(t, 1, fired)
}
