package engine

import (
	"testing"

	"github.com/roach88/mixer/internal/clip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrubbable_BlendsInStartOrder(t *testing.T) {
	var out clip.Value
	d, _ := newTestDriver(WithTarget(func(v clip.Value) { out = v }))

	clips := []clip.Clip{
		scrub("second", 1, 0.5, constant(10)),
		scrub("first", 0, 1, constant(2)),
	}
	require.NoError(t, d.Evaluate(1, clips))

	// first: 0 -> 2 at weight 1; second: 2 -> 10 at weight 0.5.
	assert.Equal(t, clip.Value{6}, out)
}

func TestScrubbable_LocalTime(t *testing.T) {
	var local []float64
	d, _ := newTestDriver()

	c := scrub("pos", 1.5, 1, func(l float64) clip.Value {
		local = append(local, l)
		return clip.Value{l}
	})
	require.NoError(t, d.Evaluate(2, []clip.Clip{c}))
	require.NoError(t, d.Evaluate(4, []clip.Clip{c}))

	assert.Equal(t, []float64{0.5, 2.5}, local)
}

func TestScrubbable_RestValue(t *testing.T) {
	var out clip.Value
	d, _ := newTestDriver(
		WithRest(clip.Value{10, 10}),
		WithTarget(func(v clip.Value) { out = v }),
	)

	require.NoError(t, d.Evaluate(0, []clip.Clip{scrub("half", 0, 0.5, constant(0))}))
	assert.Equal(t, clip.Value{5, 5}, out, "missing sample components blend toward zero")
}

func TestScrubbable_ZeroWeightNotSampled(t *testing.T) {
	sampled := false
	var out clip.Value
	d, _ := newTestDriver(WithTarget(func(v clip.Value) { out = v }))

	clips := []clip.Clip{
		scrub("base", 0, 1, constant(3)),
		scrub("muted", 0, 0, func(float64) clip.Value {
			sampled = true
			return clip.Value{100}
		}),
	}
	require.NoError(t, d.Evaluate(0, clips))

	assert.False(t, sampled)
	assert.Equal(t, clip.Value{3}, out)
}

func TestScrubbable_Idempotent(t *testing.T) {
	var outs []clip.Value
	d, _ := newTestDriver(WithTarget(func(v clip.Value) { outs = append(outs, v) }))

	clips := []clip.Clip{
		scrub("a", 0, 0.25, func(l float64) clip.Value { return clip.Value{l, 1} }),
		scrub("b", 0.5, 0.75, func(l float64) clip.Value { return clip.Value{2 * l} }),
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, d.Evaluate(1.25, clips))
	}

	require.Len(t, outs, 4)
	for _, v := range outs[1:] {
		assert.Equal(t, outs[0], v)
	}
}

func TestScrubbable_EmptyBucketLeavesTarget(t *testing.T) {
	calls := 0
	d, log := newTestDriver(WithTarget(func(clip.Value) { calls++ }))

	require.NoError(t, d.Evaluate(0, nil))
	assert.Equal(t, 0, calls)
	assert.Empty(t, log.OfType(EventBlended))
}

func TestScrubbable_PanicIsolated(t *testing.T) {
	var out clip.Value
	d, log := newTestDriver(WithTarget(func(v clip.Value) { out = v }))

	clips := []clip.Clip{
		scrub("bad", 0, 1, func(float64) clip.Value { panic("no data") }),
		scrub("good", 1, 1, constant(7)),
	}
	require.NoError(t, d.Evaluate(1, clips))

	failed := log.OfType(EventSampleFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, clip.Handle("bad"), failed[0].Handle)
	assert.ErrorIs(t, failed[0].Err, ErrCallbackPanic)
	assert.Equal(t, clip.Value{7}, out)
}

func TestScrubbable_BlendedEvent(t *testing.T) {
	d, log := newTestDriver()

	require.NoError(t, d.Evaluate(0, []clip.Clip{scrub("a", 0, 0.5, constant(1))}))
	blended := log.OfType(EventBlended)
	require.Len(t, blended, 1)
	assert.Equal(t, clip.Value{0.5}, blended[0].Value)
	assert.Equal(t, clip.KindScrubbable, blended[0].Kind)
}
