package clip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepContext_StaleAfterIterationMoves(t *testing.T) {
	live := uint64(7)
	sc := NewStepContext("seq-1", 2, 3, 1.5, 7, func() uint64 { return live })

	assert.Equal(t, Handle("seq-1"), sc.Handle())
	assert.Equal(t, 2, sc.Cursor())
	assert.Equal(t, 3, sc.Frame())
	assert.Equal(t, 1.5, sc.Time())
	assert.Equal(t, uint64(7), sc.Iteration())
	assert.False(t, sc.Stale())
	assert.NoError(t, sc.Checkpoint())

	live = 8
	assert.True(t, sc.Stale())
	assert.ErrorIs(t, sc.Checkpoint(), ErrSuperseded)
}

func TestStepContext_ApplyGuardsMutation(t *testing.T) {
	live := uint64(1)
	sc := NewStepContext("seq-1", 0, 0, 0, 1, func() uint64 { return live })

	writes := 0
	assert.True(t, sc.Apply(func() { writes++ }))

	live = 2
	assert.False(t, sc.Apply(func() { writes++ }))
	assert.Equal(t, 1, writes)
}

func TestStepResult_String(t *testing.T) {
	assert.Equal(t, "continue", StepContinue.String())
	assert.Equal(t, "complete", StepComplete.String())
	assert.Equal(t, "pending", StepPending.String())
	assert.Equal(t, "StepResult(9)", StepResult(9).String())
}
