package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySession_Identical(t *testing.T) {
	s := createTestStore(t)
	id := recordSession(t, s, testTrack())

	report, err := VerifySession(context.Background(), s, id, quietLogger())
	require.NoError(t, err)
	assert.True(t, report.OK(), "mismatches: %+v", report.Mismatches)
	assert.Equal(t, 4, report.Frames)
}

func TestVerifySession_DetectsTamperedDigest(t *testing.T) {
	s := createTestStore(t)
	id := recordSession(t, s, testTrack())

	_, err := s.DB().Exec(`UPDATE frames SET digest = 'bogus' WHERE session_id = ? AND iteration = 3`, id)
	require.NoError(t, err)

	report, err := VerifySession(context.Background(), s, id, quietLogger())
	require.NoError(t, err)
	assert.False(t, report.OK())
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, uint64(3), report.Mismatches[0].Iteration)
	assert.Equal(t, "bogus", report.Mismatches[0].Recorded)
}

func TestVerifySession_DetectsChangedTrack(t *testing.T) {
	s := createTestStore(t)
	id := recordSession(t, s, testTrack())

	_, err := s.DB().Exec(`UPDATE sessions SET track_json = replace(track_json, '"start":2', '"start":1') WHERE id = ?`, id)
	require.NoError(t, err)

	_, err = VerifySession(context.Background(), s, id, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "track hash mismatch")
}

func TestVerifySession_DetectsBehaviourChange(t *testing.T) {
	s := createTestStore(t)
	id := recordSession(t, s, testTrack())

	// Re-hashing keeps the track consistent, so the difference surfaces as
	// digest mismatches from the frame the trigger moved to.
	changed := testTrack()
	changed.Clips[1].Start = 1
	sess, err := NewSession(id, changed, 1, 0)
	require.NoError(t, err)
	_, err = s.DB().Exec(`UPDATE sessions SET track_json = ?, track_hash = ? WHERE id = ?`, sess.TrackJSON, sess.TrackHash, id)
	require.NoError(t, err)

	report, err := VerifySession(context.Background(), s, id, quietLogger())
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 2)
	assert.Equal(t, uint64(2), report.Mismatches[0].Iteration)
	assert.Equal(t, uint64(3), report.Mismatches[1].Iteration)
}

func TestVerifySession_Unknown(t *testing.T) {
	s := createTestStore(t)
	_, err := VerifySession(context.Background(), s, "missing", quietLogger())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
