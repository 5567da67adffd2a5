package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameDigest_Deterministic(t *testing.T) {
	events := []IRObject{
		{"type": IRString("blended"), "value": Floats([]float64{0.5})},
		{"type": IRString("triggered"), "handle": IRString("t1")},
	}

	d1, err := FrameDigest(3, events)
	require.NoError(t, err)
	d2, err := FrameDigest(3, events)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64, "SHA-256 hex is 64 characters")
}

func TestFrameDigest_SensitiveToOrderAndIteration(t *testing.T) {
	a := IRObject{"type": IRString("a")}
	b := IRObject{"type": IRString("b")}

	ab, err := FrameDigest(1, []IRObject{a, b})
	require.NoError(t, err)
	ba, err := FrameDigest(1, []IRObject{b, a})
	require.NoError(t, err)
	ab2, err := FrameDigest(2, []IRObject{a, b})
	require.NoError(t, err)

	assert.NotEqual(t, ab, ba)
	assert.NotEqual(t, ab, ab2)
}

func TestFrameDigest_RejectsNonCanonical(t *testing.T) {
	_, err := FrameDigest(1, []IRObject{{"bad": nil}})
	require.Error(t, err)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t, hashWithDomain(DomainFrame, data), hashWithDomain(DomainTrack, data))
	assert.Equal(t, hashWithDomain(DomainTrack, data), TrackHash(data))
}
