package clip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind_RoundTrip(t *testing.T) {
	for _, k := range Kinds {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
		assert.True(t, parsed.Valid())
	}
}

func TestParseKind_Unknown(t *testing.T) {
	k, err := ParseKind("Scrubbable")
	require.Error(t, err)
	assert.Equal(t, KindUnknown, k)
	assert.False(t, k.Valid())
	assert.Equal(t, "unknown", k.String())
}

func TestClip_KindFromBehaviour(t *testing.T) {
	assert.Equal(t, KindUnknown, Clip{}.Kind())
	assert.Equal(t, KindScrubbable, Clip{Behaviour: Scrubbable{}}.Kind())
	assert.Equal(t, KindTriggerable, Clip{Behaviour: Triggerable{}}.Kind())
	assert.Equal(t, KindSequential, Clip{Behaviour: Sequential{}}.Kind())
}
