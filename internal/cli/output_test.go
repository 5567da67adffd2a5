package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput_OK(t *testing.T) {
	buf := &bytes.Buffer{}
	out := &Output{Format: "json", Out: buf}

	require.NoError(t, out.OK("demo-1", map[string]int{"frames": 3}))
	assert.Equal(t, "{\n  \"status\": \"ok\",\n  \"session\": \"demo-1\",\n  \"data\": {\n    \"frames\": 3\n  }\n}\n", buf.String())
}

func TestOutput_OKWithoutSession(t *testing.T) {
	buf := &bytes.Buffer{}
	out := &Output{Format: "json", Out: buf}

	require.NoError(t, out.OK("", "valid"))
	assert.NotContains(t, buf.String(), "session")
}

func TestOutput_FailJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	out := &Output{Format: "json", Out: buf}

	details := map[string]any{"file": "demo.cue", "line": 4}
	require.NoError(t, out.Fail("E202", "track does not satisfy the schema", details))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E202", resp.Error.Code)
	assert.Equal(t, "track does not satisfy the schema", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutput_FailText(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			out := &Output{Format: "text", Out: buf, Verbose: tt.verbose}

			require.NoError(t, out.Fail("E005", "track not found", map[string]string{"file": "demo.cue"}))
			assert.Contains(t, buf.String(), "Error [E005]: track not found")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutput_Debugf(t *testing.T) {
	out := &bytes.Buffer{}
	diag := &bytes.Buffer{}

	quiet := &Output{Format: "json", Out: out, Diag: diag}
	quiet.Debugf("frame %d", 1)
	assert.Empty(t, diag.String())

	verbose := &Output{Format: "json", Out: out, Diag: diag, Verbose: true}
	verbose.Debugf("frame %d", 3)
	assert.Empty(t, out.String(), "diagnostics stay out of the JSON stream")
	assert.Equal(t, "frame 3\n", diag.String())

	noDiag := &Output{Format: "text", Out: out, Verbose: true}
	noDiag.Debugf("frame %d", 4)
	assert.Equal(t, "frame 4\n", out.String())
}

func TestExitErrors(t *testing.T) {
	err := WrapExitError(ExitCommandError, "failed to open database", assert.AnError)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failed to open database: ")

	wrapped := fmt.Errorf("play: %w", NewExitError(ExitFailure, "determinism verification failed"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "determinism verification failed", NewExitError(ExitFailure, "determinism verification failed").Error())
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}
