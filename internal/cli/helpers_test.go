package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var demoTrackPath = filepath.Join("..", "harness", "testdata", "tracks", "demo.cue")

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// playDemo records the demo track from t=0 to its end under the given
// session id.
func playDemo(t *testing.T, dbPath, session string) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewPlayCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, "--session", session, demoTrackPath})
	require.NoError(t, cmd.Execute(), buf.String())
}
