package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/mixer/internal/engine"
	"github.com/roach88/mixer/internal/testutil"
	"github.com/roach88/mixer/internal/track"
)

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(f float64) *float64 { return &f }

func testTrack() *track.Definition {
	return &track.Definition{
		Name:      "recorded",
		FrameRate: 1,
		Rest:      []float64{0},
		Clips: []track.ClipDef{
			{ID: "slide", Kind: "scrubbable", Weight: ptr(0.5), Keyframes: []track.Keyframe{
				{At: 0, Value: []float64{0}},
				{At: 4, Value: []float64{4}},
			}},
			{ID: "chime", Kind: "triggerable", Start: 2},
			{ID: "intro", Kind: "sequential", Start: 1, Steps: []track.StepDef{{Name: "fade"}, {Name: "title"}}},
		},
	}
}

// recordSession plays def from 0 to 3 seconds into a new session and
// returns its id.
func recordSession(t *testing.T, s *Store, def *track.Definition) string {
	t.Helper()
	ctx := context.Background()

	id := testutil.NewFixedSessionGenerator("session-1").Generate()
	host, err := track.Compile(def)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	sess, err := NewSession(id, def, host.FrameDuration(), 0)
	if err != nil {
		t.Fatalf("NewSession() failed: %v", err)
	}
	if err := s.WriteSession(ctx, sess); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}

	rec := NewRecorder(ctx, s, id)
	opts := append(host.DriverOptions(), engine.WithObserver(rec), engine.WithLogger(quietLogger()))
	d := engine.New(opts...)
	for _, tm := range host.Times(0, 3) {
		if err := d.Evaluate(tm, host.Active(tm)); err != nil {
			t.Fatalf("Evaluate(%v) failed: %v", tm, err)
		}
	}
	if err := rec.Err(); err != nil {
		t.Fatalf("recorder failed: %v", err)
	}
	return id
}
