package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mixer/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplayMismatch is one frame whose replayed digest differs.
type ReplayMismatch struct {
	Iteration uint64  `json:"iteration"`
	Time      float64 `json:"time"`
	Recorded  string  `json:"recorded"`
	Replayed  string  `json:"replayed"`
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	SessionID     string           `json:"session_id"`
	Track         string           `json:"track"`
	Frames        int              `json:"frames"`
	Deterministic bool             `json:"deterministic"`
	Mismatches    []ReplayMismatch `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded sessions and verify determinism",
		Long: `Replay recorded sessions and verify that every frame reproduces the
recorded events.

Each session's stored track is recompiled and evaluated at the recorded
frame times with a fresh driver. The events of every frame are hashed and
compared with the recorded digest.

Exit codes:
  0 - All sessions are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  mixer replay --db ./mixer.db
  mixer replay --db ./mixer.db --session 0190f5a2-...
  mixer replay --db ./mixer.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openExistingStore(opts.Database, opts.config().Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var sessions []store.Session
	if opts.Session != "" {
		sess, err := st.ReadSession(ctx, opts.Session)
		if errors.Is(err, store.ErrSessionNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read session", err)
		}
		sessions = []store.Session{sess}
	} else {
		sessions, err = st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}

	if len(sessions) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(newOutput(opts.RootOptions, cmd), result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found in database.")
		return nil
	}

	for _, sess := range sessions {
		report, err := store.VerifySession(ctx, st, sess.ID, opts.logger())
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", sess.ID), err)
		}

		sr := ReplaySessionResult{
			SessionID:     sess.ID,
			Track:         sess.TrackName,
			Frames:        report.Frames,
			Deterministic: report.OK(),
		}
		for _, m := range report.Mismatches {
			sr.Mismatches = append(sr.Mismatches, ReplayMismatch(m))
		}
		result.Sessions = append(result.Sessions, sr)
		if !sr.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(newOutput(opts.RootOptions, cmd), result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// openExistingStore opens the database at path, falling back to the
// configured one, and refuses to create a new file.
func openExistingStore(path, fallback string) (*store.Store, error) {
	if path == "" {
		path = fallback
	}
	if !fileExists(path) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(out *Output, result ReplayResult) error {
	response := Response{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &ResponseError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	if err := out.Respond(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, sess := range result.Sessions {
		status := "✓"
		if !sess.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Session: %s (%s)\n", status, sess.SessionID, sess.Track)
		fmt.Fprintf(w, "  Frames: %d\n", sess.Frames)

		if !sess.Deterministic {
			fmt.Fprintf(w, "  Warning: %d frame(s) replayed differently!\n", len(sess.Mismatches))
			if verbose {
				for _, m := range sess.Mismatches {
					fmt.Fprintf(w, "    iteration %d t=%v: recorded %s, replayed %s\n",
						m.Iteration, m.Time, m.Recorded, m.Replayed)
				}
			}
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
