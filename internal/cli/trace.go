package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mixer/internal/ir"
	"github.com/roach88/mixer/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Handle   string // optional - filter to one clip
	Type     string // optional - filter to one event type
}

// TraceEvent represents a single recorded event.
type TraceEvent struct {
	Iteration uint64                 `json:"iteration"`
	Index     int                    `json:"index"`
	Type      string                 `json:"type"`
	Kind      string                 `json:"kind,omitempty"`
	Handle    string                 `json:"handle,omitempty"`
	Payload   map[string]interface{} `json:"payload"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	SessionID string       `json:"session_id"`
	Track     string       `json:"track"`
	Events    []TraceEvent `json:"events"`
	Stats     TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Frames      int `json:"frames"`
	TotalEvents int `json:"total_events"`
	Shown       int `json:"shown"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the recorded events of a session",
		Long: `Print the events recorded for a session, frame by frame.

Frame markers are not stored separately; frames are shown by iteration.
Use --handle to follow one clip and --type to select one event type.

Examples:
  mixer trace --db ./mixer.db --session 0190f5a2-...
  mixer trace --db ./mixer.db --session 0190f5a2-... --handle intro
  mixer trace --db ./mixer.db --session 0190f5a2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to trace (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.Handle, "handle", "", "filter to one clip handle")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter to one event type")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openExistingStore(opts.Database, opts.config().Database)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.ReadSession(ctx, opts.Session)
	if errors.Is(err, store.ErrSessionNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	frames, err := st.ReadFrames(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read frames", err)
	}

	var records []store.EventRecord
	if opts.Handle != "" {
		records, err = st.ReadHandleEvents(ctx, sess.ID, opts.Handle)
	} else {
		records, err = st.ReadEvents(ctx, sess.ID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	total := 0
	for _, f := range frames {
		total += f.EventCount
	}
	result := TraceResult{
		SessionID: sess.ID,
		Track:     sess.TrackName,
		Events:    buildTimeline(records, opts.Type),
		Stats:     TraceStats{Frames: len(frames), TotalEvents: total},
	}
	result.Stats.Shown = len(result.Events)

	if opts.Format == "json" {
		return newOutput(opts.RootOptions, cmd).OK(result.SessionID, result)
	}
	return outputTraceText(cmd, result)
}

// buildTimeline converts stored events, dropping frame markers and events
// not of typeFilter when it is set.
func buildTimeline(records []store.EventRecord, typeFilter string) []TraceEvent {
	timeline := make([]TraceEvent, 0, len(records))
	for _, rec := range records {
		if rec.Type == "frame_begin" || rec.Type == "frame_end" {
			continue
		}
		if typeFilter != "" && rec.Type != typeFilter {
			continue
		}
		timeline = append(timeline, TraceEvent{
			Iteration: rec.Iteration,
			Index:     rec.Index,
			Type:      rec.Type,
			Kind:      rec.Kind,
			Handle:    rec.Handle,
			Payload:   irObjectToMap(rec.Payload),
		})
	}
	return timeline
}

// irObjectToMap converts an ir.IRObject to a plain map.
func irObjectToMap(obj ir.IRObject) map[string]interface{} {
	if obj == nil {
		return nil
	}

	result := make(map[string]interface{})
	for k, v := range obj {
		result[k] = irValueToInterface(v)
	}
	return result
}

// irValueToInterface converts an ir.IRValue to a plain interface{}.
func irValueToInterface(v ir.IRValue) interface{} {
	switch val := v.(type) {
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return int64(val)
	case ir.IRBool:
		return bool(val)
	case ir.IRArray:
		result := make([]interface{}, len(val))
		for i, elem := range val {
			result[i] = irValueToInterface(elem)
		}
		return result
	case ir.IRObject:
		return irObjectToMap(val)
	default:
		return nil
	}
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Session: %s (%s)\n", result.SessionID, result.Track)
	fmt.Fprintf(w, "Frames: %d, events: %d\n", result.Stats.Frames, result.Stats.TotalEvents)
	fmt.Fprintln(w)

	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
		return nil
	}
	var last uint64
	for _, event := range result.Events {
		if event.Iteration != last {
			fmt.Fprintf(w, "--- iteration %d t=%v ---\n", event.Iteration, event.Payload["time"])
			last = event.Iteration
		}
		formatTimelineEvent(w, event)
	}
	return nil
}

// formatTimelineEvent writes one event line.
func formatTimelineEvent(w io.Writer, event TraceEvent) {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s", event.Type)
	if event.Handle != "" {
		fmt.Fprintf(&b, " %s", event.Handle)
	}
	if cursor, ok := event.Payload["cursor"]; ok {
		fmt.Fprintf(&b, " cursor=%v", cursor)
	}
	if value, ok := event.Payload["value"].([]interface{}); ok {
		parts := make([]string, len(value))
		for i, v := range value {
			parts[i] = fmt.Sprint(v)
		}
		fmt.Fprintf(&b, " value=[%s]", strings.Join(parts, ","))
	}
	if reason, ok := event.Payload["reason"]; ok {
		fmt.Fprintf(&b, " reason=%v", reason)
	}
	if msg, ok := event.Payload["error"]; ok {
		fmt.Fprintf(&b, " error=%q", msg)
	}
	fmt.Fprintln(w, b.String())
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
