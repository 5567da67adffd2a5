package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/mixer/internal/engine"
	"github.com/roach88/mixer/internal/ir"
	"github.com/roach88/mixer/internal/publish"
	"github.com/roach88/mixer/internal/store"
	"github.com/roach88/mixer/internal/track"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Database  string
	Session   string
	From      float64
	To        float64
	FrameRate float64
	MaxSteps  int
	MQTT      bool

	// SessionGenerator allows overriding the session id generator (for
	// testing). If nil, defaults to UUIDv7Generator.
	SessionGenerator engine.SessionIDGenerator
}

// PlayResult summarizes a recorded session.
type PlayResult struct {
	SessionID  string         `json:"session_id"`
	Track      string         `json:"track"`
	Frames     int            `json:"frames"`
	Events     map[string]int `json:"events"`
	Rejections int            `json:"rejections"`
	LiveRuns   int            `json:"live_runs"`
	Output     []float64      `json:"output,omitempty"`
	Log        []string       `json:"log"`
	Published  *publish.Stats `json:"published,omitempty"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <track>",
		Short: "Evaluate a track and record the session",
		Long: `Evaluate a CUE track frame by frame and record every frame's events.

The playhead advances from --from to --to at the track's frame rate. When
--to is omitted the track is played until its last clip has started.
Each frame is stored with a digest so the session can be replayed later.

Example:
  mixer play --db ./mixer.db ./tracks/demo.cue
  mixer play --db ./mixer.db ./tracks/demo.cue --from 1 --to 3 --mqtt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (default: generated UUIDv7)")
	cmd.Flags().Float64Var(&opts.From, "from", 0, "first playhead time in seconds")
	cmd.Flags().Float64Var(&opts.To, "to", -1, "last playhead time in seconds (default: track end)")
	cmd.Flags().Float64Var(&opts.FrameRate, "frame-rate", 0, "override the track's frame rate")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "cap the steps of each sequential run (0 = config or unlimited)")
	cmd.Flags().BoolVar(&opts.MQTT, "mqtt", false, "publish events to the configured MQTT broker")

	return cmd
}

func runPlay(opts *PlayOptions, trackPath string, cmd *cobra.Command) error {
	out := newOutput(opts.RootOptions, cmd)
	logger := opts.logger()
	cfg := opts.config()

	def, err := track.LoadCUE(trackPath)
	if err != nil {
		return outputLoadError(out, err)
	}
	switch {
	case opts.FrameRate > 0:
		def.FrameRate = opts.FrameRate
	case cfg.FrameRate > 0:
		def.FrameRate = cfg.FrameRate
	}
	host, err := track.Compile(def)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile track", err)
	}

	to := opts.To
	if to < 0 {
		to = trackEnd(def)
	}
	if to < opts.From {
		return NewExitError(ExitCommandError, fmt.Sprintf("--to (%v) is before --from (%v)", to, opts.From))
	}
	maxSteps := opts.MaxSteps
	if maxSteps == 0 {
		maxSteps = cfg.MaxSteps
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Database
	}
	logger.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// Stop between frames on Ctrl-C; the frames played so far stay recorded.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := opts.sessionID()
	sess, err := store.NewSession(sessionID, def, host.FrameDuration(), maxSteps)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create session", err)
	}
	// Writes outlive the signal context so an interrupt never tears a frame.
	writeCtx := context.WithoutCancel(ctx)
	if err := st.WriteSession(writeCtx, sess); err != nil {
		if errors.Is(err, store.ErrSessionExists) {
			return NewExitError(ExitCommandError, fmt.Sprintf("session already exists: %s", sessionID))
		}
		return WrapExitError(ExitCommandError, "failed to write session", err)
	}

	recorder := store.NewRecorder(writeCtx, st, sessionID)
	counts := make(map[string]int)
	observers := engine.Observers{
		recorder,
		engine.ObserverFunc(func(ev engine.Event) {
			if ev.Type != engine.EventFrameBegin && ev.Type != engine.EventFrameEnd {
				counts[string(ev.Type)]++
			}
		}),
	}

	var publisher *publish.Publisher
	if opts.MQTT || cfg.MQTT.Enabled {
		pc, err := cfg.MQTT.Publisher()
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid mqtt config", err)
		}
		publisher, err = publish.Connect(pc, sessionID, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to connect to mqtt broker", err)
		}
		observers = append(observers, publisher)
	}

	driverOpts := append(host.DriverOptions(),
		engine.WithObserver(observers),
		engine.WithLogger(logger),
		engine.WithMaxSteps(maxSteps),
	)
	driver := engine.New(driverOpts...)

	logger.Info("session started", "session", sessionID, "track", def.Name, "from", opts.From, "to", to)
	result := PlayResult{SessionID: sessionID, Track: def.Name, Events: counts}
	for _, t := range host.Times(opts.From, to) {
		if ctx.Err() != nil {
			logger.Info("interrupted, stopping playback", "time", t)
			break
		}
		if err := driver.Evaluate(t, host.Active(t)); err != nil {
			result.Rejections += len(joined(err))
			logger.Warn("frame had rejected clips", "iteration", driver.Iteration(), "error", err)
		}
		if err := recorder.Err(); err != nil {
			break
		}
		out.Debugf("frame %d t=%s", driver.Iteration(), ir.Float(t))
	}

	if publisher != nil {
		publisher.Close()
		stats := publisher.Stats()
		result.Published = &stats
	}
	if err := recorder.Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to record session", err)
	}

	result.Frames = recorder.Frames()
	result.LiveRuns = len(driver.LiveRuns())
	result.Output = host.Output()
	result.Log = host.Log()
	logger.Info("session recorded", "session", sessionID, "frames", result.Frames)

	if out.JSON() {
		return out.OK(result.SessionID, result)
	}
	return outputPlayText(cmd, result)
}

func (opts *PlayOptions) sessionID() string {
	if opts.Session != "" {
		return opts.Session
	}
	gen := opts.SessionGenerator
	if gen == nil {
		gen = engine.UUIDv7Generator{}
	}
	return gen.Generate()
}

// trackEnd is the time the last clip starts or, for clips with a
// duration, ends.
func trackEnd(def *track.Definition) float64 {
	end := 0.0
	for _, c := range def.Clips {
		end = max(end, c.Start+c.Duration)
	}
	return end
}

// joined unpacks an errors.Join result.
func joined(err error) []error {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		return multi.Unwrap()
	}
	return []error{err}
}

func outputPlayText(cmd *cobra.Command, result PlayResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Session: %s\n", result.SessionID)
	fmt.Fprintf(w, "Track: %s\n", result.Track)
	fmt.Fprintf(w, "Frames: %d\n", result.Frames)

	types := make([]string, 0, len(result.Events))
	for typ := range result.Events {
		types = append(types, typ)
	}
	slices.Sort(types)
	for _, typ := range types {
		fmt.Fprintf(w, "  %s: %d\n", typ, result.Events[typ])
	}
	if result.Rejections > 0 {
		fmt.Fprintf(w, "Rejected clips: %d\n", result.Rejections)
	}
	fmt.Fprintf(w, "Live runs: %d\n", result.LiveRuns)
	if result.Output != nil {
		fmt.Fprintf(w, "Output: %v\n", result.Output)
	}
	if result.Published != nil {
		fmt.Fprintf(w, "Published: %d (dropped %d, failed %d)\n",
			result.Published.Published, result.Published.Dropped, result.Published.Failed)
	}
	fmt.Fprintln(w, "✓ Session recorded")
	return nil
}

// outputLoadError reports a track load failure. Load failures are command
// errors (exit code 2).
func outputLoadError(out *Output, err error) error {
	var loadErr *track.LoadError
	if errors.As(err, &loadErr) {
		details := map[string]any{}
		if loadErr.Pos.IsValid() {
			details["file"] = loadErr.Pos.Filename()
			details["line"] = loadErr.Pos.Line()
		}
		_ = out.Fail(loadErr.Code, loadErr.Message, details)
		return WrapExitError(ExitCommandError, "failed to load track", err)
	}
	_ = out.Fail(track.ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to load track", err)
}
