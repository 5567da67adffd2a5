package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/mixer/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config is loaded from ConfigPath before any command runs, or is the
	// default configuration when no path is given.
	Config *config.Config

	// Logger is the structured logger commands hand to library code.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the mixer CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mixer",
		Short: "mixer - timeline behaviour mixer",
		Long: `Evaluate timelines of scrubbable, triggerable and sequential clips
one frame at a time, record the sessions and verify that they replay
deterministically.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to mixer.yaml")

	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup loads the config file and installs the logger. Logs go to stderr so
// they never corrupt JSON output; --verbose forces debug level.
func (opts *RootOptions) setup(stderr io.Writer) error {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	opts.Config = cfg

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	opts.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(opts.Logger)
	return nil
}

// config returns the loaded configuration, or the defaults when the
// command runs without the root (as in tests).
func (opts *RootOptions) config() *config.Config {
	if opts.Config == nil {
		return config.Default()
	}
	return opts.Config
}

func (opts *RootOptions) logger() *slog.Logger {
	if opts.Logger == nil {
		return slog.Default()
	}
	return opts.Logger
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
