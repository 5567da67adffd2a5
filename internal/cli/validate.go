package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mixer/internal/ir"
	"github.com/roach88/mixer/internal/track"
)

// ClipSummary describes one validated clip.
type ClipSummary struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration,omitempty"`
	Weight   float64 `json:"weight"`
	Steps    int     `json:"steps,omitempty"`
}

// ValidationIssue is one problem found in a track.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Track     string            `json:"track,omitempty"`
	FrameRate float64           `json:"frame_rate,omitempty"`
	Hash      string            `json:"hash,omitempty"`
	Clips     []ClipSummary     `json:"clips,omitempty"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <track>",
		Short: "Validate a track against the schema",
		Long: `Validate a CUE track (a .cue file, or a directory whose .cue files
together declare one track) against the track schema and the semantic checks, and list its
clips.

Exit codes:
  0 - Track is valid
  1 - Track is invalid
  2 - Command error (track not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, trackPath string, cmd *cobra.Command) error {
	out := newOutput(opts, cmd)

	def, err := track.LoadCUE(trackPath)
	if err != nil {
		var loadErr *track.LoadError
		if errors.As(err, &loadErr) && loadErr.Code == track.ErrCodeNotFound {
			_ = out.Fail(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
		}
		return outputValidationErrors(out, []ValidationIssue{issueFromError(err)})
	}

	out.Debugf("Loaded track %q with %d clip(s)", def.Name, len(def.Clips))

	data, err := def.JSON()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode track", err)
	}
	result := ValidationResult{
		Valid:     true,
		Track:     def.Name,
		FrameRate: def.EffectiveFrameRate(),
		Hash:      ir.TrackHash(data),
		Clips:     make([]ClipSummary, 0, len(def.Clips)),
	}
	for _, c := range def.Clips {
		result.Clips = append(result.Clips, ClipSummary{
			ID:       c.ID,
			Kind:     c.Kind,
			Start:    c.Start,
			Duration: c.Duration,
			Weight:   c.EffectiveWeight(),
			Steps:    len(c.Steps),
		})
	}

	return outputValidateSuccess(out, result)
}

func issueFromError(err error) ValidationIssue {
	var loadErr *track.LoadError
	if !errors.As(err, &loadErr) {
		return ValidationIssue{Code: track.ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Pos.IsValid() {
		issue.File = loadErr.Pos.Filename()
		issue.Line = loadErr.Pos.Line()
	}
	return issue
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(out *Output, result ValidationResult) error {
	if out.JSON() {
		return out.OK("", result)
	}

	w := out.Out
	fmt.Fprintf(w, "✓ Track %q valid (%d clips, %s fps)\n", result.Track, len(result.Clips), ir.Float(result.FrameRate))
	for _, c := range result.Clips {
		fmt.Fprintf(w, "  %-12s %-11s start=%s", c.ID, c.Kind, ir.Float(c.Start))
		if c.Duration > 0 {
			fmt.Fprintf(w, " duration=%s", ir.Float(c.Duration))
		}
		switch c.Kind {
		case "scrubbable":
			fmt.Fprintf(w, " weight=%s", ir.Float(c.Weight))
		case "sequential":
			fmt.Fprintf(w, " steps=%d", c.Steps)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// outputValidationErrors outputs validation errors.
func outputValidationErrors(out *Output, issues []ValidationIssue) error {
	if out.JSON() {
		response := Response{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error: &ResponseError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}
		if err := out.Respond(response); err != nil {
			return err
		}
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	fmt.Fprintln(out.Out, "✗ Validation failed")
	fmt.Fprintln(out.Out)

	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(out.Out, "%s:%d\n", issue.File, issue.Line)
		}
		fmt.Fprintf(out.Out, "  %s: %s\n\n", issue.Code, issue.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
