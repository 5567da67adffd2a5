package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Exit codes shared by every command.
const (
	ExitSuccess      = 0 // command succeeded
	ExitFailure      = 1 // the command ran and found a problem: invalid track, replay mismatch, failed scenario
	ExitCommandError = 2 // the command could not run: missing file or database, bad flags, bad config
)

// ExitError carries the process exit code for a command failure.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure for any
// other error.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON document every command writes with --format json.
// Session is set by commands that act on a single recorded session.
type Response struct {
	Status  string         `json:"status"` // "ok" or "error"
	Session string         `json:"session,omitempty"`
	Data    any            `json:"data,omitempty"`
	Error   *ResponseError `json:"error,omitempty"`
}

// ResponseError describes why a command failed. Code is a track loader code
// (E0xx, E2xx) or a command code such as E_DETERMINISM.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Output writes command results. Results go to Out; Debugf diagnostics go
// to Diag so they never end up inside a JSON document.
type Output struct {
	Format  string
	Out     io.Writer
	Diag    io.Writer
	Verbose bool
}

func newOutput(opts *RootOptions, cmd *cobra.Command) *Output {
	return &Output{
		Format:  opts.Format,
		Out:     cmd.OutOrStdout(),
		Diag:    cmd.ErrOrStderr(),
		Verbose: opts.Verbose,
	}
}

// JSON reports whether results are written as a Response.
func (o *Output) JSON() bool { return o.Format == "json" }

// Respond writes resp as indented JSON.
func (o *Output) Respond(resp Response) error {
	encoder := json.NewEncoder(o.Out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

// OK writes a successful Response holding data.
func (o *Output) OK(session string, data any) error {
	return o.Respond(Response{Status: "ok", Session: session, Data: data})
}

// Fail reports a failure: an error Response in JSON mode, one line (plus
// details when verbose) in text mode.
func (o *Output) Fail(code, message string, details any) error {
	if o.JSON() {
		return o.Respond(Response{
			Status: "error",
			Error:  &ResponseError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(o.Out, "Error [%s]: %s\n", code, message)
	if o.Verbose && details != nil {
		fmt.Fprintf(o.Out, "Details: %v\n", details)
	}
	return nil
}

// Debugf writes a diagnostic line when --verbose is set.
func (o *Output) Debugf(format string, args ...any) {
	if !o.Verbose {
		return
	}
	w := o.Diag
	if w == nil {
		w = o.Out
	}
	fmt.Fprintf(w, format+"\n", args...)
}
