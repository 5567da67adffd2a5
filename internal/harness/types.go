package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/mixer/internal/clip"
	"github.com/roach88/mixer/internal/engine"
	"github.com/roach88/mixer/internal/ir"
)

// TraceEvent is one engine event as recorded by the harness.
type TraceEvent struct {
	Iteration uint64    `json:"iteration"`
	Time      float64   `json:"time"`
	Type      string    `json:"type"`
	Handle    string    `json:"handle,omitempty"`
	Cursor    *int      `json:"cursor,omitempty"`
	Value     []float64 `json:"value,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func traceEvent(ev engine.Event) TraceEvent {
	te := TraceEvent{
		Iteration: ev.Iteration,
		Time:      ev.Time,
		Type:      string(ev.Type),
		Handle:    string(ev.Handle),
		Reason:    string(ev.Reason),
	}
	if ev.Kind == clip.KindSequential {
		cursor := ev.Cursor
		te.Cursor = &cursor
	}
	if ev.Type == engine.EventBlended || ev.Value != nil {
		te.Value = ev.Value.Clone()
		if te.Value == nil {
			te.Value = []float64{}
		}
	}
	if ev.Err != nil {
		te.Error = ev.Err.Error()
	}
	return te
}

// Matches reports whether the event has type typ and, when handle is set,
// that handle.
func (e TraceEvent) Matches(typ, handle string) bool {
	return e.Type == typ && (handle == "" || e.Handle == handle)
}

// String renders the event as one golden trace line.
func (e TraceEvent) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "iter=%d t=%s %s", e.Iteration, ir.Float(e.Time), e.Type)
	if e.Handle != "" {
		fmt.Fprintf(&b, " handle=%s", e.Handle)
	}
	if e.Cursor != nil {
		fmt.Fprintf(&b, " cursor=%d", *e.Cursor)
	}
	if e.Value != nil {
		b.WriteString(" value=")
		b.WriteString(formatValue(e.Value))
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, " reason=%s", e.Reason)
	}
	if e.Error != "" {
		fmt.Fprintf(&b, " error=%q", e.Error)
	}
	return b.String()
}

func formatValue(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = string(ir.Float(f))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// FrameOutput is the blended output after one frame.
type FrameOutput struct {
	Iteration uint64    `json:"iteration"`
	Time      float64   `json:"time"`
	Value     []float64 `json:"value"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds every event except frame markers, in emission order.
	Trace []TraceEvent `json:"trace"`

	// Outputs holds the host output after each frame.
	Outputs []FrameOutput `json:"outputs"`

	// Log is the host's side-effect log.
	Log []string `json:"log"`

	// LiveRuns is the number of sequential runs in progress after the last
	// frame.
	LiveRuns int `json:"live_runs"`

	// Rejections holds the clip rejections returned by Evaluate.
	Rejections []string `json:"rejections,omitempty"`

	// Errors holds assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Outputs: []FrameOutput{},
		Log:     []string{},
		Errors:  []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
