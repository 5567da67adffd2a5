package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// timeEpsilon is the tolerance used to match playhead times.
const timeEpsilon = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, event)
		}
	}

	return buf.String()
}

func describe(event, handle string) string {
	if handle == "" {
		return event
	}
	return event + ":" + handle
}

// assertEventCount checks that the event occurs exactly Count times.
func assertEventCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Matches(assertion.Event, assertion.Handle) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, describe(assertion.Event, assertion.Handle)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventAt checks that the event occurs in a frame at Time.
func assertEventAt(trace []TraceEvent, assertion Assertion) error {
	var seen []string
	for _, event := range trace {
		if !event.Matches(assertion.Event, assertion.Handle) {
			continue
		}
		if math.Abs(event.Time-*assertion.Time) <= timeEpsilon {
			return nil
		}
		seen = append(seen, fmt.Sprintf("%v", event.Time))
	}

	actual := "never occurred"
	if len(seen) > 0 {
		actual = "occurred at t=" + strings.Join(seen, ", ")
	}
	return &AssertionError{
		Type:     AssertEventAt,
		Expected: fmt.Sprintf("%s at t=%v", describe(assertion.Event, assertion.Handle), *assertion.Time),
		Actual:   actual,
		Trace:    trace,
	}
}

// assertEventOrder checks that the entries first occur in the given order.
// Entries need not be consecutive (intervening events are allowed).
func assertEventOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		for _, entry := range assertion.Events {
			typ, handle, _ := strings.Cut(entry, ":")
			if positions[entry] == 0 && event.Matches(typ, handle) {
				positions[entry] = i + 1 // 1-indexed for readability
			}
		}
	}

	for _, entry := range assertion.Events {
		if positions[entry] == 0 {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("all events present: %v", assertion.Events),
				Actual:   fmt.Sprintf("missing event: %s", entry),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Events); i++ {
		prev := assertion.Events[i-1]
		curr := assertion.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertOutputAt checks the output after the last frame evaluated at Time.
func assertOutputAt(outputs []FrameOutput, assertion Assertion) error {
	var found *FrameOutput
	for i := len(outputs) - 1; i >= 0; i-- {
		if math.Abs(outputs[i].Time-*assertion.Time) <= timeEpsilon {
			found = &outputs[i]
			break
		}
	}

	expected := fmt.Sprintf("output %s at t=%v", formatValue(assertion.Value), *assertion.Time)
	if found == nil {
		return &AssertionError{
			Type:     AssertOutputAt,
			Expected: expected,
			Actual:   "no frame evaluated at that time",
		}
	}
	if !valuesClose(found.Value, assertion.Value, assertion.Tolerance) {
		return &AssertionError{
			Type:     AssertOutputAt,
			Expected: expected,
			Actual:   fmt.Sprintf("output %s (iteration %d)", formatValue(found.Value), found.Iteration),
		}
	}
	return nil
}

func valuesClose(actual, expected []float64, tolerance float64) bool {
	if tolerance == 0 {
		tolerance = timeEpsilon
	}
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if math.Abs(actual[i]-expected[i]) > tolerance {
			return false
		}
	}
	return true
}

func assertLiveRuns(result *Result, assertion Assertion) error {
	if result.LiveRuns != assertion.Count {
		return &AssertionError{
			Type:     AssertLiveRuns,
			Expected: fmt.Sprintf("%d live runs", assertion.Count),
			Actual:   fmt.Sprintf("%d live runs", result.LiveRuns),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertLogContains(log []string, assertion Assertion) error {
	if slices.Contains(log, assertion.Entry) {
		return nil
	}
	return &AssertionError{
		Type:     AssertLogContains,
		Expected: fmt.Sprintf("log entry %q", assertion.Entry),
		Actual:   fmt.Sprintf("log %v", log),
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEventCount:
			err = assertEventCount(result.Trace, assertion)
		case AssertEventAt:
			err = assertEventAt(result.Trace, assertion)
		case AssertEventOrder:
			err = assertEventOrder(result.Trace, assertion)
		case AssertOutputAt:
			err = assertOutputAt(result.Outputs, assertion)
		case AssertLiveRuns:
			err = assertLiveRuns(result, assertion)
		case AssertLogContains:
			err = assertLogContains(result.Log, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
