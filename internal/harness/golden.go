package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// FormatTrace renders a trace in the golden text format, one event per
// line with a trailing newline.
func FormatTrace(trace []TraceEvent) []byte {
	var buf bytes.Buffer
	for _, event := range trace {
		buf.WriteString(event.String())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check assertions; the golden
// comparison itself fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, FormatTrace(result.Trace))
}
