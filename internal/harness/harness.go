package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/mixer/internal/engine"
	"github.com/roach88/mixer/internal/testutil"
	"github.com/roach88/mixer/internal/track"
)

// Harness is the scenario execution engine.
// It drives one compiled track with a deterministic clock.
type Harness struct {
	host   *track.Host
	driver *engine.Driver
	clock  *testutil.DeterministicClock
	events *engine.EventLog
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario gets a fresh host, driver and clock. Clip rejections do not
// abort the run; they are kept in Result.Rejections and show up in the trace
// as record_rejected events.
func Run(scenario *Scenario) (*Result, error) {
	def, err := loadTrack(scenario)
	if err != nil {
		return nil, err
	}
	host, err := track.Compile(def)
	if err != nil {
		return nil, fmt.Errorf("failed to compile track: %w", err)
	}

	h := &Harness{
		host:   host,
		clock:  testutil.NewDeterministicClock(),
		events: &engine.EventLog{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	opts := append(host.DriverOptions(),
		engine.WithClock(h.clock),
		engine.WithObserver(h.events),
		engine.WithLogger(h.logger),
	)
	if scenario.FrameDuration > 0 {
		opts = append(opts, engine.WithFrameDuration(scenario.FrameDuration))
	}
	if scenario.MaxSteps > 0 {
		opts = append(opts, engine.WithMaxSteps(scenario.MaxSteps))
	}
	h.driver = engine.New(opts...)

	result := NewResult()
	h.execute(scenarioTimes(scenario, host), result)

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func loadTrack(scenario *Scenario) (*track.Definition, error) {
	if scenario.Track != nil {
		return scenario.Track, nil
	}
	def, err := track.LoadCUE(scenario.TrackFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load track: %w", err)
	}
	return def, nil
}

func scenarioTimes(scenario *Scenario, host *track.Host) []float64 {
	if len(scenario.Times) > 0 {
		return scenario.Times
	}
	return host.Times(scenario.Range.From, scenario.Range.To)
}

// execute evaluates one frame per time and fills the result.
func (h *Harness) execute(times []float64, result *Result) {
	for _, t := range times {
		if err := h.driver.Evaluate(t, h.host.Active(t)); err != nil {
			result.Rejections = append(result.Rejections, err.Error())
		}
		result.Outputs = append(result.Outputs, FrameOutput{
			Iteration: h.driver.Iteration(),
			Time:      t,
			Value:     h.host.Output(),
		})
		h.logger.Debug("frame evaluated", "iteration", h.driver.Iteration(), "time", t)
	}

	for _, ev := range h.events.Events {
		if ev.Type == engine.EventFrameBegin || ev.Type == engine.EventFrameEnd {
			continue
		}
		result.Trace = append(result.Trace, traceEvent(ev))
	}
	result.Log = h.host.Log()
	result.LiveRuns = len(h.driver.LiveRuns())
}
