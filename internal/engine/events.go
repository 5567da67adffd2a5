package engine

import (
	"github.com/roach88/mixer/internal/clip"
	"github.com/roach88/mixer/internal/ir"
)

// EventType names what happened during a frame.
type EventType string

const (
	EventFrameBegin     EventType = "frame_begin"
	EventFrameEnd       EventType = "frame_end"
	EventRecordRejected EventType = "record_rejected"

	EventBlended      EventType = "blended"
	EventSampleFailed EventType = "sample_failed"

	EventTriggered     EventType = "triggered"
	EventTriggerFailed EventType = "trigger_failed"
	EventRearmed       EventType = "rearmed"

	EventRunStarted   EventType = "run_started"
	EventStepAdvanced EventType = "step_advanced"
	EventStepPending  EventType = "step_pending"
	EventRunCompleted EventType = "run_completed"
	EventRunCancelled EventType = "run_cancelled"
	EventRunFailed    EventType = "run_failed"
)

// Reason explains a re-arm or a cancellation.
type Reason string

const (
	// ReasonRemoved: the clip left the frame or the playhead moved before it.
	ReasonRemoved Reason = "removed"
	// ReasonRewound: the playhead moved backwards over a running clip.
	ReasonRewound Reason = "rewound"
	// ReasonSuperseded: a nested frame took over a run whose step was in flight.
	ReasonSuperseded Reason = "superseded"
	// ReasonBudget: the run exceeded the max steps quota.
	ReasonBudget Reason = "budget"
	// ReasonBeforeStart: the playhead is before the trigger's start.
	ReasonBeforeStart Reason = "before_start"
	// ReasonExited: the trigger's clip left the frame.
	ReasonExited Reason = "exited"
)

// Event is one observable effect of a frame evaluation.
//
// Cursor is meaningful for sequential events only: the step index the run
// is at after the event (for run_completed, the number of steps run).
type Event struct {
	Iteration uint64
	Time      float64
	Type      EventType
	Kind      clip.Kind
	Handle    clip.Handle
	Cursor    int
	Value     clip.Value
	Reason    Reason
	Err       error
}

// Canonical returns the event as an IR object for canonical encoding.
// Floats are rendered with ir.Float so the digest does not depend on a JSON
// float formatter.
func (e Event) Canonical() ir.IRObject {
	obj := ir.IRObject{
		"iteration": ir.IRInt(int64(e.Iteration)),
		"time":      ir.Float(e.Time),
		"type":      ir.IRString(string(e.Type)),
	}
	if e.Kind != clip.KindUnknown {
		obj["kind"] = ir.IRString(e.Kind.String())
	}
	if e.Handle != "" {
		obj["handle"] = ir.IRString(string(e.Handle))
	}
	if e.Kind == clip.KindSequential {
		obj["cursor"] = ir.IRInt(int64(e.Cursor))
	}
	if e.Type == EventBlended || e.Value != nil {
		obj["value"] = ir.Floats(e.Value)
	}
	if e.Reason != "" {
		obj["reason"] = ir.IRString(string(e.Reason))
	}
	if e.Err != nil {
		obj["error"] = ir.IRString(e.Err.Error())
	}
	return obj
}

// Observer receives events synchronously, in emission order.
// Observers run on the evaluating goroutine and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(ev).
func (f ObserverFunc) Observe(ev Event) { f(ev) }

// Observers fans an event out to each observer in order.
type Observers []Observer

// Observe implements Observer.
func (o Observers) Observe(ev Event) {
	for _, obs := range o {
		obs.Observe(ev)
	}
}

// EventLog is an Observer that keeps every event. Useful in tests and for
// trace rendering.
type EventLog struct {
	Events []Event
}

// Observe implements Observer.
func (l *EventLog) Observe(ev Event) {
	l.Events = append(l.Events, ev)
}

// Types returns the event types in order.
func (l *EventLog) Types() []EventType {
	out := make([]EventType, len(l.Events))
	for i, ev := range l.Events {
		out[i] = ev.Type
	}
	return out
}

// OfType returns the events of type typ in order.
func (l *EventLog) OfType(typ EventType) []Event {
	var out []Event
	for _, ev := range l.Events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// Reset drops all recorded events.
func (l *EventLog) Reset() {
	l.Events = nil
}
