package engine

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/mixer/internal/clip"
)

// RunState is the lifecycle state of a sequential run.
type RunState uint8

const (
	RunNotStarted RunState = iota
	RunRunning
	RunCompleted
	RunCancelled
)

func (s RunState) String() string {
	switch s {
	case RunNotStarted:
		return "not_started"
	case RunRunning:
		return "running"
	case RunCompleted:
		return "completed"
	case RunCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("RunState(%d)", uint8(s))
	}
}

// RunSnapshot is a read-only view of a live run.
type RunSnapshot struct {
	Handle            clip.Handle
	State             RunState
	Cursor            int
	CapturedIteration uint64
	Steps             int
}

// run is the resumable state of one sequential clip.
type run struct {
	handle   clip.Handle
	state    RunState
	cursor   int
	frame    int
	captured uint64
	lastTime float64
	steps    int
	inFlight bool
	seq      uint64
	quota    *QuotaEnforcer
}

// sequentialStrategy advances at most one step of each live run per frame.
type sequentialStrategy struct {
	mixEnv
	live     func() uint64
	maxSteps int

	runs map[clip.Handle]*run
	// finished remembers clips whose run ended while they stay on the
	// timeline, with the last time they were seen, so they are not restarted.
	finished map[clip.Handle]float64
	nextSeq  uint64
}

func newSequentialStrategy(env mixEnv, live func() uint64, maxSteps int) *sequentialStrategy {
	return &sequentialStrategy{
		mixEnv:   env,
		live:     live,
		maxSteps: maxSteps,
		runs:     make(map[clip.Handle]*run),
		finished: make(map[clip.Handle]float64),
	}
}

// Mix cancels runs whose clip is gone, then starts or advances a run for
// every present record in start order.
//
// If a step re-enters the driver, the nested frame owns every run from then
// on: the outer call discards the stale step's result and stops.
func (s *sequentialStrategy) Mix(records []sequentialRecord, t float64, iteration uint64) {
	present := make(map[clip.Handle]bool, len(records))
	for _, r := range records {
		if t >= r.Start {
			present[r.Handle] = true
		}
	}
	for _, rn := range s.ordered() {
		if !present[rn.handle] {
			s.cancel(rn, t, iteration, ReasonRemoved)
		}
	}
	for h := range s.finished {
		if !present[h] {
			delete(s.finished, h)
		}
	}

	for _, r := range records {
		if !present[r.Handle] {
			continue
		}
		if last, ok := s.finished[r.Handle]; ok {
			if t >= last {
				s.finished[r.Handle] = t
				continue
			}
			delete(s.finished, r.Handle)
		}

		rn := s.runs[r.Handle]
		switch {
		case rn == nil:
			rn = s.start(r.Handle)
		case rn.inFlight:
			prev := rn
			s.cancel(prev, t, iteration, ReasonSuperseded)
			rn = s.resume(prev)
		case t < rn.lastTime:
			s.cancel(rn, t, iteration, ReasonRewound)
			rn = s.start(r.Handle)
		}

		s.advance(rn, r, t, iteration)
		if s.live() != iteration {
			s.logger.Debug("sequential mix superseded",
				"iteration", iteration,
				"live", s.live(),
				"handle", r.Handle)
			return
		}
	}
}

// start registers a fresh run for h with its own step budget.
func (s *sequentialStrategy) start(h clip.Handle) *run {
	s.nextSeq++
	rn := &run{
		handle: h,
		state:  RunNotStarted,
		seq:    s.nextSeq,
	}
	if s.maxSteps > 0 {
		rn.quota = NewQuotaEnforcer(s.maxSteps)
	}
	s.runs[h] = rn
	return rn
}

// resume replaces a superseded run. The replacement picks up at the same
// step and keeps spending the same budget, so re-entry cannot reset it.
func (s *sequentialStrategy) resume(prev *run) *run {
	s.nextSeq++
	rn := &run{
		handle: prev.handle,
		state:  RunNotStarted,
		cursor: prev.cursor,
		frame:  prev.frame,
		steps:  prev.steps,
		seq:    s.nextSeq,
		quota:  prev.quota,
	}
	s.runs[rn.handle] = rn
	return rn
}

// advance invokes the step at the run's cursor and applies its result.
func (s *sequentialStrategy) advance(rn *run, r sequentialRecord, t float64, iteration uint64) {
	if rn.quota != nil {
		if err := rn.quota.Check(rn.handle); err != nil {
			s.logger.Warn("sequential run exceeded step budget",
				"handle", rn.handle,
				"iteration", iteration,
				"error", err)
			s.end(rn, RunCancelled, t)
			s.emitRun(EventRunCancelled, rn, t, iteration, ReasonBudget, err)
			return
		}
	}

	if rn.state == RunNotStarted {
		rn.state = RunRunning
		s.emitRun(EventRunStarted, rn, t, iteration, "", nil)
	}
	rn.captured = iteration
	rn.lastTime = t
	rn.steps++
	rn.inFlight = true

	sc := clip.NewStepContext(rn.handle, rn.cursor, rn.frame, t, iteration, s.live)
	result, err := guard(func() (clip.StepResult, error) {
		return r.step(sc)
	})
	rn.inFlight = false

	if rn.state == RunCancelled {
		// A nested frame cancelled or replaced the run while its step ran.
		s.logger.Debug("discarding stale step result",
			"handle", rn.handle,
			"iteration", iteration,
			"cursor", rn.cursor)
		return
	}
	if err == nil && result != clip.StepContinue && result != clip.StepPending && result != clip.StepComplete {
		err = fmt.Errorf("unknown step result %v", result)
	}
	if err != nil {
		s.logger.Error("sequential step failed",
			"handle", rn.handle,
			"iteration", iteration,
			"cursor", rn.cursor,
			"error", err)
		s.end(rn, RunCancelled, t)
		s.emitRun(EventRunFailed, rn, t, iteration, "", newCallbackError(ErrCodeStepFailed, rn.handle, iteration, err))
		return
	}

	switch result {
	case clip.StepContinue:
		rn.cursor++
		rn.frame = 0
		s.emitRun(EventStepAdvanced, rn, t, iteration, "", nil)
	case clip.StepPending:
		rn.frame++
		s.emitRun(EventStepPending, rn, t, iteration, "", nil)
	case clip.StepComplete:
		rn.cursor++
		s.end(rn, RunCompleted, t)
		s.emitRun(EventRunCompleted, rn, t, iteration, "", nil)
	}
}

// cancel ends a live run without a tombstone, so the clip starts over if it
// is still present.
func (s *sequentialStrategy) cancel(rn *run, t float64, iteration uint64, reason Reason) {
	rn.state = RunCancelled
	if s.runs[rn.handle] == rn {
		delete(s.runs, rn.handle)
	}
	s.logger.Debug("sequential run cancelled",
		"handle", rn.handle,
		"iteration", iteration,
		"captured", rn.captured,
		"reason", reason)
	s.emitRun(EventRunCancelled, rn, t, iteration, reason, nil)
}

// end discards a run that finished on its own and tombstones its clip.
func (s *sequentialStrategy) end(rn *run, state RunState, t float64) {
	rn.state = state
	if s.runs[rn.handle] == rn {
		delete(s.runs, rn.handle)
	}
	s.finished[rn.handle] = t
}

func (s *sequentialStrategy) emitRun(typ EventType, rn *run, t float64, iteration uint64, reason Reason, err error) {
	s.emit(Event{
		Iteration: iteration,
		Time:      t,
		Type:      typ,
		Kind:      clip.KindSequential,
		Handle:    rn.handle,
		Cursor:    rn.cursor,
		Reason:    reason,
		Err:       err,
	})
}

// ordered returns the live runs in the order they were started.
func (s *sequentialStrategy) ordered() []*run {
	out := make([]*run, 0, len(s.runs))
	for _, rn := range s.runs {
		out = append(out, rn)
	}
	slices.SortFunc(out, func(a, b *run) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

func (s *sequentialStrategy) snapshot() []RunSnapshot {
	runs := s.ordered()
	out := make([]RunSnapshot, len(runs))
	for i, rn := range runs {
		out[i] = RunSnapshot{
			Handle:            rn.handle,
			State:             rn.state,
			Cursor:            rn.cursor,
			CapturedIteration: rn.captured,
			Steps:             rn.steps,
		}
	}
	return out
}
