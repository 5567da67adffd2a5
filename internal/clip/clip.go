package clip

// Handle is the opaque identity of a host-owned clip instance.
// The engine never interprets it; two records are the same clip iff their
// handles are equal.
type Handle string

// Behaviour is the sealed per-kind payload of a clip.
// Only Scrubbable, Triggerable and Sequential implement it.
type Behaviour interface {
	Kind() Kind
	behaviour()
}

// Scrubbable is evaluable at any local time without side effects.
type Scrubbable struct {
	// Sample returns the clip's value at local time (playhead minus start).
	Sample func(local float64) Value
}

func (Scrubbable) Kind() Kind { return KindScrubbable }
func (Scrubbable) behaviour() {}

// Triggerable fires a one-shot side effect when the playhead enters its range.
type Triggerable struct {
	Fire func() error
}

func (Triggerable) Kind() Kind { return KindTriggerable }
func (Triggerable) behaviour() {}

// Sequential runs step by step in forward playhead order.
type Sequential struct {
	// Step executes the step at sc.Cursor(). It is invoked once per frame
	// while the run is live.
	Step func(sc *StepContext) (StepResult, error)
}

func (Sequential) Kind() Kind { return KindSequential }
func (Sequential) behaviour() {}

// Clip is one clip instance overlapping the playhead this frame.
type Clip struct {
	Handle Handle

	// Start is the playhead time, in seconds, at which the clip begins.
	Start float64

	// Weight is the normalized blend weight in [0,1] from the host's
	// mixing graph. Only scrubbable clips use it.
	Weight float64

	Behaviour Behaviour
}

// Kind returns the kind of the clip's behaviour, or KindUnknown when the
// behaviour is missing.
func (c Clip) Kind() Kind {
	if c.Behaviour == nil {
		return KindUnknown
	}
	return c.Behaviour.Kind()
}
