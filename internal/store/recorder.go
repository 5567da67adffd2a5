package store

import (
	"context"
	"fmt"

	"github.com/roach88/mixer/internal/engine"
	"github.com/roach88/mixer/internal/ir"
	"github.com/roach88/mixer/internal/track"
)

// NewSession snapshots def into a session record.
func NewSession(id string, def *track.Definition, frameDuration float64, maxSteps int) (Session, error) {
	data, err := def.JSON()
	if err != nil {
		return Session{}, fmt.Errorf("encode track: %w", err)
	}
	return Session{
		ID:            id,
		TrackName:     def.Name,
		TrackJSON:     string(data),
		TrackHash:     ir.TrackHash(data),
		FrameDuration: frameDuration,
		MaxSteps:      maxSteps,
		EngineVersion: ir.EngineVersion,
		TraceVersion:  ir.TraceVersion,
	}, nil
}

// DigestFrame hashes one frame's events in emission order.
func DigestFrame(iteration uint64, events []engine.Event) (string, error) {
	objs := make([]ir.IRObject, len(events))
	for i, ev := range events {
		objs[i] = ev.Canonical()
	}
	return ir.FrameDigest(iteration, objs)
}

// frameCollector groups events by iteration and hands a frame over at its
// frame_end. A step that re-enters the driver closes the nested frame
// before the outer one, so frames may complete out of iteration order.
type frameCollector struct {
	pending map[uint64][]engine.Event
	onFrame func(iteration uint64, t float64, events []engine.Event)
}

func newFrameCollector(onFrame func(uint64, float64, []engine.Event)) *frameCollector {
	return &frameCollector{
		pending: make(map[uint64][]engine.Event),
		onFrame: onFrame,
	}
}

func (c *frameCollector) Observe(ev engine.Event) {
	c.pending[ev.Iteration] = append(c.pending[ev.Iteration], ev)
	if ev.Type != engine.EventFrameEnd {
		return
	}
	events := c.pending[ev.Iteration]
	delete(c.pending, ev.Iteration)
	c.onFrame(ev.Iteration, ev.Time, events)
}

// Recorder is an engine.Observer that writes every completed frame of a
// session to the store.
//
// Observe cannot return errors, so the first write failure is kept and
// returned by Err; later frames are dropped.
type Recorder struct {
	ctx       context.Context
	store     *Store
	sessionID string
	collector *frameCollector
	frames    int
	err       error
}

// NewRecorder creates a recorder for an existing session.
func NewRecorder(ctx context.Context, s *Store, sessionID string) *Recorder {
	r := &Recorder{
		ctx:       ctx,
		store:     s,
		sessionID: sessionID,
	}
	r.collector = newFrameCollector(r.record)
	return r
}

// Observe implements engine.Observer.
func (r *Recorder) Observe(ev engine.Event) {
	r.collector.Observe(ev)
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	return r.err
}

// Frames returns the number of frames written.
func (r *Recorder) Frames() int {
	return r.frames
}

func (r *Recorder) record(iteration uint64, t float64, events []engine.Event) {
	if r.err != nil {
		return
	}

	digest, err := DigestFrame(iteration, events)
	if err != nil {
		r.err = fmt.Errorf("record frame %d: %w", iteration, err)
		return
	}

	records := make([]EventRecord, len(events))
	for i, ev := range events {
		rec := EventRecord{
			SessionID: r.sessionID,
			Iteration: iteration,
			Index:     i,
			Type:      string(ev.Type),
			Handle:    string(ev.Handle),
			Cursor:    ev.Cursor,
			Payload:   ev.Canonical(),
		}
		if ev.Kind.Valid() {
			rec.Kind = ev.Kind.String()
		}
		records[i] = rec
	}

	frame := Frame{
		SessionID:  r.sessionID,
		Iteration:  iteration,
		Time:       t,
		Digest:     digest,
		EventCount: len(events),
	}
	if err := r.store.WriteFrame(r.ctx, frame, records); err != nil {
		r.err = err
		return
	}
	r.frames++
}
