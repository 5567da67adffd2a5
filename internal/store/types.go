package store

import (
	"errors"

	"github.com/roach88/mixer/internal/ir"
)

// ErrSessionNotFound is returned when a session id has no row.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when writing a session id that is already
// recorded.
var ErrSessionExists = errors.New("session already exists")

// Session is a recorded playback of one track.
type Session struct {
	ID            string
	TrackName     string
	TrackJSON     string
	TrackHash     string
	FrameDuration float64
	MaxSteps      int
	EngineVersion string
	TraceVersion  string
}

// Frame is one evaluated frame of a session.
type Frame struct {
	SessionID  string
	Iteration  uint64
	Time       float64
	Digest     string
	EventCount int
}

// EventRecord is one stored event. Payload is the event's canonical IR
// object; the other columns duplicate its fields for querying.
type EventRecord struct {
	SessionID string
	Iteration uint64
	Index     int
	Type      string
	Kind      string
	Handle    string
	Cursor    int
	Payload   ir.IRObject
}
