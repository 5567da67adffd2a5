// Package track describes timelines as data and plays the host's side of
// the engine contract for them.
//
// A Definition lists clips with their kind, placement and payload. It is
// written in CUE (checked against an embedded schema), YAML or JSON.
// Compile turns it into a Host: a small, deterministic stand-in for an
// animation runtime that reports which clips overlap the playhead, keeps the
// blended output and logs every side effect the clips perform.
package track
