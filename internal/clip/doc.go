// Package clip defines the host-facing data model of the timeline mixer.
//
// A host reports, every frame, the clips overlapping the playhead. Each clip
// carries exactly one Behaviour variant:
//
//   - Scrubbable: sampled at any local time, blended by weight
//   - Triggerable: fires a one-shot callback on entry to its range
//   - Sequential: stepped forward once per frame until it completes
//
// The set is closed. Behaviour is sealed so the engine can dispatch with an
// exhaustive type switch.
//
// This package imports nothing internal. engine, track and harness all build
// on it.
package clip
