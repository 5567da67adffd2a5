// Package harness runs timeline scenarios against the mixer engine.
//
// A scenario names a track, the playhead times to evaluate and assertions
// over the resulting trace, host log and output.
//
// # Scenario Format
//
//	name: chime_once
//	description: "The chime fires once when the playhead reaches it"
//	track_file: ../tracks/demo.cue
//	times: [0, 1, 2, 3]
//	assertions:
//	  - type: event_count
//	    event: triggered
//	    handle: chime
//	    count: 1
//	  - type: output_at
//	    time: 2
//	    value: [1]
//
// A scenario carries either track (an inline definition) or track_file (a
// CUE file, relative to the scenario). Instead of times it may give a range,
// which is expanded at the track's frame rate:
//
//	range: {from: 0, to: 3}
//
// # Assertion Types
//
//   - event_count: an event type, optionally for one handle, occurs exactly count times
//   - event_at: an event type, optionally for one handle, occurs at a playhead time
//   - event_order: entries of the form "type" or "type:handle" first occur in order
//   - output_at: the blended output after the frame at time equals value within tolerance
//   - live_runs: count sequential runs are still in progress after the last frame
//   - log_contains: the host log contains entry
//
// # Deterministic Testing
//
// Every scenario runs on a fresh driver with a testutil.DeterministicClock,
// so iterations start at 1 and traces are identical across runs. Golden
// traces are stored in testdata/golden, one event per line:
//
//	iter=3 t=2 triggered handle=chime
package harness
