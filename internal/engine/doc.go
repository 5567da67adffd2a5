// Package engine implements the timeline behaviour mixer.
//
// A Driver is handed the playhead time and the clips overlapping it once per
// rendered frame. Evaluate stamps the frame with a fresh iteration, groups
// the clips by kind, sorts each group by start time and dispatches the
// groups to their strategies in a fixed order:
//
//  1. Scrubbable clips are blended into one output value from scratch.
//  2. Triggerable clips fire once when the playhead enters them.
//  3. Sequential clips advance one step of a resumable run per frame.
//
// Scrubbable mixing is pure. Triggerable and sequential mixing keep
// bookkeeping keyed by clip handle across frames.
//
// Determinism: given the same clips, times and iteration values, a Driver
// produces the same host mutations and the same event stream. Nothing in
// the engine reads the wall clock or iterates a map without sorting.
//
// Concurrency: a Driver is single-threaded and owned by the host's frame
// loop. The only re-entrancy it supports is a sequential step calling
// Evaluate on the same goroutine, which supersedes the step's own run.
//
// Failures of host callbacks never abort a frame. They are logged with
// slog, reported as events, and confined to the clip that raised them.
package engine
