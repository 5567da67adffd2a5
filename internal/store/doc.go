// Package store provides SQLite-backed storage for recorded playback
// sessions.
//
// A session records the track it played and, for every frame, the playhead
// time, the events the driver emitted and a digest of those events:
//   - Sessions: track snapshot (canonical JSON + hash) and driver settings
//   - Frames: iteration, time, event count and frame digest
//   - Events: one row per emitted event with its canonical payload
//
// # Determinism
//
//   - Frames are keyed by iteration, the driver's logical counter; wall
//     time is never stored or used for ordering
//   - Reads order by iteration ASC, idx ASC
//   - Payloads and digests use RFC 8785 canonical JSON (internal/ir), so a
//     replay of the same track and times reproduces every digest
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
