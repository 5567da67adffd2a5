package store

import (
	"context"
	"fmt"
)

// WriteSession inserts a session record. A session id is recorded once;
// writing an id that already exists returns ErrSessionExists and leaves the
// recorded session untouched.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, track_name, track_json, track_hash, frame_duration, max_steps, engine_version, trace_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.TrackName,
		sess.TrackJSON,
		sess.TrackHash,
		sess.FrameDuration,
		sess.MaxSteps,
		sess.EngineVersion,
		sess.TraceVersion,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("write session %s: %w", sess.ID, ErrSessionExists)
	}
	return nil
}

// WriteFrame inserts a frame and its events in one transaction.
//
// The session must exist (foreign key constraint). Events are stored with
// their position in the slice as idx.
func (s *Store) WriteFrame(ctx context.Context, frame Frame, events []EventRecord) error {
	iteration, err := toSQLIteration(frame.Iteration)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write frame: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO frames
		(session_id, iteration, time, digest, event_count)
		VALUES (?, ?, ?, ?, ?)
	`,
		frame.SessionID,
		iteration,
		frame.Time,
		frame.Digest,
		len(events),
	)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", frame.Iteration, err)
	}

	for i, ev := range events {
		payload, err := marshalPayload(ev.Payload)
		if err != nil {
			return fmt.Errorf("write frame %d: event %d: %w", frame.Iteration, i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events
			(session_id, iteration, idx, type, kind, handle, cursor, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			frame.SessionID,
			iteration,
			i,
			ev.Type,
			ev.Kind,
			ev.Handle,
			ev.Cursor,
			payload,
		)
		if err != nil {
			return fmt.Errorf("write frame %d: event %d: %w", frame.Iteration, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write frame %d: commit: %w", frame.Iteration, err)
	}
	return nil
}
