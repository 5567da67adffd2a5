package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReadSession returns the session with the given id, or ErrSessionNotFound.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, track_name, track_json, track_hash, frame_duration, max_steps, engine_version, trace_version
		FROM sessions
		WHERE id = ?
	`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// ListSessions returns every session ordered by id. Session ids are
// UUIDv7, so this is creation order.
//
// Returns an empty slice (not nil) if the store holds no sessions.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, track_name, track_json, track_hash, frame_duration, max_steps, engine_version, trace_version
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadFrames returns the frames of a session ordered by iteration.
func (s *Store) ReadFrames(ctx context.Context, sessionID string) ([]Frame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, iteration, time, digest, event_count
		FROM frames
		WHERE session_id = ?
		ORDER BY iteration ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	frames := []Frame{}
	for rows.Next() {
		var f Frame
		var iteration int64
		if err := rows.Scan(&f.SessionID, &iteration, &f.Time, &f.Digest, &f.EventCount); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		f.Iteration = uint64(iteration)
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

// ReadEvents returns the events of a session ordered by iteration, then by
// emission order within the frame.
func (s *Store) ReadEvents(ctx context.Context, sessionID string) ([]EventRecord, error) {
	return s.queryEvents(ctx, `
		SELECT session_id, iteration, idx, type, kind, handle, cursor, payload
		FROM events
		WHERE session_id = ?
		ORDER BY iteration ASC, idx ASC
	`, sessionID)
}

// ReadHandleEvents returns the events of one clip in a session, in the same
// order as ReadEvents.
func (s *Store) ReadHandleEvents(ctx context.Context, sessionID, handle string) ([]EventRecord, error) {
	return s.queryEvents(ctx, `
		SELECT session_id, iteration, idx, type, kind, handle, cursor, payload
		FROM events
		WHERE session_id = ? AND handle = ?
		ORDER BY iteration ASC, idx ASC
	`, sessionID, handle)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []EventRecord{}
	for rows.Next() {
		var ev EventRecord
		var iteration int64
		var payload string
		if err := rows.Scan(&ev.SessionID, &iteration, &ev.Index, &ev.Type, &ev.Kind, &ev.Handle, &ev.Cursor, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Iteration = uint64(iteration)
		ev.Payload, err = unmarshalPayload(payload)
		if err != nil {
			return nil, fmt.Errorf("event %d/%d: %w", ev.Iteration, ev.Index, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	err := row.Scan(
		&sess.ID,
		&sess.TrackName,
		&sess.TrackJSON,
		&sess.TrackHash,
		&sess.FrameDuration,
		&sess.MaxSteps,
		&sess.EngineVersion,
		&sess.TraceVersion,
	)
	return sess, err
}
