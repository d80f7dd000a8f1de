package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/buildml/internal/ir"
)

// StartSession records the start of an ingestion and returns its row.
// Session IDs are UUIDv7, so they sort by start time.
//
// The row is written outside any open transaction: call it before Begin so
// a crashed ingestion still shows up as running.
func (s *Store) StartSession(ctx context.Context, traceName string, now time.Time) (ir.Session, error) {
	if s.tx != nil {
		return ir.Session{}, fmt.Errorf("start session: %w", ErrSessionOpen)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return ir.Session{}, fmt.Errorf("start session: %w", err)
	}

	sess := ir.Session{
		ID:        id.String(),
		TraceName: traceName,
		StartedAt: now.Unix(),
		Status:    ir.SessionRunning,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, trace_name, started_at, status) VALUES (?, ?, ?, ?)
	`, sess.ID, sess.TraceName, sess.StartedAt, string(sess.Status))
	if err != nil {
		return ir.Session{}, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}

// FinishSession records the outcome of an ingestion. Call it after Commit
// or Rollback.
func (s *Store) FinishSession(ctx context.Context, sess ir.Session) error {
	if s.tx != nil {
		return fmt.Errorf("finish session %s: %w", sess.ID, ErrSessionOpen)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET finished_at = ?, records = ?, status = ?, error = ?
		WHERE id = ?
	`, sess.FinishedAt, sess.Records, string(sess.Status), sess.Error, sess.ID)
	if err != nil {
		return fmt.Errorf("finish session %s: %w", sess.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session %s: %w", sess.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish session %s: %w", sess.ID, ErrNotFound)
	}
	return nil
}

// ReadSession reads one session by ID.
func (s *Store) ReadSession(ctx context.Context, id string) (ir.Session, error) {
	var sess ir.Session
	var status string
	err := s.q().QueryRowContext(ctx, `
		SELECT id, trace_name, started_at, finished_at, records, status, error
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.TraceName, &sess.StartedAt, &sess.FinishedAt, &sess.Records, &status, &sess.Error)
	if err != nil {
		if isNoRows(err) {
			return ir.Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return ir.Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	sess.Status = ir.SessionStatus(status)
	return sess, nil
}

// Sessions returns every recorded session, oldest first.
// Returns empty slice (not nil) if there are none.
func (s *Store) Sessions(ctx context.Context) ([]ir.Session, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT id, trace_name, started_at, finished_at, records, status, error
		FROM sessions
		ORDER BY started_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []ir.Session{}
	for rows.Next() {
		var sess ir.Session
		var status string
		if err := rows.Scan(&sess.ID, &sess.TraceName, &sess.StartedAt, &sess.FinishedAt, &sess.Records, &status, &sess.Error); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Status = ir.SessionStatus(status)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
