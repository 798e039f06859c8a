package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"focusflow/backend/internal/model"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Insert(ctx context.Context, session *model.FocusSession) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO focus_sessions (
			id, user_id, phase, duration_seconds, cycle, completed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.Phase,
		session.DurationSeconds,
		session.Cycle,
		session.Completed,
		session.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.FocusSession, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, phase, duration_seconds, cycle, completed, created_at
		 FROM focus_sessions
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.FocusSession, 0, limit)
	for rows.Next() {
		session, scanErr := scanFocusSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// CountCompletedWork returns the number of completed work sessions recorded on
// the given UTC day (YYYY-MM-DD).
func (r *SessionRepository) CountCompletedWork(ctx context.Context, userID, day string) (int, error) {
	var count int
	err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM focus_sessions
		 WHERE user_id = ? AND phase = 'work' AND completed = 1
		   AND substr(created_at, 1, 10) = ?`,
		userID,
		day,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completed work: %w", err)
	}
	return count, nil
}

// FocusSecondsOn sums completed work seconds recorded on the given UTC day.
func (r *SessionRepository) FocusSecondsOn(ctx context.Context, userID, day string) (int, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(
		ctx,
		`SELECT SUM(duration_seconds) FROM focus_sessions
		 WHERE user_id = ? AND phase = 'work' AND completed = 1
		   AND substr(created_at, 1, 10) = ?`,
		userID,
		day,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum focus seconds: %w", err)
	}
	return int(total.Int64), nil
}

// CompletedWorkDays returns the distinct UTC days with at least one completed
// work session, newest first.
func (r *SessionRepository) CompletedWorkDays(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT DISTINCT substr(created_at, 1, 10) AS day
		 FROM focus_sessions
		 WHERE user_id = ? AND phase = 'work' AND completed = 1
		 ORDER BY day DESC
		 LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list completed days: %w", err)
	}
	defer rows.Close()

	days := make([]string, 0, limit)
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan completed day: %w", err)
		}
		days = append(days, day)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed days: %w", err)
	}

	return days, nil
}

func scanFocusSession(s scanner) (*model.FocusSession, error) {
	session := model.FocusSession{}
	var createdAt string
	err := s.Scan(
		&session.ID,
		&session.UserID,
		&session.Phase,
		&session.DurationSeconds,
		&session.Cycle,
		&session.Completed,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	parsedCreatedAt, parseErr := parseTimestamp(createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parse session created_at: %w", parseErr)
	}
	session.CreatedAt = parsedCreatedAt

	return &session, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}
