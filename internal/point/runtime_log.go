package point

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RuntimeLog records pump on/off sessions.
//
// The daily circulation quota consumed by the PV evaluator is computed
// from this log: minutes the pump has already run today count against
// the quota.
type RuntimeLog interface {
	// RecordStart opens a session. An already-open session is closed
	// first (a crash can leave one dangling).
	RecordStart(ctx context.Context, source string, at time.Time) error

	// RecordStop closes the open session, if any.
	RecordStop(ctx context.Context, at time.Time) error

	// MinutesSince returns pump runtime in minutes between from and now,
	// including the still-open session if one exists.
	MinutesSince(ctx context.Context, from, now time.Time) (float64, error)
}

// SQLiteRuntimeLog implements RuntimeLog on the pump_runtime table.
type SQLiteRuntimeLog struct {
	db *sql.DB
}

// NewSQLiteRuntimeLog creates a runtime log backed by the given database.
func NewSQLiteRuntimeLog(db *sql.DB) *SQLiteRuntimeLog {
	return &SQLiteRuntimeLog{db: db}
}

// RecordStart opens a session.
func (l *SQLiteRuntimeLog) RecordStart(ctx context.Context, source string, at time.Time) error {
	// Close any dangling open session at the same instant; overlapping
	// sessions would double-count runtime.
	if err := l.RecordStop(ctx, at); err != nil {
		return err
	}

	_, err := l.db.ExecContext(ctx,
		"INSERT INTO pump_runtime (source, started_at) VALUES (?, ?)",
		source,
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording pump start: %w", err)
	}
	return nil
}

// RecordStop closes the open session, if any.
func (l *SQLiteRuntimeLog) RecordStop(ctx context.Context, at time.Time) error {
	_, err := l.db.ExecContext(ctx,
		"UPDATE pump_runtime SET ended_at = ? WHERE ended_at IS NULL",
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording pump stop: %w", err)
	}
	return nil
}

// MinutesSince returns pump runtime in minutes between from and now.
func (l *SQLiteRuntimeLog) MinutesSince(ctx context.Context, from, now time.Time) (float64, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT started_at, ended_at FROM pump_runtime
		WHERE started_at >= ? OR ended_at IS NULL OR ended_at >= ?
	`,
		from.UTC().Format(time.RFC3339Nano),
		from.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("querying pump runtime: %w", err)
	}
	defer rows.Close()

	var total time.Duration
	for rows.Next() {
		var startedStr string
		var endedStr sql.NullString
		if err := rows.Scan(&startedStr, &endedStr); err != nil {
			return 0, fmt.Errorf("scanning runtime row: %w", err)
		}

		started, err := time.Parse(time.RFC3339Nano, startedStr)
		if err != nil {
			continue
		}
		ended := now
		if endedStr.Valid {
			if parsed, err := time.Parse(time.RFC3339Nano, endedStr.String); err == nil {
				ended = parsed
			}
		}

		// Clamp the session to [from, now].
		if started.Before(from) {
			started = from
		}
		if ended.After(now) {
			ended = now
		}
		if ended.After(started) {
			total += ended.Sub(started)
		}
	}

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating runtime rows: %w", err)
	}
	return total.Minutes(), nil
}
