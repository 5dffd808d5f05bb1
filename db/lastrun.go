package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LastRun is the singleton checkpoint: the end of the last successful
// collection window and how the run went.
type LastRun struct {
	LastRun    time.Time `db:"last_run"`
	TookMS     float64   `db:"took_ms"`
	Successful bool      `db:"successful"`
}

// FetchLastRun retrieves the checkpoint. ErrNoCheckpoint is returned
// when no run has been recorded yet.
func (db *DB) FetchLastRun(ctx context.Context) (*LastRun, error) {
	query := `
		SELECT last_run, took_ms, successful
		FROM last_run
		WHERE id = 1
	`

	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return nil, err
	}

	var lastRun LastRun
	if err := stmt.GetContext(ctx, &lastRun); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoCheckpoint
		}
		return nil, fmt.Errorf("failed to fetch last-run checkpoint: %w", err)
	}

	safeLogInfo("Fetched last-run checkpoint",
		zap.Time("last_run", lastRun.LastRun),
		zap.Bool("successful", lastRun.Successful))
	return &lastRun, nil
}

// UpdateLastRun upserts the singleton checkpoint row
func (db *DB) UpdateLastRun(ctx context.Context, lastRun LastRun) error {
	if lastRun.LastRun.IsZero() {
		return fmt.Errorf("%w: last_run timestamp cannot be zero", ErrInvalidInput)
	}

	query := `
		INSERT INTO last_run (id, last_run, took_ms, successful)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			last_run = EXCLUDED.last_run,
			took_ms = EXCLUDED.took_ms,
			successful = EXCLUDED.successful
	`

	if _, err := db.conn.ExecContext(ctx, query,
		lastRun.LastRun.UTC(), lastRun.TookMS, lastRun.Successful,
	); err != nil {
		return fmt.Errorf("failed to update last-run checkpoint: %w", err)
	}

	safeLogInfo("Updated last-run checkpoint", zap.Time("last_run", lastRun.LastRun))
	return nil
}
