package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"contribstats/collector"
)

// SaveContributions stores one run's contributions as a single atomic
// batch of inserts. The contributions collection is append-only: each
// run adds one row per active repository, stamped with the run time.
func (db *DB) SaveContributions(ctx context.Context, recordedAt time.Time, contributions []collector.Contribution) error {
	if len(contributions) == 0 {
		return nil
	}

	safeLogInfo("Storing contributions", zap.Int("count", len(contributions)))
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO contributions (
			recorded_at, repo, is_fork, is_private,
			commits_total, commits_authored,
			issues_total, issues_authored,
			prs_total_open, prs_total_merged,
			prs_authored_open, prs_authored_merged
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare contribution insert statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range contributions {
		if c.Repo == "" {
			return fmt.Errorf("%w: contribution repo identifier cannot be empty", ErrInvalidInput)
		}
		if _, err := stmt.ExecContext(ctx,
			recordedAt.UTC(), c.Repo, c.IsFork, c.IsPrivate,
			c.CommitsCount.Total, c.CommitsCount.Authored,
			c.IssuesCount.Total, c.IssuesCount.Authored,
			c.PullRequestCount.Total.Open, c.PullRequestCount.Total.Merged,
			c.PullRequestCount.Authored.Open, c.PullRequestCount.Authored.Merged,
		); err != nil {
			return fmt.Errorf("failed to insert contribution for %s: %w", c.Repo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", ErrTransactionFailed, err)
	}

	safeLogInfo("Successfully stored contributions", zap.Int("count", len(contributions)))
	return nil
}
