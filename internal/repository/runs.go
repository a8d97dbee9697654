package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"confidentpicks/automation/internal/models"

	"github.com/jackc/pgx/v5"
)

// RunRepository records sync runs
type RunRepository struct {
	db *Database
}

// Start inserts a run row
func (r *RunRepository) Start(ctx context.Context, run *models.SyncRun) error {
	start := time.Now()
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO sync_runs (run_id, kind, started_at) VALUES ($1, $2, $3)`,
		run.RunID, run.Kind, run.StartedAt,
	)
	r.db.observe("insert", "sync_runs", start, err)

	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// Finish stores the outcome of a run
func (r *RunRepository) Finish(ctx context.Context, run *models.SyncRun) error {
	start := time.Now()

	var counters interface{}
	if len(run.Counters) > 0 {
		counters = string(run.Counters)
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE sync_runs
		SET finished_at = $2, counters = $3::jsonb, error = $4
		WHERE run_id = $1
	`, run.RunID, run.FinishedAt, counters, run.Error)
	r.db.observe("update", "sync_runs", start, err)

	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run not found: run_id=%s", run.RunID)
	}
	return nil
}

// GetByID retrieves a run
func (r *RunRepository) GetByID(ctx context.Context, runID string) (*models.SyncRun, error) {
	var run models.SyncRun
	var counters []byte
	err := r.db.Pool.QueryRow(ctx, `
		SELECT run_id::text, kind, started_at, finished_at, counters, error
		FROM sync_runs
		WHERE run_id = $1
	`, runID).Scan(&run.RunID, &run.Kind, &run.StartedAt, &run.FinishedAt, &counters, &run.Error)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run_id=%s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Counters = counters
	return &run, nil
}

// Recent returns the latest runs of a kind, newest first
func (r *RunRepository) Recent(ctx context.Context, kind string, limit int) ([]*models.SyncRun, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT run_id::text, kind, started_at, finished_at, counters, error
		FROM sync_runs
		WHERE kind = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		var counters []byte
		if err := rows.Scan(&run.RunID, &run.Kind, &run.StartedAt, &run.FinishedAt, &counters, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Counters = counters
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}
