package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"confidentpicks/automation/internal/metrics"
	"confidentpicks/automation/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// startRun opens a ledger run. Ledger failures are logged and never fail the run.
func startRun(ctx context.Context, ledger Ledger, kind string, now time.Time) *models.SyncRun {
	run := &models.SyncRun{
		RunID:     uuid.NewString(),
		Kind:      kind,
		StartedAt: now,
	}
	if err := ledger.StartRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", run.RunID).Str("kind", kind).Msg("Failed to record run start")
	}
	return run
}

// finishRun closes a ledger run with its counters and records run metrics
func finishRun(ctx context.Context, ledger Ledger, run *models.SyncRun, counters interface{}, runErr error) {
	finished := time.Now()
	run.FinishedAt = sql.NullTime{Time: finished, Valid: true}

	if counters != nil {
		if raw, err := json.Marshal(counters); err == nil {
			run.Counters = raw
		}
	}

	status := "success"
	if runErr != nil {
		status = "error"
		run.Error = sql.NullString{String: runErr.Error(), Valid: true}
	}
	metrics.RecordRun(run.Kind, status, finished.Sub(run.StartedAt).Seconds())

	if err := ledger.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn().Err(err).Str("run_id", run.RunID).Str("kind", run.Kind).Msg("Failed to record run finish")
	}
}
