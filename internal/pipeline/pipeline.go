// Package pipeline pushes model predictions into pick collections, migrates
// picks as their games progress, and exports graded picks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"confidentpicks/automation/internal/grading"
	"confidentpicks/automation/internal/metrics"
	"confidentpicks/automation/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrRunInProgress is returned when another run holds the run lock
var ErrRunInProgress = errors.New("another run is in progress")

// GameSource supplies the current game table
type GameSource interface {
	Name() string
	FetchGames(ctx context.Context) ([]models.GameRow, error)
}

// Ledger records games, pick transitions and runs
type Ledger interface {
	StartRun(ctx context.Context, run *models.SyncRun) error
	FinishRun(ctx context.Context, run *models.SyncRun) error
	RecordGames(ctx context.Context, games []*models.Game) error
	RecordTransitions(ctx context.Context, transitions []*models.Transition) error
}

// Locker guards against overlapping runs
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// NopLedger discards ledger writes
type NopLedger struct{}

func (NopLedger) StartRun(context.Context, *models.SyncRun) error               { return nil }
func (NopLedger) FinishRun(context.Context, *models.SyncRun) error              { return nil }
func (NopLedger) RecordGames(context.Context, []*models.Game) error             { return nil }
func (NopLedger) RecordTransitions(context.Context, []*models.Transition) error { return nil }

// NopLocker always grants the lock
type NopLocker struct{}

func (NopLocker) Acquire(context.Context) (bool, error) { return true, nil }
func (NopLocker) Release(context.Context) error         { return nil }

// gameEntry is a classified game from the source snapshot
type gameEntry struct {
	row    models.GameRow
	line   models.GameLine
	status models.GameStatus
}

// fetchGames reads the source and classifies every game with an id
func fetchGames(ctx context.Context, source GameSource, now time.Time) ([]models.GameRow, map[string]gameEntry, error) {
	start := time.Now()
	rows, err := source.FetchGames(ctx)
	if err != nil {
		metrics.RecordSourceFetch(source.Name(), "error", time.Since(start).Seconds())
		return nil, nil, fmt.Errorf("failed to fetch games from %s: %w", source.Name(), err)
	}
	metrics.RecordSourceFetch(source.Name(), "success", time.Since(start).Seconds())

	games := make(map[string]gameEntry, len(rows))
	var upcoming, live, completed int
	for _, row := range rows {
		id := row.GameID()
		if id == "" {
			continue
		}
		line := row.Line()
		status := grading.ClassifyGame(line, now)
		games[id] = gameEntry{row: row, line: line, status: status}

		switch status {
		case models.StatusUpcoming:
			upcoming++
		case models.StatusLive:
			live++
		case models.StatusCompleted:
			completed++
		}
	}
	metrics.UpdateGameStatusCounts(upcoming, live, completed)

	log.Info().
		Str("source", source.Name()).
		Int("rows", len(rows)).
		Int("upcoming", upcoming).
		Int("live", live).
		Int("completed", completed).
		Msg("Game status map built")

	return rows, games, nil
}

// withLock runs fn while holding the run lock
func withLock(ctx context.Context, locker Locker, kind string, fn func() error) error {
	ok, err := locker.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		metrics.RecordRunSkipped(kind)
		return ErrRunInProgress
	}
	defer func() {
		if err := locker.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Str("kind", kind).Msg("Failed to release run lock")
		}
	}()
	return fn()
}
