package repository

import (
	"context"
	"errors"
	"fmt"

	"confidentpicks/automation/internal/models"
	"confidentpicks/automation/internal/pipeline"
)

var _ pipeline.Ledger = (*Database)(nil)

// ErrNotFound is returned when a ledger row does not exist
var ErrNotFound = errors.New("not found")

// PickHistory is the ledger view of one pick
type PickHistory struct {
	PickID      string
	Game        *models.Game
	Transitions []*models.Transition
}

// RunSummary lists the latest runs per kind with the current game counts
type RunSummary struct {
	Runs  map[string][]*models.SyncRun
	Games map[models.GameStatus]int
}

// StartRun records the start of a pipeline run
func (db *Database) StartRun(ctx context.Context, run *models.SyncRun) error {
	return db.Runs.Start(ctx, run)
}

// FinishRun records the outcome of a pipeline run
func (db *Database) FinishRun(ctx context.Context, run *models.SyncRun) error {
	return db.Runs.Finish(ctx, run)
}

// RecordGames saves the game snapshot a run worked from
func (db *Database) RecordGames(ctx context.Context, games []*models.Game) error {
	return db.Games.UpsertBatch(ctx, games)
}

// RecordTransitions appends pick moves and in-place grades
func (db *Database) RecordTransitions(ctx context.Context, transitions []*models.Transition) error {
	return db.Transitions.Append(ctx, transitions)
}

// PickHistory returns every transition of a pick and the last snapshot of its
// game. A pick with no transitions yields an empty history.
func (db *Database) PickHistory(ctx context.Context, pickID string) (*PickHistory, error) {
	transitions, err := db.Transitions.ListByPick(ctx, pickID)
	if err != nil {
		return nil, err
	}

	history := &PickHistory{PickID: pickID, Transitions: transitions}
	if len(transitions) == 0 {
		return history, nil
	}

	game, err := db.Games.GetByGameID(ctx, transitions[len(transitions)-1].GameID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	history.Game = game
	return history, nil
}

// RunSummary returns up to limit recent runs of each kind
func (db *Database) RunSummary(ctx context.Context, kinds []string, limit int) (*RunSummary, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	summary := &RunSummary{Runs: make(map[string][]*models.SyncRun, len(kinds))}
	for _, kind := range kinds {
		runs, err := db.Runs.Recent(ctx, kind, limit)
		if err != nil {
			return nil, err
		}
		summary.Runs[kind] = runs
	}

	games, err := db.Games.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	summary.Games = games
	return summary, nil
}
