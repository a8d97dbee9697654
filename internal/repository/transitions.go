package repository

import (
	"context"
	"fmt"
	"time"

	"confidentpicks/automation/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransitionRepository appends pick transitions
type TransitionRepository struct {
	db *Database
}

// Append records transitions with a single COPY
func (r *TransitionRepository) Append(ctx context.Context, transitions []*models.Transition) error {
	if len(transitions) == 0 {
		return nil
	}

	start := time.Now()
	_, err := r.db.Pool.CopyFrom(
		ctx,
		pgx.Identifier{"pick_transitions"},
		[]string{"run_id", "pick_id", "game_id", "market_type", "from_collection", "to_collection", "result", "moved_at"},
		pgx.CopyFromSlice(len(transitions), func(i int) ([]interface{}, error) {
			t := transitions[i]
			runID, err := uuid.Parse(t.RunID)
			if err != nil {
				return nil, fmt.Errorf("invalid run id %q: %w", t.RunID, err)
			}
			return []interface{}{
				runID, t.PickID, t.GameID, string(t.MarketType),
				t.FromCollection, t.ToCollection, t.Result, t.MovedAt,
			}, nil
		}),
	)
	r.db.observe("copy", "pick_transitions", start, err)

	if err != nil {
		return fmt.Errorf("failed to append pick transitions: %w", err)
	}

	return nil
}

// ListByPick returns the history of one pick, oldest first
func (r *TransitionRepository) ListByPick(ctx context.Context, pickID string) ([]*models.Transition, error) {
	query := `
		SELECT id, run_id::text, pick_id, game_id, market_type,
		       from_collection, to_collection, result, moved_at
		FROM pick_transitions
		WHERE pick_id = $1
		ORDER BY moved_at, id
	`

	rows, err := r.db.Pool.Query(ctx, query, pickID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pick transitions: %w", err)
	}
	defer rows.Close()

	var transitions []*models.Transition
	for rows.Next() {
		var t models.Transition
		if err := rows.Scan(
			&t.ID, &t.RunID, &t.PickID, &t.GameID, &t.MarketType,
			&t.FromCollection, &t.ToCollection, &t.Result, &t.MovedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pick transition: %w", err)
		}
		transitions = append(transitions, &t)
	}

	return transitions, rows.Err()
}
