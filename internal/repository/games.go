package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"confidentpicks/automation/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// GameRepository handles game snapshot operations
type GameRepository struct {
	db *Database
}

const upsertGameQuery = `
	INSERT INTO games (
		game_id, season, week, gameday, away_team, home_team,
		away_score, home_score, spread_line, total_line, status
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (game_id) DO UPDATE SET
		season = EXCLUDED.season,
		week = EXCLUDED.week,
		gameday = EXCLUDED.gameday,
		away_team = EXCLUDED.away_team,
		home_team = EXCLUDED.home_team,
		away_score = EXCLUDED.away_score,
		home_score = EXCLUDED.home_score,
		spread_line = EXCLUDED.spread_line,
		total_line = EXCLUDED.total_line,
		status = EXCLUDED.status,
		updated_at = NOW()
	RETURNING id, created_at, updated_at
`

// Upsert inserts or updates a game
func (r *GameRepository) Upsert(ctx context.Context, game *models.Game) error {
	start := time.Now()
	err := r.db.Pool.QueryRow(ctx, upsertGameQuery, gameArgs(game)...).
		Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt)
	r.db.observe("upsert", "games", start, err)

	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}

	return nil
}

// UpsertBatch upserts a full source snapshot in one round trip
func (r *GameRepository) UpsertBatch(ctx context.Context, games []*models.Game) error {
	if len(games) == 0 {
		return nil
	}

	start := time.Now()
	batch := &pgx.Batch{}
	for _, game := range games {
		batch.Queue(upsertGameQuery, gameArgs(game)...)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	var err error
	for _, game := range games {
		if scanErr := results.QueryRow().Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt); scanErr != nil {
			err = fmt.Errorf("failed to upsert game %s: %w", game.GameID, scanErr)
			break
		}
	}
	if closeErr := results.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to upsert games: %w", closeErr)
	}
	r.db.observe("upsert_batch", "games", start, err)

	if err != nil {
		return err
	}

	log.Debug().Int("games", len(games)).Dur("duration", time.Since(start)).Msg("Game snapshot saved")
	return nil
}

// GetByGameID retrieves a game by its schedule id
func (r *GameRepository) GetByGameID(ctx context.Context, gameID string) (*models.Game, error) {
	query := `
		SELECT id, game_id, season, week, gameday, away_team, home_team,
		       away_score, home_score, spread_line, total_line, status,
		       created_at, updated_at
		FROM games
		WHERE game_id = $1
	`

	var game models.Game
	err := r.db.Pool.QueryRow(ctx, query, gameID).Scan(
		&game.ID, &game.GameID, &game.Season, &game.Week, &game.Gameday,
		&game.AwayTeam, &game.HomeTeam, &game.AwayScore, &game.HomeScore,
		&game.SpreadLine, &game.TotalLine, &game.Status,
		&game.CreatedAt, &game.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("game_id=%s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return &game, nil
}

// CountByStatus returns the number of games in each status
func (r *GameRepository) CountByStatus(ctx context.Context) (map[models.GameStatus]int, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM games GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count games: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.GameStatus]int)
	for rows.Next() {
		var status models.GameStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan game count: %w", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

func gameArgs(game *models.Game) []interface{} {
	return []interface{}{
		game.GameID, game.Season, game.Week, game.Gameday, game.AwayTeam, game.HomeTeam,
		game.AwayScore, game.HomeScore, game.SpreadLine, game.TotalLine, string(game.Status),
	}
}
