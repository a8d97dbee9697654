//go:build integration

package repository

import (
	"database/sql"
	"testing"

	"confidentpicks/automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameRepository_Upsert(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := &models.Game{
		GameID:     "2025_08_BUF_CAR",
		Season:     sql.NullInt32{Int32: 2025, Valid: true},
		Week:       sql.NullInt32{Int32: 8, Valid: true},
		Gameday:    sql.NullString{String: "2025-10-26", Valid: true},
		AwayTeam:   "BUF",
		HomeTeam:   "CAR",
		SpreadLine: sql.NullFloat64{Float64: -3.5, Valid: true},
		TotalLine:  sql.NullFloat64{Float64: 44.5, Valid: true},
		Status:     models.StatusUpcoming,
	}

	require.NoError(t, db.Games.Upsert(ctx, game), "Should insert game")
	assert.NotZero(t, game.ID)

	retrieved, err := db.Games.GetByGameID(ctx, "2025_08_BUF_CAR")
	require.NoError(t, err, "Should retrieve game")
	assert.Equal(t, models.StatusUpcoming, retrieved.Status)
	assert.Equal(t, -3.5, retrieved.SpreadLine.Float64)
	assert.False(t, retrieved.AwayScore.Valid)

	// Final score arrives
	game.Status = models.StatusCompleted
	game.AwayScore = sql.NullFloat64{Float64: 24, Valid: true}
	game.HomeScore = sql.NullFloat64{Float64: 27, Valid: true}
	require.NoError(t, db.Games.Upsert(ctx, game), "Should update game")

	updated, err := db.Games.GetByGameID(ctx, "2025_08_BUF_CAR")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, 24.0, updated.AwayScore.Float64)
	assert.Equal(t, 27.0, updated.HomeScore.Float64)
	assert.Equal(t, retrieved.ID, updated.ID)
}

func TestGameRepository_UpsertBatch(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	games := []*models.Game{
		{GameID: "2025_08_KC_DEN", AwayTeam: "KC", HomeTeam: "DEN", Status: models.StatusLive},
		{GameID: "2025_08_GB_DET", AwayTeam: "GB", HomeTeam: "DET", Status: models.StatusCompleted},
		{GameID: "2025_09_NYJ_MIA", AwayTeam: "NYJ", HomeTeam: "MIA", Status: models.StatusUpcoming},
	}

	require.NoError(t, db.Games.UpsertBatch(ctx, games))
	require.NoError(t, db.Games.UpsertBatch(ctx, games), "Re-recording a snapshot should update in place")

	counts, err := db.Games.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.StatusLive])
	assert.Equal(t, 1, counts[models.StatusCompleted])
	assert.Equal(t, 1, counts[models.StatusUpcoming])

	_, err = db.Games.GetByGameID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
