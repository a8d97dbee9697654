package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"confidentpicks/automation/internal/models"
	"confidentpicks/automation/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedgerReader struct {
	history *repository.PickHistory
	summary *repository.RunSummary
	kinds   []string
	limit   int
	err     error
}

func (f *fakeLedgerReader) PickHistory(_ context.Context, pickID string) (*repository.PickHistory, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.history.PickID = pickID
	return f.history, nil
}

func (f *fakeLedgerReader) RunSummary(_ context.Context, kinds []string, limit int) (*repository.RunSummary, error) {
	f.kinds = kinds
	f.limit = limit
	return f.summary, f.err
}

func TestLedgerCommands(t *testing.T) {
	root := newRootCmd()

	history, _, err := root.Find([]string{"history"})
	require.NoError(t, err)
	assert.Error(t, history.Args(history, nil))
	assert.NoError(t, history.Args(history, []string{"2025_08_BUF_CAR_spread"}))

	runs, _, err := root.Find([]string{"runs"})
	require.NoError(t, err)
	assert.NotNil(t, runs.Flags().Lookup("kind"))
	assert.Equal(t, "10", runs.Flags().Lookup("limit").DefValue)
}

func TestValidateRunsFlags(t *testing.T) {
	assert.NoError(t, validateRunsFlags("", 10))
	assert.NoError(t, validateRunsFlags(models.RunImport, 1))
	assert.Error(t, validateRunsFlags("", 0))
	assert.Error(t, validateRunsFlags("grade", 5))
}

func TestPickHistory(t *testing.T) {
	moved := time.Date(2025, 10, 26, 21, 0, 0, 0, time.UTC)
	db := &fakeLedgerReader{history: &repository.PickHistory{
		Game: &models.Game{
			GameID:    "2025_08_BUF_CAR",
			AwayTeam:  "BUF",
			HomeTeam:  "CAR",
			Status:    models.StatusCompleted,
			AwayScore: sql.NullFloat64{Float64: 24, Valid: true},
			HomeScore: sql.NullFloat64{Float64: 27, Valid: true},
		},
		Transitions: []*models.Transition{{
			RunID: "r1", FromCollection: "live_picks", ToCollection: "completed_picks",
			Result: sql.NullString{String: "W", Valid: true}, MovedAt: moved,
		}},
	}}

	view, err := pickHistory(context.Background(), db, "2025_08_BUF_CAR_spread")
	require.NoError(t, err)
	assert.Equal(t, "2025_08_BUF_CAR_spread", view.PickID)
	require.NotNil(t, view.Game)
	assert.Equal(t, "BUF @ CAR", view.Game.Matchup)
	assert.Equal(t, 27.0, *view.Game.HomeScore)
	require.Len(t, view.Transitions, 1)
	assert.Equal(t, "W", view.Transitions[0].Result)

	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, view))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "completed_picks", decoded["transitions"].([]interface{})[0].(map[string]interface{})["to"])

	_, err = pickHistory(context.Background(), &fakeLedgerReader{err: errors.New("db down")}, "x")
	assert.EqualError(t, err, "db down")
}

func TestRecentRuns(t *testing.T) {
	started := time.Date(2025, 10, 26, 18, 0, 0, 0, time.UTC)
	db := &fakeLedgerReader{summary: &repository.RunSummary{
		Runs: map[string][]*models.SyncRun{
			models.RunMigrate: {{
				RunID:      "r1",
				Kind:       models.RunMigrate,
				StartedAt:  started,
				FinishedAt: sql.NullTime{Time: started.Add(time.Second), Valid: true},
				Counters:   json.RawMessage(`{"regraded":1}`),
			}},
		},
		Games: map[models.GameStatus]int{models.StatusLive: 2},
	}}

	view, err := recentRuns(context.Background(), db, models.RunMigrate, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RunMigrate}, db.kinds)
	assert.Equal(t, 5, db.limit)
	require.Len(t, view.Runs[models.RunMigrate], 1)
	assert.NotNil(t, view.Runs[models.RunMigrate][0].FinishedAt)
	assert.Equal(t, 2, view.Games[models.StatusLive])

	_, err = recentRuns(context.Background(), db, "", 5)
	require.NoError(t, err)
	assert.Equal(t, runKinds, db.kinds)
}
