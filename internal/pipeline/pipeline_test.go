package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"confidentpicks/automation/internal/models"
)

var testNow = time.Date(2025, 10, 26, 18, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

var sheetHeader = []string{
	"game_id", "season", "week", "gameday", "away_team", "home_team", "away_score", "home_score",
	"spread_line", "total_line", "predicted_winner", "winner_confidence", "winner_confidence_fpi",
	"Predicted_Cover_Home", "Home_Cover_Confidence", "Predicted_Cover_Away", "Away_Cover_Confidence",
	"Predicted_Total", "total_confidence",
}

var sheetData = [][]string{
	// live: odds posted, kickoff next week
	{"2025_09_KC_DEN", "2025", "9", "2025-11-02", "KC", "DEN", "", "", "3", "41", "KC", "61", "72.5", "NO", "40", "YES", "60", "UNDER", "55"},
	// completed with scores
	{"2025_08_BUF_CAR", "2025", "8", "2025-10-26", "BUF", "CAR", "24", "27", "-3.5", "44.5", "CAR", "58", "0", "YES", "66", "NO", "", "OVER", "71"},
	// upcoming, away cover only
	{"2025_12_NYJ_MIA", "2025", "12", "2025-11-23", "NYJ", "MIA", "", "", "", "", "", "", "", "", "", "YES", "52", "", ""},
	// no predictions
	{"2025_12_LV_LAC", "2025", "12", "2025-11-23", "LV", "LAC", "", "", "", "", "", "", "", "", "", "", "", "", ""},
	// missing home team
	{"2025_12_SEA_", "2025", "12", "2025-11-23", "SEA", "", "", "", "", "", "SEA", "50", "", "", "", "", "", "", ""},
	// completed last week with scores
	{"2025_07_GB_DET", "2025", "7", "2025-10-19", "GB", "DET", "20", "30", "-6", "47.5", "", "", "", "", "", "", "", "", ""},
	// kickoff passed, scores not posted yet
	{"2025_07_PIT_CIN", "2025", "7", "2025-10-16", "PIT", "CIN", "", "", "3", "44", "", "", "", "", "", "", "", "", ""},
}

type fakeSource struct {
	rows []models.GameRow
	err  error
}

func newFakeSource() *fakeSource {
	return &fakeSource{rows: models.RowsFromTable(sheetHeader, sheetData)}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchGames(context.Context) ([]models.GameRow, error) {
	return f.rows, f.err
}

type recordingLedger struct {
	mu          sync.Mutex
	started     []*models.SyncRun
	finished    []*models.SyncRun
	games       []*models.Game
	transitions []*models.Transition
	failGames   bool
}

func (l *recordingLedger) StartRun(_ context.Context, run *models.SyncRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, run)
	return nil
}

func (l *recordingLedger) FinishRun(_ context.Context, run *models.SyncRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished = append(l.finished, run)
	return nil
}

func (l *recordingLedger) RecordGames(_ context.Context, games []*models.Game) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failGames {
		return errors.New("ledger down")
	}
	l.games = append(l.games, games...)
	return nil
}

func (l *recordingLedger) RecordTransitions(_ context.Context, transitions []*models.Transition) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transitions = append(l.transitions, transitions...)
	return nil
}

type fakeLocker struct {
	held     bool
	acquired int
	released int
}

func (f *fakeLocker) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.acquired++
	return true, nil
}

func (f *fakeLocker) Release(context.Context) error {
	f.released++
	return nil
}

func pick(id, gameID string, market models.MarketType, selection, away, home string) *models.Pick {
	return &models.Pick{
		ID:         id,
		Sport:      "NFL",
		League:     "NFL",
		GameID:     gameID,
		AwayTeam:   away,
		HomeTeam:   home,
		MarketType: market,
		Pick:       selection,
		Odds:       -110,
		Status:     models.StatusUpcoming,
	}
}
