package models

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// GameStatus is the lifecycle stage of a game and of the picks attached to it
type GameStatus string

const (
	StatusUpcoming  GameStatus = "upcoming"
	StatusLive      GameStatus = "live"
	StatusCompleted GameStatus = "completed"
)

// Column names shared by the upcoming_games sheet and the nflverse schedule feed
const (
	ColGameID     = "game_id"
	ColSeason     = "season"
	ColWeek       = "week"
	ColGameday    = "gameday"
	ColGametime   = "gametime"
	ColAwayTeam   = "away_team"
	ColHomeTeam   = "home_team"
	ColAwayScore  = "away_score"
	ColHomeScore  = "home_score"
	ColSpreadLine = "spread_line"
	ColTotalLine  = "total_line"

	// Prediction columns written by the models into the sheet
	ColPredictedWinner     = "predicted_winner"
	ColWinnerConfidence    = "winner_confidence"
	ColWinnerConfidenceFPI = "winner_confidence_fpi"
	ColPredictedCoverHome  = "Predicted_Cover_Home"
	ColHomeCoverConfidence = "Home_Cover_Confidence"
	ColPredictedCoverAway  = "Predicted_Cover_Away"
	ColAwayCoverConfidence = "Away_Cover_Confidence"
	ColPredictedTotal      = "Predicted_Total"
	ColTotalConfidence     = "total_confidence"
)

// nullMarkers are cell values that exporters write for missing data
var nullMarkers = map[string]bool{
	"none": true,
	"na":   true,
	"nan":  true,
	"null": true,
}

// IsBlank reports whether a raw cell value carries no data
func IsBlank(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || nullMarkers[strings.ToLower(v)]
}

// GameRow is one data row of a game table, keyed by header name
type GameRow struct {
	Number int // 1-based row number in the source table (header is row 1)
	Values map[string]string
}

// Get returns the trimmed value of a column, or "" when absent or blank
func (r GameRow) Get(column string) string {
	v, ok := r.Values[column]
	if !ok || IsBlank(v) {
		return ""
	}
	return strings.TrimSpace(v)
}

// Float returns the numeric value of a column and whether it parsed
func (r GameRow) Float(column string) (float64, bool) {
	v := r.Get(column)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FloatOrZero mirrors the sheet scripts' parseFloat(x) || 0
func (r GameRow) FloatOrZero(column string) float64 {
	f, _ := r.Float(column)
	return f
}

// GameID returns the game identifier of the row
func (r GameRow) GameID() string {
	return r.Get(ColGameID)
}

// Line extracts the fields used for classification and grading
func (r GameRow) Line() GameLine {
	return GameLine{
		GameID:     r.Get(ColGameID),
		AwayTeam:   r.Get(ColAwayTeam),
		HomeTeam:   r.Get(ColHomeTeam),
		AwayScore:  r.Get(ColAwayScore),
		HomeScore:  r.Get(ColHomeScore),
		SpreadLine: r.Get(ColSpreadLine),
		TotalLine:  r.Get(ColTotalLine),
		Gameday:    r.Get(ColGameday),
	}
}

// RowsFromTable converts a header row plus data rows into GameRows.
// Rows that are entirely blank are dropped; short rows are padded with "".
func RowsFromTable(header []string, data [][]string) []GameRow {
	rows := make([]GameRow, 0, len(data))
	for i, cells := range data {
		if isBlankRow(cells) {
			continue
		}
		values := make(map[string]string, len(header))
		for idx, name := range header {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if idx < len(cells) {
				values[name] = cells[idx]
			} else {
				values[name] = ""
			}
		}
		rows = append(rows, GameRow{Number: i + 2, Values: values})
	}
	return rows
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// GameLine holds the raw strings a pick is classified and graded against
type GameLine struct {
	GameID     string
	AwayTeam   string
	HomeTeam   string
	AwayScore  string
	HomeScore  string
	SpreadLine string
	TotalLine  string
	Gameday    string
}

// HasScores returns true if both final scores are present
func (l GameLine) HasScores() bool {
	return !IsBlank(l.AwayScore) && !IsBlank(l.HomeScore)
}

// HasOdds returns true if both the spread and the total line are present
func (l GameLine) HasOdds() bool {
	return !IsBlank(l.SpreadLine) && !IsBlank(l.TotalLine)
}

// Game is the ledger snapshot of a game row
type Game struct {
	ID         int             `db:"id"`
	GameID     string          `db:"game_id"`
	Season     sql.NullInt32   `db:"season"`
	Week       sql.NullInt32   `db:"week"`
	Gameday    sql.NullString  `db:"gameday"`
	AwayTeam   string          `db:"away_team"`
	HomeTeam   string          `db:"home_team"`
	AwayScore  sql.NullFloat64 `db:"away_score"`
	HomeScore  sql.NullFloat64 `db:"home_score"`
	SpreadLine sql.NullFloat64 `db:"spread_line"`
	TotalLine  sql.NullFloat64 `db:"total_line"`
	Status     GameStatus      `db:"status"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ToGame converts a source row into the ledger model
func (r GameRow) ToGame(status GameStatus) *Game {
	game := &Game{
		GameID:   r.Get(ColGameID),
		AwayTeam: r.Get(ColAwayTeam),
		HomeTeam: r.Get(ColHomeTeam),
		Status:   status,
	}

	if v, ok := r.Float(ColSeason); ok {
		game.Season = sql.NullInt32{Int32: int32(v), Valid: true}
	}
	if v, ok := r.Float(ColWeek); ok {
		game.Week = sql.NullInt32{Int32: int32(v), Valid: true}
	}
	if v := r.Get(ColGameday); v != "" {
		game.Gameday = sql.NullString{String: v, Valid: true}
	}

	// Scores
	if v, ok := r.Float(ColAwayScore); ok {
		game.AwayScore = sql.NullFloat64{Float64: v, Valid: true}
	}
	if v, ok := r.Float(ColHomeScore); ok {
		game.HomeScore = sql.NullFloat64{Float64: v, Valid: true}
	}

	// Lines
	if v, ok := r.Float(ColSpreadLine); ok {
		game.SpreadLine = sql.NullFloat64{Float64: v, Valid: true}
	}
	if v, ok := r.Float(ColTotalLine); ok {
		game.TotalLine = sql.NullFloat64{Float64: v, Valid: true}
	}

	return game
}

// IsFinal returns true if the game is completed
func (g *Game) IsFinal() bool {
	return g.Status == StatusCompleted
}
