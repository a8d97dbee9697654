package models

import "time"

// MarketType identifies the kind of bet a pick is
type MarketType string

const (
	Moneyline MarketType = "moneyline"
	Spread    MarketType = "spread"
	Totals    MarketType = "totals"
)

// Result is the graded outcome of a pick
type Result string

const (
	Win  Result = "W"
	Loss Result = "L"
)

// Totals selections
const (
	Over  = "OVER"
	Under = "UNDER"
)

// Firestore collections, one per pick lifecycle stage
const (
	CollectionUpcoming  = "upcoming_picks"
	CollectionLive      = "live_picks"
	CollectionCompleted = "completed_picks"
)

// Collections maps each status to the collection its picks are stored in
type Collections struct {
	Upcoming  string
	Live      string
	Completed string
}

// DefaultCollections returns the production collection names
func DefaultCollections() Collections {
	return Collections{
		Upcoming:  CollectionUpcoming,
		Live:      CollectionLive,
		Completed: CollectionCompleted,
	}
}

// For returns the collection that holds picks with the given status
func (c Collections) For(status GameStatus) string {
	switch status {
	case StatusLive:
		return c.Live
	case StatusCompleted:
		return c.Completed
	default:
		return c.Upcoming
	}
}

// Pick is a single bet recommendation document
type Pick struct {
	ID              string     `firestore:"id"`
	Sport           string     `firestore:"sport"`
	League          string     `firestore:"league"`
	GameID          string     `firestore:"gameId"`
	AwayTeam        string     `firestore:"awayTeam"`
	HomeTeam        string     `firestore:"homeTeam"`
	GameTime        string     `firestore:"gameTime"`
	MarketType      MarketType `firestore:"marketType"`
	Pick            string     `firestore:"pick"`
	PickDesc        string     `firestore:"pickDesc"`
	ModelConfidence float64    `firestore:"modelConfidence"`
	Odds            int        `firestore:"odds"`
	Status          GameStatus `firestore:"status"`
	Tier            string     `firestore:"tier"`
	RiskTag         string     `firestore:"riskTag"`
	Reasoning       string     `firestore:"reasoning"`
	Source          string     `firestore:"source"`
	CreatedAt       string     `firestore:"createdAt"`
	UpdatedAt       string     `firestore:"updatedAt"`

	// Set once the game is graded
	Result       Result        `firestore:"result,omitempty"`
	ActualResult *ActualResult `firestore:"actualResult,omitempty"`
	ActualTotal  *float64      `firestore:"actualTotal,omitempty"`

	// Extra holds document fields this model does not know about, so moves
	// between collections carry them along
	Extra map[string]interface{} `firestore:"-"`
}

// ActualResult records the final score a pick was graded against
type ActualResult struct {
	AwayScore float64 `firestore:"awayScore"`
	HomeScore float64 `firestore:"homeScore"`
	Winner    string  `firestore:"winner"`
}

// IsGraded returns true if the pick carries a result
func (p *Pick) IsGraded() bool {
	return p.Result == Win || p.Result == Loss
}

// Timestamp formats t the way pick documents store times
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
