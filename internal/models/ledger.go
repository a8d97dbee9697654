package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Run kinds
const (
	RunPush      = "push"
	RunMigrate   = "migrate"
	RunExport    = "export"
	RunImport    = "import"
	RunLiveSheet = "live_sheet"
)

// Transition records a pick moving between collections (or being graded in place)
type Transition struct {
	ID             int            `db:"id"`
	RunID          string         `db:"run_id"`
	PickID         string         `db:"pick_id"`
	GameID         string         `db:"game_id"`
	MarketType     MarketType     `db:"market_type"`
	FromCollection string         `db:"from_collection"`
	ToCollection   string         `db:"to_collection"`
	Result         sql.NullString `db:"result"`
	MovedAt        time.Time      `db:"moved_at"`
}

// SyncRun is one execution of a pipeline step
type SyncRun struct {
	RunID      string          `db:"run_id"`
	Kind       string          `db:"kind"`
	StartedAt  time.Time       `db:"started_at"`
	FinishedAt sql.NullTime    `db:"finished_at"`
	Counters   json.RawMessage `db:"counters"`
	Error      sql.NullString  `db:"error"`
}
