package pipeline

import (
	"context"
	"fmt"
	"time"

	"confidentpicks/automation/internal/grading"
	"confidentpicks/automation/internal/metrics"
	"confidentpicks/automation/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultLiveSheetRange is the tab uncompleted games are published to
const DefaultLiveSheetRange = "live_picks_sheets!A1:AZ"

// liveSheetColumns are copied from the game row in order, after the matchup
// column is inserted second
var liveSheetColumns = []string{
	"week", "gameday", "gametime", "away_team", "home_team",
	"spread_line", "away_spread_odds", "home_spread_odds", "total_line", "over_odds", "under_odds",
	"away_moneyline", "home_moneyline", "location", "stadium", "roof", "surface", "temp", "wind",
	"away_qb_name", "home_qb_name", "away_coach", "home_coach", "referee",
}

// liveSheetPickColumns are left blank for handicappers to fill in
var liveSheetPickColumns = []string{
	"my_moneyline_pick", "my_spread_pick", "my_total_pick", "pick_confidence",
	"pick_reasoning", "bet_size", "expected_value",
}

// LiveSheetHeader is the column layout of the live picks tab
var LiveSheetHeader = func() []string {
	header := []string{models.ColGameID, "matchup"}
	header = append(header, liveSheetColumns...)
	return append(header, liveSheetPickColumns...)
}()

// LiveSheetReport summarises one live sheet publish
type LiveSheetReport struct {
	RunID string `json:"runId"`
	Rows  int    `json:"rows"`
	Games int    `json:"games"`
	Range string `json:"range"`
}

// LiveSheet publishes every uncompleted game to a worksheet so picks can be
// entered next to the current lines
type LiveSheet struct {
	source     GameSource
	ledger     Ledger
	sheet      SheetWriter
	sheetRange string
	now        func() time.Time
}

// NewLiveSheet creates a publisher of source games to rng
func NewLiveSheet(source GameSource, ledger Ledger, sheet SheetWriter, rng string) *LiveSheet {
	if ledger == nil {
		ledger = NopLedger{}
	}
	if rng == "" {
		rng = DefaultLiveSheetRange
	}
	return &LiveSheet{
		source:     source,
		ledger:     ledger,
		sheet:      sheet,
		sheetRange: rng,
		now:        time.Now,
	}
}

// WithClock overrides the publisher's time source
func (l *LiveSheet) WithClock(now func() time.Time) *LiveSheet {
	l.now = now
	return l
}

// Publish clears the live tab and writes the header plus one row per game
// that is missing a final score or whose gameday is still ahead
func (l *LiveSheet) Publish(ctx context.Context) (report *LiveSheetReport, err error) {
	now := l.now()
	run := startRun(ctx, l.ledger, models.RunLiveSheet, now)
	report = &LiveSheetReport{RunID: run.RunID}
	defer func() { finishRun(ctx, l.ledger, run, report, err) }()

	start := time.Now()
	rows, err := l.source.FetchGames(ctx)
	if err != nil {
		metrics.RecordSourceFetch(l.source.Name(), "error", time.Since(start).Seconds())
		return report, fmt.Errorf("failed to fetch games from %s: %w", l.source.Name(), err)
	}
	metrics.RecordSourceFetch(l.source.Name(), "success", time.Since(start).Seconds())
	report.Rows = len(rows)

	table := LiveSheetTable(rows, now)
	report.Games = len(table) - 1

	if err := l.sheet.WriteValues(ctx, l.sheetRange, sheetValues(table)); err != nil {
		return report, fmt.Errorf("failed to publish live sheet: %w", err)
	}
	report.Range = l.sheetRange

	log.Info().
		Str("run_id", report.RunID).
		Int("rows", report.Rows).
		Int("games", report.Games).
		Str("range", report.Range).
		Msg("Live sheet published")

	return report, nil
}

// LiveSheetTable renders the header plus one row per uncompleted game
func LiveSheetTable(rows []models.GameRow, now time.Time) [][]string {
	table := [][]string{LiveSheetHeader}
	for _, row := range rows {
		if row.GameID() == "" || !uncompleted(row, now) {
			continue
		}

		out := make([]string, 0, len(LiveSheetHeader))
		out = append(out, row.GameID(), row.Get(models.ColAwayTeam)+" @ "+row.Get(models.ColHomeTeam))
		for _, col := range liveSheetColumns {
			out = append(out, row.Get(col))
		}
		for range liveSheetPickColumns {
			out = append(out, "")
		}
		table = append(table, out)
	}
	return table
}

func uncompleted(row models.GameRow, now time.Time) bool {
	if !row.Line().HasScores() {
		return true
	}
	gameday, ok := grading.ParseGameday(row.Get(models.ColGameday))
	return ok && gameday.After(now)
}
