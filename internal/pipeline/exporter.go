package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"confidentpicks/automation/internal/models"
	"confidentpicks/automation/internal/store"

	"github.com/rs/zerolog/log"
)

// DefaultExportRange is the sheet tab graded picks are exported to
const DefaultExportRange = "completed_picks!A1:Z"

// ExportHeader is the column layout of completed pick exports
var ExportHeader = []string{
	"id", "game", "away_team", "home_team", "pick_type", "pick_team", "pick_description",
	"odds", "confidence", "result", "status", "start_time", "league", "market_type",
	"reasoning", "created_at", "last_updated", "away_score", "home_score", "actual_total", "source",
}

// SheetWriter writes a block of values to a sheet range
type SheetWriter interface {
	WriteValues(ctx context.Context, rng string, values [][]interface{}) error
}

// ExportReport summarises one export run
type ExportReport struct {
	RunID   string `json:"runId"`
	Picks   int    `json:"picks"`
	CSVPath string `json:"csvPath,omitempty"`
	Range   string `json:"range,omitempty"`
}

// Exporter renders the completed collection as a table
type Exporter struct {
	store      store.PickStore
	ledger     Ledger
	collection string
	sheet      SheetWriter
	sheetRange string
	csvPath    string
}

// ExporterOptions selects export targets. Empty targets are skipped.
type ExporterOptions struct {
	Sheet      SheetWriter
	SheetRange string
	CSVPath    string
}

// NewExporter creates an exporter of the given collection
func NewExporter(picks store.PickStore, ledger Ledger, collection string, opts ExporterOptions) *Exporter {
	if ledger == nil {
		ledger = NopLedger{}
	}
	rng := opts.SheetRange
	if rng == "" {
		rng = DefaultExportRange
	}
	return &Exporter{
		store:      picks,
		ledger:     ledger,
		collection: collection,
		sheet:      opts.Sheet,
		sheetRange: rng,
		csvPath:    opts.CSVPath,
	}
}

// Export writes every completed pick to the configured targets
func (e *Exporter) Export(ctx context.Context) (report *ExportReport, err error) {
	run := startRun(ctx, e.ledger, models.RunExport, time.Now())
	report = &ExportReport{RunID: run.RunID}
	defer func() { finishRun(ctx, e.ledger, run, report, err) }()

	picks, err := e.store.List(ctx, e.collection)
	if err != nil {
		return report, fmt.Errorf("failed to read %s: %w", e.collection, err)
	}
	table := ExportTable(picks)
	report.Picks = len(picks)

	if e.csvPath != "" {
		if err := writeCSVFile(e.csvPath, table); err != nil {
			return report, err
		}
		report.CSVPath = e.csvPath
	}

	if e.sheet != nil {
		if err := e.sheet.WriteValues(ctx, e.sheetRange, sheetValues(table)); err != nil {
			return report, fmt.Errorf("failed to export to sheet: %w", err)
		}
		report.Range = e.sheetRange
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("picks", report.Picks).
		Str("csv", report.CSVPath).
		Str("range", report.Range).
		Msg("Export completed")

	return report, nil
}

func sheetValues(table [][]string) [][]interface{} {
	values := make([][]interface{}, len(table))
	for i, row := range table {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}
	return values
}

// ExportTable renders picks as a header row plus one row per pick
func ExportTable(picks []*models.Pick) [][]string {
	table := make([][]string, 0, len(picks)+1)
	table = append(table, ExportHeader)

	for _, p := range picks {
		var away, home, total string
		if p.ActualResult != nil {
			away = formatLine(p.ActualResult.AwayScore)
			home = formatLine(p.ActualResult.HomeScore)
		}
		if p.ActualTotal != nil {
			total = formatLine(*p.ActualTotal)
		}

		table = append(table, []string{
			p.ID,
			p.AwayTeam + " @ " + p.HomeTeam,
			p.AwayTeam,
			p.HomeTeam,
			string(p.MarketType),
			p.Pick,
			p.PickDesc,
			strconv.Itoa(p.Odds),
			formatLine(p.ModelConfidence),
			string(p.Result),
			string(p.Status),
			p.GameTime,
			p.League,
			string(p.MarketType),
			p.Reasoning,
			p.CreatedAt,
			p.UpdatedAt,
			away,
			home,
			total,
			p.Source,
		})
	}
	return table
}

// WriteCSV writes a table as CSV
func WriteCSV(w io.Writer, table [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(table); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// writeCSVFile writes to a temporary file and renames it into place
func writeCSVFile(path string, table [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, table); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move export file into place: %w", err)
	}
	return nil
}
