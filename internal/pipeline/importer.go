package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"confidentpicks/automation/internal/models"
	"confidentpicks/automation/internal/store"

	"github.com/rs/zerolog/log"
)

// ImportSource marks picks whose result was entered on the completed sheet
const ImportSource = "google_sheet_sync"

// SheetReader reads a header-keyed sheet range
type SheetReader interface {
	ReadRows(ctx context.Context, rng string) ([]models.GameRow, error)
}

// ImportReport summarises one import run
type ImportReport struct {
	RunID     string `json:"runId"`
	Rows      int    `json:"rows"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Skipped   int    `json:"skipped"`
	NotFound  int    `json:"notFound"`
}

// Importer applies results edited on the completed picks sheet back to the
// completed collection
type Importer struct {
	store      store.PickStore
	ledger     Ledger
	collection string
	sheet      SheetReader
	sheetRange string
	now        func() time.Time
}

// NewImporter creates an importer reading rng into the given collection
func NewImporter(picks store.PickStore, ledger Ledger, collection string, sheet SheetReader, rng string) *Importer {
	if ledger == nil {
		ledger = NopLedger{}
	}
	if rng == "" {
		rng = DefaultExportRange
	}
	return &Importer{
		store:      picks,
		ledger:     ledger,
		collection: collection,
		sheet:      sheet,
		sheetRange: rng,
		now:        time.Now,
	}
}

// WithClock overrides the importer's time source
func (i *Importer) WithClock(now func() time.Time) *Importer {
	i.now = now
	return i
}

// Import merges result, status and reasoning from every sheet row with a W/L
// result into the matching pick. Rows without an id or a W/L result are
// skipped and rows naming a missing pick are counted, never created.
func (i *Importer) Import(ctx context.Context) (report *ImportReport, err error) {
	now := i.now()
	run := startRun(ctx, i.ledger, models.RunImport, now)
	report = &ImportReport{RunID: run.RunID}
	defer func() { finishRun(ctx, i.ledger, run, report, err) }()

	rows, err := i.sheet.ReadRows(ctx, i.sheetRange)
	if err != nil {
		return report, fmt.Errorf("failed to read completed sheet: %w", err)
	}
	report.Rows = len(rows)

	picks, err := i.store.List(ctx, i.collection)
	if err != nil {
		return report, fmt.Errorf("failed to read %s: %w", i.collection, err)
	}
	byID := make(map[string]*models.Pick, len(picks))
	for _, p := range picks {
		byID[p.ID] = p
	}

	stamp := models.Timestamp(now)
	var updates []*models.Pick
	for _, row := range rows {
		id := rowValue(row, "id", "ID")
		result := models.Result(strings.ToUpper(rowValue(row, "result", "Result")))
		if id == "" || (result != models.Win && result != models.Loss) {
			report.Skipped++
			continue
		}

		existing, ok := byID[id]
		if !ok {
			report.NotFound++
			log.Warn().Str("pick_id", id).Int("row", row.Number).Msg("Sheet row names an unknown pick")
			continue
		}

		status := models.GameStatus(strings.ToLower(rowValue(row, "status", "Status")))
		if status == "" {
			status = models.StatusCompleted
		}
		reasoning := rowValue(row, "reasoning", "Reasoning")
		if reasoning == "" {
			reasoning = existing.Reasoning
		}

		if existing.Result == result && existing.Status == status && existing.Reasoning == reasoning {
			report.Unchanged++
			continue
		}

		updated := *existing
		updated.Result = result
		updated.Status = status
		updated.Reasoning = reasoning
		updated.Source = ImportSource
		updated.UpdatedAt = stamp
		updates = append(updates, &updated)
	}

	if len(updates) > 0 {
		if err := i.store.Upsert(ctx, i.collection, updates); err != nil {
			return report, fmt.Errorf("failed to import results: %w", err)
		}
	}
	report.Updated = len(updates)

	log.Info().
		Str("run_id", report.RunID).
		Int("rows", report.Rows).
		Int("updated", report.Updated).
		Int("unchanged", report.Unchanged).
		Int("skipped", report.Skipped).
		Int("not_found", report.NotFound).
		Msg("Import completed")

	return report, nil
}

// rowValue returns the first non-blank value among the given header spellings
func rowValue(row models.GameRow, columns ...string) string {
	for _, col := range columns {
		if v := strings.TrimSpace(row.Get(col)); v != "" {
			return v
		}
	}
	return ""
}
