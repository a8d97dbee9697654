package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"confidentpicks/automation/internal/grading"
	"confidentpicks/automation/internal/metrics"
	"confidentpicks/automation/internal/models"
	"confidentpicks/automation/internal/store"

	"github.com/rs/zerolog/log"
)

// PushReport summarises one push run
type PushReport struct {
	RunID     string `json:"runId"`
	Synced    int    `json:"synced"`
	Skipped   int    `json:"skipped"`
	Errors    int    `json:"errors"`
	Picks     int    `json:"picks"`
	Upcoming  int    `json:"upcoming"`
	Live      int    `json:"live"`
	Completed int    `json:"completed"`
}

// Pusher turns sheet predictions into pick documents
type Pusher struct {
	source      GameSource
	store       store.PickStore
	ledger      Ledger
	collections models.Collections
	opts        BuildOptions
	now         func() time.Time
}

// NewPusher creates a pusher. A nil ledger disables run records.
func NewPusher(source GameSource, picks store.PickStore, ledger Ledger, collections models.Collections, opts BuildOptions) *Pusher {
	if ledger == nil {
		ledger = NopLedger{}
	}
	return &Pusher{
		source:      source,
		store:       picks,
		ledger:      ledger,
		collections: collections,
		opts:        opts,
		now:         time.Now,
	}
}

// WithClock overrides the pusher's time source
func (p *Pusher) WithClock(now func() time.Time) *Pusher {
	p.now = now
	return p
}

// Push reads every sheet row, builds its picks and merges them into the
// collection that matches the game's status
func (p *Pusher) Push(ctx context.Context) (report *PushReport, err error) {
	now := p.now()
	run := startRun(ctx, p.ledger, models.RunPush, now)
	report = &PushReport{RunID: run.RunID}
	defer func() { finishRun(ctx, p.ledger, run, report, err) }()

	rows, _, err := fetchGames(ctx, p.source, now)
	if err != nil {
		return report, err
	}

	batches := make(map[string][]*models.Pick)
	for _, row := range rows {
		line := row.Line()
		if line.GameID == "" {
			report.Skipped++
			continue
		}
		if line.AwayTeam == "" || line.HomeTeam == "" {
			log.Warn().Int("row", row.Number).Msg("Missing team names, skipping")
			report.Skipped++
			continue
		}

		status := grading.ClassifyGame(line, now)
		picks, buildErr := BuildPicks(row, status, now, p.opts)
		if buildErr != nil {
			log.Error().Err(buildErr).Int("row", row.Number).Str("game_id", line.GameID).Msg("Failed to build picks")
			metrics.RecordError("push", "build")
			report.Errors++
			continue
		}
		if len(picks) == 0 {
			log.Debug().Int("row", row.Number).Str("game_id", line.GameID).Msg("No predictions available, skipping")
			report.Skipped++
			continue
		}

		collection := p.collections.For(status)
		batches[collection] = append(batches[collection], picks...)

		switch status {
		case models.StatusUpcoming:
			report.Upcoming++
		case models.StatusLive:
			report.Live++
		case models.StatusCompleted:
			report.Completed++
		}
		report.Synced++
		report.Picks += len(picks)

		log.Debug().
			Int("row", row.Number).
			Str("game", line.AwayTeam+" @ "+line.HomeTeam).
			Int("picks", len(picks)).
			Str("collection", collection).
			Msg("Row prepared")
	}

	collections := make([]string, 0, len(batches))
	for c := range batches {
		collections = append(collections, c)
	}
	sort.Strings(collections)

	for _, collection := range collections {
		picks := batches[collection]
		if err := p.store.Upsert(ctx, collection, picks); err != nil {
			return report, fmt.Errorf("failed to push picks to %s: %w", collection, err)
		}
		for _, pick := range picks {
			metrics.RecordPicksPushed(collection, string(pick.MarketType), 1)
		}
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("synced", report.Synced).
		Int("skipped", report.Skipped).
		Int("errors", report.Errors).
		Int("picks", report.Picks).
		Int("upcoming", report.Upcoming).
		Int("live", report.Live).
		Int("completed", report.Completed).
		Msg("Push completed")

	return report, nil
}
