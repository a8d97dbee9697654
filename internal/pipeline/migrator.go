package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"confidentpicks/automation/internal/grading"
	"confidentpicks/automation/internal/metrics"
	"confidentpicks/automation/internal/models"
	"confidentpicks/automation/internal/store"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MigrateReport summarises one migrate run
type MigrateReport struct {
	RunID               string `json:"runId"`
	UpcomingToLive      int    `json:"upcomingToLive"`
	UpcomingToCompleted int    `json:"upcomingToCompleted"`
	LiveToCompleted     int    `json:"liveToCompleted"`
	Regraded            int    `json:"regraded"`
	AlreadyCorrect      int    `json:"alreadyCorrect"`
	Ungraded            int    `json:"ungraded"`
	MissingGame         int    `json:"missingGame"`
	Errors              int    `json:"errors"`
}

// Moved returns the number of picks that changed collection
func (r *MigrateReport) Moved() int {
	return r.UpcomingToLive + r.UpcomingToCompleted + r.LiveToCompleted
}

// Migrator moves picks between collections as their games progress
type Migrator struct {
	source      GameSource
	store       store.PickStore
	ledger      Ledger
	collections models.Collections
	now         func() time.Time
}

// NewMigrator creates a migrator. A nil ledger disables the audit trail.
func NewMigrator(source GameSource, picks store.PickStore, ledger Ledger, collections models.Collections) *Migrator {
	if ledger == nil {
		ledger = NopLedger{}
	}
	return &Migrator{
		source:      source,
		store:       picks,
		ledger:      ledger,
		collections: collections,
		now:         time.Now,
	}
}

// WithClock overrides the migrator's time source
func (m *Migrator) WithClock(now func() time.Time) *Migrator {
	m.now = now
	return m
}

type collectionSnapshot struct {
	upcoming  []*models.Pick
	live      []*models.Pick
	completed []*models.Pick
}

func (m *Migrator) loadCollections(ctx context.Context) (*collectionSnapshot, error) {
	snap := &collectionSnapshot{}
	g, gctx := errgroup.WithContext(ctx)

	load := func(collection string, dst *[]*models.Pick) {
		g.Go(func() error {
			picks, err := m.store.List(gctx, collection)
			if err != nil {
				return err
			}
			*dst = picks
			return nil
		})
	}
	load(m.collections.Upcoming, &snap.upcoming)
	load(m.collections.Live, &snap.live)
	load(m.collections.Completed, &snap.completed)

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load pick collections: %w", err)
	}
	return snap, nil
}

// Migrate reconciles every pick collection with the current game table:
// upcoming picks move to live once odds are posted, upcoming and live picks
// move to completed once the game is over, and completed picks without a
// result are graded when scores arrive.
func (m *Migrator) Migrate(ctx context.Context) (report *MigrateReport, err error) {
	now := m.now()
	run := startRun(ctx, m.ledger, models.RunMigrate, now)
	report = &MigrateReport{RunID: run.RunID}
	defer func() { finishRun(ctx, m.ledger, run, report, err) }()

	rows, games, err := fetchGames(ctx, m.source, now)
	if err != nil {
		return report, err
	}

	snap, err := m.loadCollections(ctx)
	if err != nil {
		return report, err
	}

	stamp := models.Timestamp(now)
	existing := map[string]map[string]*models.Pick{
		m.collections.Live:      indexByID(snap.live),
		m.collections.Completed: indexByID(snap.completed),
	}
	movedToCompleted := make(map[string]bool)

	var moves []store.Move
	var regraded []*models.Pick
	var transitions []*models.Transition

	transition := func(p *models.Pick, from, to string) {
		t := &models.Transition{
			RunID:          run.RunID,
			PickID:         p.ID,
			GameID:         p.GameID,
			MarketType:     p.MarketType,
			FromCollection: from,
			ToCollection:   to,
			MovedAt:        now,
		}
		if p.IsGraded() {
			t.Result = sql.NullString{String: string(p.Result), Valid: true}
		}
		transitions = append(transitions, t)
	}

	// complete grades a pick bound for the completed collection
	complete := func(p *models.Pick, game gameEntry) (*models.Pick, bool) {
		next := p
		if dst, ok := existing[m.collections.Completed][p.ID]; ok {
			next = dst
		}
		next.Status = models.StatusCompleted
		next.UpdatedAt = stamp
		movedToCompleted[p.ID] = true

		if next.IsGraded() {
			return next, true
		}
		if !m.grade(next, game, report) {
			return next, false
		}
		return next, true
	}

	for _, p := range snap.upcoming {
		game, ok := games[p.GameID]
		if !ok {
			report.MissingGame++
			continue
		}

		switch game.status {
		case models.StatusLive:
			next := p
			if dst, ok := existing[m.collections.Live][p.ID]; ok {
				next = dst
			}
			next.Status = models.StatusLive
			next.UpdatedAt = stamp
			moves = append(moves, store.Move{Pick: next, From: m.collections.Upcoming, To: m.collections.Live})
			transition(next, m.collections.Upcoming, m.collections.Live)
			report.UpcomingToLive++

		case models.StatusCompleted:
			next, graded := complete(p, game)
			if !graded {
				report.Ungraded++
			}
			moves = append(moves, store.Move{Pick: next, From: m.collections.Upcoming, To: m.collections.Completed})
			transition(next, m.collections.Upcoming, m.collections.Completed)
			report.UpcomingToCompleted++

		default:
			report.AlreadyCorrect++
		}
	}

	for _, p := range snap.live {
		game, ok := games[p.GameID]
		if !ok {
			report.MissingGame++
			continue
		}

		if game.status != models.StatusCompleted {
			report.AlreadyCorrect++
			continue
		}

		next, graded := complete(p, game)
		if !graded {
			report.Ungraded++
		}
		moves = append(moves, store.Move{Pick: next, From: m.collections.Live, To: m.collections.Completed})
		transition(next, m.collections.Live, m.collections.Completed)
		report.LiveToCompleted++
	}

	for _, p := range snap.completed {
		if movedToCompleted[p.ID] {
			continue
		}
		if p.IsGraded() {
			report.AlreadyCorrect++
			continue
		}

		game, ok := games[p.GameID]
		if !ok {
			report.MissingGame++
			continue
		}

		if !m.grade(p, game, report) {
			report.Ungraded++
			continue
		}
		p.Status = models.StatusCompleted
		p.UpdatedAt = stamp
		regraded = append(regraded, p)
		transition(p, m.collections.Completed, m.collections.Completed)
		report.Regraded++
	}

	if len(moves) > 0 {
		if err := m.store.Move(ctx, moves); err != nil {
			return report, fmt.Errorf("failed to move picks: %w", err)
		}
		for _, mv := range moves {
			metrics.RecordPickMoved(mv.From, mv.To)
		}
	}

	if len(regraded) > 0 {
		if err := m.store.Upsert(ctx, m.collections.Completed, regraded); err != nil {
			return report, fmt.Errorf("failed to save regraded picks: %w", err)
		}
	}

	m.record(ctx, rows, games, transitions)

	log.Info().
		Str("run_id", report.RunID).
		Int("upcoming_to_live", report.UpcomingToLive).
		Int("upcoming_to_completed", report.UpcomingToCompleted).
		Int("live_to_completed", report.LiveToCompleted).
		Int("regraded", report.Regraded).
		Int("already_correct", report.AlreadyCorrect).
		Int("ungraded", report.Ungraded).
		Int("missing_game", report.MissingGame).
		Int("errors", report.Errors).
		Msg("Migration completed")

	return report, nil
}

// grade applies the final score to a pick. It returns false when the pick
// stays ungraded.
func (m *Migrator) grade(p *models.Pick, game gameEntry, report *MigrateReport) bool {
	outcome, err := grading.GradePick(grading.SelectionOf(p), game.line)
	if err != nil {
		if !errors.Is(err, grading.ErrNoFinalScore) {
			log.Warn().Err(err).Str("pick_id", p.ID).Msg("Failed to grade pick")
			metrics.RecordError("migrate", "grade")
			report.Errors++
		}
		return false
	}
	outcome.Apply(p)
	metrics.RecordPickGraded(string(p.MarketType), string(p.Result))
	return true
}

// record writes the games snapshot and transitions to the ledger
func (m *Migrator) record(ctx context.Context, rows []models.GameRow, games map[string]gameEntry, transitions []*models.Transition) {
	snapshot := make([]*models.Game, 0, len(games))
	seen := make(map[string]bool, len(games))
	for _, row := range rows {
		id := row.GameID()
		entry, ok := games[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		snapshot = append(snapshot, row.ToGame(entry.status))
	}

	if err := m.ledger.RecordGames(ctx, snapshot); err != nil {
		log.Warn().Err(err).Int("games", len(snapshot)).Msg("Failed to record games snapshot")
	}
	if len(transitions) == 0 {
		return
	}
	if err := m.ledger.RecordTransitions(ctx, transitions); err != nil {
		log.Warn().Err(err).Int("transitions", len(transitions)).Msg("Failed to record pick transitions")
	}
}

func indexByID(picks []*models.Pick) map[string]*models.Pick {
	idx := make(map[string]*models.Pick, len(picks))
	for _, p := range picks {
		idx[p.ID] = p
	}
	return idx
}
