package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"confidentpicks/automation/internal/metrics"
	"confidentpicks/automation/internal/monitoring"
	"confidentpicks/automation/internal/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Jobs is the work the scheduler triggers
type Jobs interface {
	Sync(ctx context.Context) (*pipeline.SyncReport, error)
	Export(ctx context.Context) (*pipeline.ExportReport, error)
	Import(ctx context.Context) (*pipeline.ImportReport, error)
	LiveSheet(ctx context.Context) (*pipeline.LiveSheetReport, error)
}

// Options configures the schedules. An empty ExportCron, ImportCron or
// LiveSheetCron disables that job.
type Options struct {
	SyncCron      string
	ExportCron    string
	ImportCron    string
	LiveSheetCron string
	InitialSync   bool
}

// Scheduler runs pick syncs and exports on cron schedules:
// - Push + migrate every few minutes during game windows
// - Nightly export of graded picks
// - Optional import of sheet results and live sheet publish
type Scheduler struct {
	jobs     Jobs
	opts     Options
	cron     *cron.Cron
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler instance. A job whose previous
// invocation is still running is skipped rather than queued.
func NewScheduler(jobs Jobs, opts Options) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		jobs: jobs,
		opts: opts,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		stopChan: make(chan struct{}),
	}
}

// cronLogger routes cron's own logging through zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// Start registers the cron jobs and starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.opts.SyncCron, func() { s.runSync(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}
	log.Info().Str("schedule", s.opts.SyncCron).Msg("Pick sync scheduled")

	if s.opts.ExportCron != "" {
		if _, err := s.cron.AddFunc(s.opts.ExportCron, func() { s.runExport(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule export: %w", err)
		}
		log.Info().Str("schedule", s.opts.ExportCron).Msg("Completed picks export scheduled")
	}

	if s.opts.ImportCron != "" {
		if _, err := s.cron.AddFunc(s.opts.ImportCron, func() { s.runImport(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule import: %w", err)
		}
		log.Info().Str("schedule", s.opts.ImportCron).Msg("Completed sheet import scheduled")
	}

	if s.opts.LiveSheetCron != "" {
		if _, err := s.cron.AddFunc(s.opts.LiveSheetCron, func() { s.runLiveSheet(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule live sheet: %w", err)
		}
		log.Info().Str("schedule", s.opts.LiveSheetCron).Msg("Live sheet publish scheduled")
	}

	s.cron.Start()

	if s.opts.InitialSync {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			default:
			}
			log.Info().Msg("Running initial sync...")
			s.runSync(ctx)
		}()
	}

	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		log.Info().Msg("Stopping scheduler...")

		close(s.stopChan)
		<-s.cron.Stop().Done()
		s.wg.Wait()

		log.Info().Msg("Scheduler stopped")
	})
}

func (s *Scheduler) runSync(ctx context.Context) {
	start := time.Now()

	report, err := s.jobs.Sync(ctx)
	if err != nil {
		s.handleError("sync", err)
		return
	}

	event := log.Info().Dur("duration", time.Since(start))
	if report.Push != nil {
		event = event.Int("synced", report.Push.Synced).Int("picks", report.Push.Picks)
	}
	if report.Migrate != nil {
		event = event.Int("moved", report.Migrate.Moved()).Int("regraded", report.Migrate.Regraded)
	}
	event.Msg("Scheduled sync complete")
}

func (s *Scheduler) runExport(ctx context.Context) {
	start := time.Now()

	report, err := s.jobs.Export(ctx)
	if err != nil {
		s.handleError("export", err)
		return
	}

	log.Info().
		Int("picks", report.Picks).
		Dur("duration", time.Since(start)).
		Msg("Scheduled export complete")
}

func (s *Scheduler) runImport(ctx context.Context) {
	start := time.Now()

	report, err := s.jobs.Import(ctx)
	if err != nil {
		s.handleError("import", err)
		return
	}

	log.Info().
		Int("updated", report.Updated).
		Int("not_found", report.NotFound).
		Dur("duration", time.Since(start)).
		Msg("Scheduled import complete")
}

func (s *Scheduler) runLiveSheet(ctx context.Context) {
	start := time.Now()

	report, err := s.jobs.LiveSheet(ctx)
	if err != nil {
		s.handleError("live_sheet", err)
		return
	}

	log.Info().
		Int("games", report.Games).
		Dur("duration", time.Since(start)).
		Msg("Scheduled live sheet publish complete")
}

func (s *Scheduler) handleError(kind string, err error) {
	if errors.Is(err, pipeline.ErrRunInProgress) {
		log.Info().Str("kind", kind).Msg("Previous run still in progress, skipping")
		return
	}

	metrics.RecordError("scheduler", kind)
	monitoring.CaptureError(err, map[string]string{"job": kind})
	log.Error().Err(err).Str("kind", kind).Msg("Scheduled run failed")
}
