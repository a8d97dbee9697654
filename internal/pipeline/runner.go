package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrNotConfigured is returned when a step has no component wired
var ErrNotConfigured = errors.New("pipeline step is not configured")

// SyncReport combines the push and migrate reports of a sync
type SyncReport struct {
	Push    *PushReport    `json:"push,omitempty"`
	Migrate *MigrateReport `json:"migrate,omitempty"`
}

// Runner serialises pipeline runs behind one lock
type Runner struct {
	pusher   *Pusher
	migrator *Migrator
	exporter *Exporter
	importer *Importer
	live     *LiveSheet
	locker   Locker
}

// NewRunner creates a runner. Any step may be nil; a nil locker never blocks.
func NewRunner(pusher *Pusher, migrator *Migrator, exporter *Exporter, locker Locker) *Runner {
	if locker == nil {
		locker = NopLocker{}
	}
	return &Runner{
		pusher:   pusher,
		migrator: migrator,
		exporter: exporter,
		locker:   locker,
	}
}

// WithImporter adds the completed sheet import step
func (r *Runner) WithImporter(importer *Importer) *Runner {
	r.importer = importer
	return r
}

// WithLiveSheet adds the live sheet publish step
func (r *Runner) WithLiveSheet(live *LiveSheet) *Runner {
	r.live = live
	return r
}

// Push runs a push under the run lock
func (r *Runner) Push(ctx context.Context) (*PushReport, error) {
	if r.pusher == nil {
		return nil, fmt.Errorf("push: %w", ErrNotConfigured)
	}
	var report *PushReport
	err := withLock(ctx, r.locker, "push", func() error {
		var err error
		report, err = r.pusher.Push(ctx)
		return err
	})
	return report, err
}

// Migrate runs a migration under the run lock
func (r *Runner) Migrate(ctx context.Context) (*MigrateReport, error) {
	if r.migrator == nil {
		return nil, fmt.Errorf("migrate: %w", ErrNotConfigured)
	}
	var report *MigrateReport
	err := withLock(ctx, r.locker, "migrate", func() error {
		var err error
		report, err = r.migrator.Migrate(ctx)
		return err
	})
	return report, err
}

// Sync pushes the latest predictions and then migrates every collection.
// Without a pusher only the migration runs.
func (r *Runner) Sync(ctx context.Context) (*SyncReport, error) {
	if r.migrator == nil {
		return nil, fmt.Errorf("sync: %w", ErrNotConfigured)
	}

	report := &SyncReport{}
	err := withLock(ctx, r.locker, "sync", func() error {
		if r.pusher != nil {
			push, err := r.pusher.Push(ctx)
			report.Push = push
			if err != nil {
				return fmt.Errorf("push failed: %w", err)
			}
		} else {
			log.Warn().Msg("No prediction sheet configured, skipping push")
		}

		migrate, err := r.migrator.Migrate(ctx)
		report.Migrate = migrate
		if err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
		return nil
	})
	return report, err
}

// Export runs an export. Exports only read picks so they do not take the lock.
func (r *Runner) Export(ctx context.Context) (*ExportReport, error) {
	if r.exporter == nil {
		return nil, fmt.Errorf("export: %w", ErrNotConfigured)
	}
	return r.exporter.Export(ctx)
}

// Import applies sheet results to completed picks under the run lock
func (r *Runner) Import(ctx context.Context) (*ImportReport, error) {
	if r.importer == nil {
		return nil, fmt.Errorf("import: %w", ErrNotConfigured)
	}
	var report *ImportReport
	err := withLock(ctx, r.locker, "import", func() error {
		var err error
		report, err = r.importer.Import(ctx)
		return err
	})
	return report, err
}

// LiveSheet publishes uncompleted games. It only writes the sheet so it does
// not take the lock.
func (r *Runner) LiveSheet(ctx context.Context) (*LiveSheetReport, error) {
	if r.live == nil {
		return nil, fmt.Errorf("live sheet: %w", ErrNotConfigured)
	}
	return r.live.Publish(ctx)
}
