// Package app wires configuration into the pick pipeline and its backends.
package app

import (
	"context"
	"os"
	"time"

	"confidentpicks/automation/internal/cache"
	"confidentpicks/automation/internal/client"
	"confidentpicks/automation/internal/config"
	"confidentpicks/automation/internal/pipeline"
	"confidentpicks/automation/internal/repository"
	"confidentpicks/automation/internal/sheets"
	"confidentpicks/automation/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options adjusts how the pipeline is wired
type Options struct {
	// DryRun reads Firestore and the sheet but logs writes instead of making them
	DryRun bool
	// CSVPath overrides EXPORT_CSV_PATH
	CSVPath string
	// SkipLock runs without the Redis run lock
	SkipLock bool
}

// App holds the wired pipeline and the connections it owns
type App struct {
	Config *config.Config
	Store  store.PickStore
	Runner *pipeline.Runner
	Redis  *redis.Client
	DB     *repository.Database

	closers []func()
}

// New connects every backend the configuration enables and builds the runner.
// Firestore and the prediction sheet are required; the ledger and Redis are
// optional and only logged when unavailable.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	fs, err := store.NewFirestore(ctx, cfg.FirestoreProjectID, cfg.GoogleCredentialsFile)
	if err != nil {
		return nil, err
	}
	a.onClose(func() {
		if err := fs.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Firestore client")
		}
	})
	a.Store = fs
	if opts.DryRun {
		a.Store = store.NewDryRun(fs)
		log.Warn().Msg("Dry run: Firestore writes will be logged, not committed")
	}

	sheetClient, err := sheets.NewClient(ctx, cfg.GoogleCredentialsFile, cfg.SpreadsheetID, opts.DryRun)
	if err != nil {
		a.Close()
		return nil, err
	}
	sheetSource := sheets.NewSource(sheetClient, cfg.SheetRange)

	var gameSource pipeline.GameSource = sheetSource
	if cfg.GameSource == config.SourceNFLVerse {
		schedule := client.NewClient(cfg.NFLVerseURL, cfg.NFLVerseTimeout)
		gameSource = client.NewScheduleSource(schedule, cfg.NFLVerseSeason)
	}
	log.Info().Str("source", gameSource.Name()).Msg("Game source selected")

	ledger := a.connectLedger(ctx)
	locker := a.connectRedis(ctx, opts.SkipLock)

	collections := cfg.Collections()
	pusher := pipeline.NewPusher(sheetSource, a.Store, ledger, collections, pipeline.BuildOptions{
		SafeConfidence: cfg.SafeConfidence,
	})
	migrator := pipeline.NewMigrator(gameSource, a.Store, ledger, collections)

	exportOpts := pipeline.ExporterOptions{
		SheetRange: cfg.ExportRange,
		CSVPath:    cfg.ExportCSVPath,
	}
	if opts.CSVPath != "" {
		exportOpts.CSVPath = opts.CSVPath
	}
	if opts.DryRun {
		log.Warn().Str("range", cfg.ExportRange).Msg("Dry run: skipping sheet export")
	} else {
		exportOpts.Sheet = sheetClient
	}
	exporter := pipeline.NewExporter(a.Store, ledger, collections.Completed, exportOpts)

	importer := pipeline.NewImporter(a.Store, ledger, collections.Completed, sheetClient, cfg.ImportRange)

	var live *pipeline.LiveSheet
	if opts.DryRun {
		log.Warn().Str("range", cfg.LiveSheetRange).Msg("Dry run: skipping live sheet publish")
	} else {
		live = pipeline.NewLiveSheet(gameSource, ledger, sheetClient, cfg.LiveSheetRange)
	}

	a.Runner = pipeline.NewRunner(pusher, migrator, exporter, locker).
		WithImporter(importer).
		WithLiveSheet(live)
	return a, nil
}

// connectLedger opens the Postgres ledger when enabled
func (a *App) connectLedger(ctx context.Context) pipeline.Ledger {
	if !a.Config.LedgerEnabled {
		return pipeline.NopLedger{}
	}

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     a.Config.DatabaseHost,
		Port:     a.Config.DatabasePort,
		User:     a.Config.DatabaseUser,
		Password: a.Config.DatabasePassword,
		Database: a.Config.DatabaseName,
		SSLMode:  a.Config.DatabaseSSLMode,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to ledger database - continuing without ledger")
		return pipeline.NopLedger{}
	}
	if err := db.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to prepare ledger schema - continuing without ledger")
		db.Close()
		return pipeline.NopLedger{}
	}

	a.DB = db
	a.onClose(db.Close)
	return db
}

// connectRedis opens Redis for the run lock and reset tokens
func (a *App) connectRedis(ctx context.Context, skipLock bool) pipeline.Locker {
	rdb, err := cache.NewRedisClient(ctx, cache.Config{
		Host:     a.Config.RedisHost,
		Port:     a.Config.RedisPort,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without run lock")
		return pipeline.NopLocker{}
	}

	a.Redis = rdb
	a.onClose(func() { rdb.Close() })

	if skipLock {
		return pipeline.NopLocker{}
	}
	return cache.NewRunLock(rdb, a.Config.RunLockKey, a.Config.RunLockTTL)
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases connections in reverse order of opening
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// SetupLogger configures the zerolog logger
func SetupLogger(env, level string) {
	// Pretty console logging in development
	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	lvl := zerolog.InfoLevel
	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}
	zerolog.SetGlobalLevel(lvl)

	log.Debug().Str("level", lvl.String()).Msg("Logger initialized")
}
