package config

import (
	"fmt"
	"os"
	"time"

	"confidentpicks/automation/internal/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Game sources
const (
	SourceSheets   = "sheets"
	SourceNFLVerse = "nflverse"
)

// Config holds all application configuration
type Config struct {
	// Google
	GoogleCredentialsFile string `envconfig:"GOOGLE_CREDENTIALS_FILE" default:"credentials.json"`
	SpreadsheetID         string `envconfig:"SPREADSHEET_ID" required:"true"`
	SheetRange            string `envconfig:"SHEET_RANGE" default:"upcoming_games!A1:CZ500"`

	// Game source used to migrate picks
	GameSource      string        `envconfig:"GAME_SOURCE" default:"sheets"`
	NFLVerseURL     string        `envconfig:"NFLVERSE_URL" default:"https://github.com/nflverse/nfldata/raw/master/data/games.csv"`
	NFLVerseSeason  int           `envconfig:"NFLVERSE_SEASON" default:"0"`
	NFLVerseTimeout time.Duration `envconfig:"NFLVERSE_TIMEOUT" default:"30s"`

	// Firestore
	FirestoreProjectID  string `envconfig:"FIRESTORE_PROJECT_ID" required:"true"`
	UpcomingCollection  string `envconfig:"UPCOMING_COLLECTION" default:"upcoming_picks"`
	LiveCollection      string `envconfig:"LIVE_COLLECTION" default:"live_picks"`
	CompletedCollection string `envconfig:"COMPLETED_COLLECTION" default:"completed_picks"`

	// Picks
	SafeConfidence float64 `envconfig:"PICK_SAFE_CONFIDENCE" default:"70"`

	// Ledger database
	LedgerEnabled    bool   `envconfig:"LEDGER_ENABLED" default:"false"`
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"confident_picks"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"picks_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:""`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisHost     string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RunLockKey    string        `envconfig:"RUN_LOCK_KEY" default:"picks:run_lock"`
	RunLockTTL    time.Duration `envconfig:"RUN_LOCK_TTL" default:"10m"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialSyncEnabled bool   `envconfig:"INITIAL_SYNC_ENABLED" default:"true"`
	SyncCron           string `envconfig:"SYNC_CRON" default:"*/15 * * * *"`
	ExportCron         string `envconfig:"EXPORT_CRON" default:"0 2 * * *"`
	ImportCron         string `envconfig:"IMPORT_CRON" default:""`
	LiveSheetCron      string `envconfig:"LIVE_SHEET_CRON" default:""`

	// Export
	ExportCSVPath string `envconfig:"EXPORT_CSV_PATH" default:""`
	ExportRange   string `envconfig:"EXPORT_RANGE" default:"completed_picks!A1:Z"`

	// Completed sheet import
	ImportRange string `envconfig:"IMPORT_RANGE" default:"completed_picks!A1:Z1000"`

	// Live picks tab
	LiveSheetRange string `envconfig:"LIVE_SHEET_RANGE" default:"live_picks_sheets!A1:AZ"`

	// HTTP
	HTTPPort    int      `envconfig:"HTTP_PORT" default:"8080"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"https://confident-picks.com"`

	// Password reset
	ResetTokenTTL time.Duration `envconfig:"RESET_TOKEN_TTL" default:"1h"`
	ResetLinkBase string        `envconfig:"RESET_LINK_BASE" default:"https://confident-picks.com/reset-password.html"`

	// Monitoring
	EnableMetrics bool   `envconfig:"ENABLE_METRICS" default:"true"`
	SentryDSN     string `envconfig:"SENTRY_DSN" default:""`
	Release       string `envconfig:"RELEASE" default:""`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SpreadsheetID == "" {
		return fmt.Errorf("SPREADSHEET_ID is required")
	}

	if c.FirestoreProjectID == "" {
		return fmt.Errorf("FIRESTORE_PROJECT_ID is required")
	}

	if c.GameSource != SourceSheets && c.GameSource != SourceNFLVerse {
		return fmt.Errorf("GAME_SOURCE must be %q or %q, got %q", SourceSheets, SourceNFLVerse, c.GameSource)
	}

	if c.SafeConfidence < 0 || c.SafeConfidence > 100 {
		return fmt.Errorf("PICK_SAFE_CONFIDENCE must be between 0 and 100")
	}

	cols := c.Collections()
	if cols.Upcoming == cols.Live || cols.Live == cols.Completed || cols.Upcoming == cols.Completed {
		return fmt.Errorf("collection names must be distinct")
	}

	if c.LedgerEnabled && c.DatabasePassword == "" && c.IsProduction() {
		return fmt.Errorf("DATABASE_PASSWORD is required when the ledger is enabled in production")
	}

	if c.RunLockTTL <= 0 {
		return fmt.Errorf("RUN_LOCK_TTL must be positive")
	}

	return nil
}

// Collections returns the configured pick collection names
func (c *Config) Collections() models.Collections {
	return models.Collections{
		Upcoming:  c.UpcomingCollection,
		Live:      c.LiveCollection,
		Completed: c.CompletedCollection,
	}
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or exits on error
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
