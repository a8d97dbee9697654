package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SPREADSHEET_ID", "sheet-123")
	t.Setenv("FIRESTORE_PROJECT_ID", "confident-picks")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "upcoming_games!A1:CZ500", cfg.SheetRange)
	assert.Equal(t, SourceSheets, cfg.GameSource)
	assert.Equal(t, 70.0, cfg.SafeConfidence)
	assert.Equal(t, "*/15 * * * *", cfg.SyncCron)
	assert.Equal(t, "0 2 * * *", cfg.ExportCron)
	assert.Empty(t, cfg.ImportCron)
	assert.Empty(t, cfg.LiveSheetCron)
	assert.Equal(t, "completed_picks!A1:Z", cfg.ExportRange)
	assert.Equal(t, "completed_picks!A1:Z1000", cfg.ImportRange)
	assert.Equal(t, "live_picks_sheets!A1:AZ", cfg.LiveSheetRange)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.RunLockTTL)
	assert.False(t, cfg.LedgerEnabled)
	assert.True(t, cfg.IsDevelopment())

	cols := cfg.Collections()
	assert.Equal(t, "upcoming_picks", cols.Upcoming)
	assert.Equal(t, "live_picks", cols.Live)
	assert.Equal(t, "completed_picks", cols.Completed)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("GAME_SOURCE", "nflverse")
	t.Setenv("NFLVERSE_SEASON", "2025")
	t.Setenv("PICK_SAFE_CONFIDENCE", "65.5")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("RESET_TOKEN_TTL", "30m")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceNFLVerse, cfg.GameSource)
	assert.Equal(t, 2025, cfg.NFLVerseSeason)
	assert.Equal(t, 65.5, cfg.SafeConfidence)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 30*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, "cache:6380", cfg.RedisAddr())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("SPREADSHEET_ID", "")
	t.Setenv("FIRESTORE_PROJECT_ID", "confident-picks")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			SpreadsheetID:       "sheet",
			FirestoreProjectID:  "project",
			GameSource:          SourceSheets,
			SafeConfidence:      70,
			UpcomingCollection:  "upcoming_picks",
			LiveCollection:      "live_picks",
			CompletedCollection: "completed_picks",
			RunLockTTL:          time.Minute,
			AppEnv:              "production",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown source", func(c *Config) { c.GameSource = "espn" }, "GAME_SOURCE"},
		{"confidence range", func(c *Config) { c.SafeConfidence = 120 }, "PICK_SAFE_CONFIDENCE"},
		{"duplicate collections", func(c *Config) { c.LiveCollection = "completed_picks" }, "distinct"},
		{"ledger password in production", func(c *Config) { c.LedgerEnabled = true }, "DATABASE_PASSWORD"},
		{"lock ttl", func(c *Config) { c.RunLockTTL = 0 }, "RUN_LOCK_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DatabaseHost:     "db",
		DatabasePort:     5432,
		DatabaseUser:     "picks_user",
		DatabasePassword: "secret",
		DatabaseName:     "confident_picks",
		DatabaseSSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=picks_user password=secret dbname=confident_picks sslmode=disable", cfg.DatabaseDSN())
}
