package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{
		Host:     "db",
		Port:     5432,
		User:     "picks_user",
		Password: "secret",
		Database: "confident_picks",
		SSLMode:  "require",
	}

	assert.Equal(t, "postgres://picks_user:secret@db:5432/confident_picks?sslmode=require", cfg.DSN())
}
