package app

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestClose_ReverseOrder(t *testing.T) {
	var order []string
	a := &App{}
	a.onClose(func() { order = append(order, "firestore") })
	a.onClose(func() { order = append(order, "ledger") })
	a.onClose(func() { order = append(order, "redis") })

	a.Close()
	a.Close()

	assert.Equal(t, []string{"redis", "ledger", "firestore"}, order)
}

func TestSetupLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	SetupLogger("production", "debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	SetupLogger("production", "nonsense")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
