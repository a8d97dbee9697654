package pipeline

import (
	"context"
	"errors"
	"testing"

	"confidentpicks/automation/internal/models"
	"confidentpicks/automation/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCollections(t *testing.T, mem *store.Memory) {
	t.Helper()
	ctx := context.Background()

	upcoming := []*models.Pick{
		pick("2025_09_KC_DEN_total", "2025_09_KC_DEN", models.Totals, models.Under, "KC", "DEN"),
		pick("2025_08_BUF_CAR_spread", "2025_08_BUF_CAR", models.Spread, "CAR", "BUF", "CAR"),
		pick("2025_12_NYJ_MIA_spread", "2025_12_NYJ_MIA", models.Spread, "NYJ", "NYJ", "MIA"),
		pick("2024_01_AAA_BBB_total", "2024_01_AAA_BBB", models.Totals, models.Over, "AAA", "BBB"),
	}
	live := []*models.Pick{
		pick("2025_08_BUF_CAR_total", "2025_08_BUF_CAR", models.Totals, models.Over, "BUF", "CAR"),
	}
	completed := []*models.Pick{
		pick("2025_07_GB_DET_total", "2025_07_GB_DET", models.Totals, models.Over, "GB", "DET"),
		pick("2025_07_PIT_CIN_moneyline", "2025_07_PIT_CIN", models.Moneyline, "PIT", "PIT", "CIN"),
	}
	live[0].Extra = map[string]interface{}{"featured": true}

	require.NoError(t, mem.Upsert(ctx, models.CollectionUpcoming, upcoming))
	require.NoError(t, mem.Upsert(ctx, models.CollectionLive, live))
	require.NoError(t, mem.Upsert(ctx, models.CollectionCompleted, completed))
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedCollections(t, mem)
	ledger := &recordingLedger{}

	m := NewMigrator(newFakeSource(), mem, ledger, models.DefaultCollections()).WithClock(fixedClock)
	report, err := m.Migrate(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.UpcomingToLive)
	assert.Equal(t, 1, report.UpcomingToCompleted)
	assert.Equal(t, 1, report.LiveToCompleted)
	assert.Equal(t, 1, report.Regraded)
	assert.Equal(t, 1, report.AlreadyCorrect)
	assert.Equal(t, 1, report.Ungraded)
	assert.Equal(t, 1, report.MissingGame)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, 3, report.Moved())

	// upcoming -> live
	live, ok := mem.Get(models.CollectionLive, "2025_09_KC_DEN_total")
	require.True(t, ok)
	assert.Equal(t, models.StatusLive, live.Status)
	assert.Equal(t, "2025-10-26T18:00:00.000Z", live.UpdatedAt)
	assert.False(t, live.IsGraded())

	// upcoming -> completed, 27 - 3.5 loses to 24
	spread, ok := mem.Get(models.CollectionCompleted, "2025_08_BUF_CAR_spread")
	require.True(t, ok)
	assert.Equal(t, models.StatusCompleted, spread.Status)
	assert.Equal(t, models.Loss, spread.Result)

	// live -> completed keeps unknown fields
	total, ok := mem.Get(models.CollectionCompleted, "2025_08_BUF_CAR_total")
	require.True(t, ok)
	assert.Equal(t, models.Win, total.Result)
	require.NotNil(t, total.ActualTotal)
	assert.Equal(t, 51.0, *total.ActualTotal)
	assert.Equal(t, true, total.Extra["featured"])

	// completed without result graded in place
	regraded, ok := mem.Get(models.CollectionCompleted, "2025_07_GB_DET_total")
	require.True(t, ok)
	assert.Equal(t, models.Win, regraded.Result)

	// completed by date, scores pending
	pending, ok := mem.Get(models.CollectionCompleted, "2025_07_PIT_CIN_moneyline")
	require.True(t, ok)
	assert.False(t, pending.IsGraded())

	// sources deleted, unknown game left alone
	_, ok = mem.Get(models.CollectionUpcoming, "2025_09_KC_DEN_total")
	assert.False(t, ok)
	_, ok = mem.Get(models.CollectionLive, "2025_08_BUF_CAR_total")
	assert.False(t, ok)
	_, ok = mem.Get(models.CollectionUpcoming, "2024_01_AAA_BBB_total")
	assert.True(t, ok)

	assert.Len(t, ledger.transitions, 4)
	assert.Len(t, ledger.games, 7)
	require.Len(t, ledger.finished, 1)
	assert.Equal(t, models.RunMigrate, ledger.finished[0].Kind)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedCollections(t, mem)

	m := NewMigrator(newFakeSource(), mem, nil, models.DefaultCollections()).WithClock(fixedClock)
	_, err := m.Migrate(ctx)
	require.NoError(t, err)

	second, err := m.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Moved())
	assert.Equal(t, 0, second.Regraded)
	assert.Equal(t, 1, second.Ungraded)
}

func TestMigrate_PrefersExistingDestination(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	stale := pick("2025_09_KC_DEN_total", "2025_09_KC_DEN", models.Totals, models.Under, "KC", "DEN")
	stale.ModelConfidence = 40
	fresh := pick("2025_09_KC_DEN_total", "2025_09_KC_DEN", models.Totals, models.Under, "KC", "DEN")
	fresh.ModelConfidence = 55
	fresh.Status = models.StatusLive
	require.NoError(t, mem.Upsert(ctx, models.CollectionUpcoming, []*models.Pick{stale}))
	require.NoError(t, mem.Upsert(ctx, models.CollectionLive, []*models.Pick{fresh}))

	report, err := NewMigrator(newFakeSource(), mem, nil, models.DefaultCollections()).WithClock(fixedClock).Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.UpcomingToLive)

	assert.Equal(t, 0, mem.Count(models.CollectionUpcoming))
	got, ok := mem.Get(models.CollectionLive, "2025_09_KC_DEN_total")
	require.True(t, ok)
	assert.Equal(t, 55.0, got.ModelConfidence)
}

func TestMigrate_LedgerFailureDoesNotFailRun(t *testing.T) {
	mem := store.NewMemory()
	seedCollections(t, mem)
	ledger := &recordingLedger{failGames: true}

	report, err := NewMigrator(newFakeSource(), mem, ledger, models.DefaultCollections()).WithClock(fixedClock).Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Moved())
	assert.Len(t, ledger.transitions, 4)
}

type failingStore struct {
	*store.Memory
}

func (f failingStore) Move(context.Context, []store.Move) error {
	return errors.New("deadline exceeded")
}

func TestMigrate_MoveFailure(t *testing.T) {
	mem := store.NewMemory()
	seedCollections(t, mem)

	_, err := NewMigrator(newFakeSource(), failingStore{mem}, nil, models.DefaultCollections()).WithClock(fixedClock).Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to move picks")

	// nothing moved
	assert.Equal(t, 4, mem.Count(models.CollectionUpcoming))
	assert.Equal(t, 1, mem.Count(models.CollectionLive))
}
