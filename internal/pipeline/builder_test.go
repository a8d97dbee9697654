package pipeline

import (
	"testing"

	"confidentpicks/automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowByID(t *testing.T, id string) models.GameRow {
	t.Helper()
	for _, row := range models.RowsFromTable(sheetHeader, sheetData) {
		if row.GameID() == id {
			return row
		}
	}
	t.Fatalf("row %s not found", id)
	return models.GameRow{}
}

func byMarket(picks []*models.Pick) map[models.MarketType]*models.Pick {
	out := make(map[models.MarketType]*models.Pick, len(picks))
	for _, p := range picks {
		out[p.MarketType] = p
	}
	return out
}

func TestBuildPicks_LiveGame(t *testing.T) {
	picks, err := BuildPicks(rowByID(t, "2025_09_KC_DEN"), models.StatusLive, testNow, BuildOptions{SafeConfidence: 70})
	require.NoError(t, err)
	require.Len(t, picks, 3)

	m := byMarket(picks)

	ml := m[models.Moneyline]
	assert.Equal(t, "2025_09_KC_DEN_moneyline", ml.ID)
	assert.Equal(t, "KC to win", ml.PickDesc)
	assert.Equal(t, 72.5, ml.ModelConfidence)
	assert.Equal(t, RiskSafe, ml.RiskTag)
	assert.Equal(t, models.StatusLive, ml.Status)
	assert.Equal(t, -110, ml.Odds)
	assert.Equal(t, "public", ml.Tier)
	assert.Equal(t, "nfl-prediction-model", ml.Source)
	assert.Equal(t, "2025-11-02", ml.GameTime)
	assert.Equal(t, "2025-10-26T18:00:00.000Z", ml.CreatedAt)
	assert.False(t, ml.IsGraded())

	spread := m[models.Spread]
	assert.Equal(t, "2025_09_KC_DEN_spread", spread.ID)
	assert.Equal(t, "KC", spread.Pick)
	assert.Equal(t, "KC -3", spread.PickDesc)
	assert.Equal(t, 60.0, spread.ModelConfidence)
	assert.Equal(t, RiskModerate, spread.RiskTag)

	total := m[models.Totals]
	assert.Equal(t, "2025_09_KC_DEN_total", total.ID)
	assert.Equal(t, models.Under, total.Pick)
	assert.Equal(t, "UNDER 41", total.PickDesc)
	assert.Equal(t, RiskModerate, total.RiskTag)
}

func TestBuildPicks_CompletedGameIsGraded(t *testing.T) {
	picks, err := BuildPicks(rowByID(t, "2025_08_BUF_CAR"), models.StatusCompleted, testNow, BuildOptions{})
	require.NoError(t, err)
	require.Len(t, picks, 3)

	m := byMarket(picks)

	// winner_confidence_fpi is 0 so the plain confidence is used
	assert.Equal(t, 58.0, m[models.Moneyline].ModelConfidence)
	assert.Equal(t, models.Win, m[models.Moneyline].Result)
	require.NotNil(t, m[models.Moneyline].ActualResult)
	assert.Equal(t, "CAR", m[models.Moneyline].ActualResult.Winner)

	// 27 - 3.5 = 23.5 does not beat 24
	assert.Equal(t, "CAR -3.5", m[models.Spread].PickDesc)
	assert.Equal(t, models.Loss, m[models.Spread].Result)

	assert.Equal(t, models.Win, m[models.Totals].Result)
	assert.Equal(t, RiskSafe, m[models.Totals].RiskTag)
	require.NotNil(t, m[models.Totals].ActualTotal)
	assert.Equal(t, 51.0, *m[models.Totals].ActualTotal)
}

func TestBuildPicks_AwayCoverOnly(t *testing.T) {
	picks, err := BuildPicks(rowByID(t, "2025_12_NYJ_MIA"), models.StatusUpcoming, testNow, BuildOptions{})
	require.NoError(t, err)
	require.Len(t, picks, 1)
	assert.Equal(t, models.Spread, picks[0].MarketType)
	assert.Equal(t, "NYJ", picks[0].Pick)
	assert.Equal(t, "NYJ 0", picks[0].PickDesc)
}

func TestBuildPicks_NoPredictions(t *testing.T) {
	picks, err := BuildPicks(rowByID(t, "2025_12_LV_LAC"), models.StatusUpcoming, testNow, BuildOptions{})
	require.NoError(t, err)
	assert.Empty(t, picks)
}

func TestSignedLine(t *testing.T) {
	assert.Equal(t, "+3.5", signedLine(3.5))
	assert.Equal(t, "-7", signedLine(-7))
	assert.Equal(t, "0", signedLine(0))
}

func TestBuildOptions_RiskTag(t *testing.T) {
	assert.Equal(t, RiskSafe, BuildOptions{}.riskTag(70))
	assert.Equal(t, RiskModerate, BuildOptions{}.riskTag(69.9))
	assert.Equal(t, RiskSafe, BuildOptions{SafeConfidence: 60}.riskTag(60))
}
