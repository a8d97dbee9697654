package grading

import (
	"fmt"
	"testing"
	"time"

	"confidentpicks/automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 10, 26, 18, 0, 0, 0, time.UTC)

func finalLine(away, home float64, spread, total string) models.GameLine {
	return models.GameLine{
		GameID:     "2025_08_BUF_CAR",
		AwayTeam:   "BUF",
		HomeTeam:   "CAR",
		AwayScore:  fmt.Sprintf("%g", away),
		HomeScore:  fmt.Sprintf("%g", home),
		SpreadLine: spread,
		TotalLine:  total,
		Gameday:    "2025-10-26",
	}
}

func TestClassifyGame(t *testing.T) {
	tests := []struct {
		name string
		line models.GameLine
		want models.GameStatus
	}{
		{
			name: "scores present",
			line: models.GameLine{AwayScore: "24", HomeScore: "27", Gameday: "2025-11-02"},
			want: models.StatusCompleted,
		},
		{
			name: "odds and future gameday",
			line: models.GameLine{SpreadLine: "-3.5", TotalLine: "44.5", Gameday: "2025-11-02"},
			want: models.StatusLive,
		},
		{
			name: "odds and past gameday",
			line: models.GameLine{SpreadLine: "-3.5", TotalLine: "44.5", Gameday: "2025-10-19"},
			want: models.StatusCompleted,
		},
		{
			name: "odds and unparseable gameday",
			line: models.GameLine{SpreadLine: "-3.5", TotalLine: "44.5", Gameday: "next sunday"},
			want: models.StatusCompleted,
		},
		{
			name: "spread only",
			line: models.GameLine{SpreadLine: "-3.5", Gameday: "2025-11-02"},
			want: models.StatusUpcoming,
		},
		{
			name: "nothing yet",
			line: models.GameLine{Gameday: "2025-11-02"},
			want: models.StatusUpcoming,
		},
		{
			name: "one score only",
			line: models.GameLine{HomeScore: "10", Gameday: "2025-10-19"},
			want: models.StatusUpcoming,
		},
		{
			name: "null markers are blank",
			line: models.GameLine{AwayScore: "None", HomeScore: "NA", SpreadLine: "3", TotalLine: "47", Gameday: "2025-11-02"},
			want: models.StatusLive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyGame(tt.line, now))
		})
	}
}

func TestClassifyGame_Idempotent(t *testing.T) {
	line := models.GameLine{SpreadLine: "-7", TotalLine: "51.5", Gameday: "2025-10-26T20:20:00Z"}
	first := ClassifyGame(line, now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ClassifyGame(line, now))
	}
	assert.Equal(t, models.StatusLive, first)
}

func TestParseGameday(t *testing.T) {
	for _, v := range []string{"2025-10-26", "2025-10-26T13:00:00Z", "2025-10-26T13:00:00", "10/26/2025"} {
		got, ok := ParseGameday(v)
		require.True(t, ok, v)
		assert.Equal(t, 2025, got.Year())
		assert.Equal(t, time.October, got.Month())
		assert.Equal(t, 26, got.Day())
	}

	_, ok := ParseGameday("")
	assert.False(t, ok)
}

func TestGradePick_Moneyline(t *testing.T) {
	for _, score := range [][2]float64{{24, 27}, {0, 3}, {10, 41}} {
		line := finalLine(score[0], score[1], "", "")

		home, err := GradePick(Selection{Market: models.Moneyline, Pick: "CAR"}, line)
		require.NoError(t, err)
		assert.Equal(t, models.Win, home.Result)
		assert.Equal(t, "CAR", home.ActualResult.Winner)

		away, err := GradePick(Selection{Market: models.Moneyline, Pick: "BUF"}, line)
		require.NoError(t, err)
		assert.Equal(t, models.Loss, away.Result)
	}
}

func TestGradePick_MoneylineTie(t *testing.T) {
	line := finalLine(20, 20, "", "")
	for _, team := range []string{"BUF", "CAR"} {
		out, err := GradePick(Selection{Market: models.Moneyline, Pick: team}, line)
		require.NoError(t, err)
		assert.Equal(t, models.Loss, out.Result)
		assert.Empty(t, out.ActualResult.Winner)
	}
}

func TestGradePick_Spread(t *testing.T) {
	tests := []struct {
		name   string
		away   float64
		home   float64
		spread string
		pick   string
		want   models.Result
	}{
		{"home favourite fails to cover", 24, 27, "-3.5", "CAR", models.Loss},
		{"away covers same game", 24, 27, "-3.5", "BUF", models.Win},
		{"home favourite covers", 17, 31, "-7", "CAR", models.Win},
		{"home underdog covers losing", 20, 17, "6.5", "CAR", models.Win},
		{"push grades loss for home", 20, 23, "-3", "CAR", models.Loss},
		{"push grades loss for away", 20, 23, "-3", "BUF", models.Loss},
		{"missing line grades as zero", 20, 23, "", "CAR", models.Win},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := GradePick(Selection{Market: models.Spread, Pick: tt.pick}, finalLine(tt.away, tt.home, tt.spread, ""))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Result)
			assert.Nil(t, out.ActualTotal)
		})
	}
}

func TestGradePick_SpreadProperty(t *testing.T) {
	for home := 0.0; home <= 35; home += 7 {
		for away := 0.0; away <= 35; away += 3 {
			for _, l := range []float64{-10.5, -3, -1.5, 0, 2.5, 7} {
				line := finalLine(away, home, fmt.Sprintf("%g", l), "")
				out, err := GradePick(Selection{Market: models.Spread, Pick: "CAR"}, line)
				require.NoError(t, err)
				assert.Equal(t, resultOf(home+l > away), out.Result, "home=%g away=%g line=%g", home, away, l)
			}
		}
	}
}

func TestGradePick_SpreadUnknownTeam(t *testing.T) {
	_, err := GradePick(Selection{Market: models.Spread, Pick: "MIA"}, finalLine(10, 20, "-3", ""))
	assert.ErrorIs(t, err, ErrUnknownTeam)
}

func TestGradePick_Totals(t *testing.T) {
	out, err := GradePick(Selection{Market: models.Totals, Pick: models.Over}, finalLine(24, 27, "", "44.5"))
	require.NoError(t, err)
	assert.Equal(t, models.Win, out.Result)
	require.NotNil(t, out.ActualTotal)
	assert.Equal(t, 51.0, *out.ActualTotal)

	under, err := GradePick(Selection{Market: models.Totals, Pick: models.Under}, finalLine(24, 27, "", "44.5"))
	require.NoError(t, err)
	assert.Equal(t, models.Loss, under.Result)
}

func TestGradePick_TotalsComplement(t *testing.T) {
	for _, total := range []float64{30, 43, 44, 44.5, 45, 60} {
		for _, line := range []string{"44", "44.5"} {
			game := finalLine(total-20, 20, "", line)

			over, err := GradePick(Selection{Market: models.Totals, Pick: models.Over}, game)
			require.NoError(t, err)
			under, err := GradePick(Selection{Market: models.Totals, Pick: models.Under}, game)
			require.NoError(t, err)

			assert.NotEqual(t, over.Result, under.Result, "total=%g line=%s", total, line)
		}
	}

	// Landing exactly on the line is not over
	exact, err := GradePick(Selection{Market: models.Totals, Pick: models.Under}, finalLine(20, 24, "", "44"))
	require.NoError(t, err)
	assert.Equal(t, models.Win, exact.Result)
}

func TestGradePick_NoFinalScore(t *testing.T) {
	line := models.GameLine{GameID: "2025_09_KC_DEN", AwayTeam: "KC", HomeTeam: "DEN", SpreadLine: "3", TotalLine: "41"}
	_, err := GradePick(Selection{Market: models.Moneyline, Pick: "KC"}, line)
	assert.ErrorIs(t, err, ErrNoFinalScore)

	line.AwayScore = "abc"
	line.HomeScore = "17"
	_, err = GradePick(Selection{Market: models.Totals, Pick: models.Over}, line)
	assert.ErrorIs(t, err, ErrNoFinalScore)
}

func TestGradePick_UnknownMarket(t *testing.T) {
	_, err := GradePick(Selection{Market: "player_props", Pick: "over"}, finalLine(1, 2, "", ""))
	assert.ErrorIs(t, err, ErrUnknownMarket)
}

func TestOutcome_Apply(t *testing.T) {
	pick := &models.Pick{ID: "g_total", MarketType: models.Totals, Pick: models.Over}
	out, err := GradePick(SelectionOf(pick), finalLine(24, 27, "", "44.5"))
	require.NoError(t, err)

	out.Apply(pick)
	assert.True(t, pick.IsGraded())
	assert.Equal(t, models.Win, pick.Result)
	require.NotNil(t, pick.ActualResult)
	assert.Equal(t, 27.0, pick.ActualResult.HomeScore)
	require.NotNil(t, pick.ActualTotal)
	assert.Equal(t, 51.0, *pick.ActualTotal)

	ml := &models.Pick{ID: "g_moneyline", MarketType: models.Moneyline, Pick: "CAR"}
	out, err = GradePick(SelectionOf(ml), finalLine(24, 27, "", "44.5"))
	require.NoError(t, err)
	out.Apply(ml)
	assert.Nil(t, ml.ActualTotal)
}
