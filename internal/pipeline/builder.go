package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"confidentpicks/automation/internal/grading"
	"confidentpicks/automation/internal/models"
)

// Pick document defaults
const (
	DefaultSport          = "NFL"
	DefaultOdds           = -110
	DefaultTier           = "public"
	DefaultSource         = "nfl-prediction-model"
	DefaultSafeConfidence = 70.0

	RiskSafe     = "safe"
	RiskModerate = "moderate"
)

const coverYes = "YES"

// BuildOptions tunes pick construction
type BuildOptions struct {
	SafeConfidence float64
}

func (o BuildOptions) riskTag(confidence float64) string {
	threshold := o.SafeConfidence
	if threshold <= 0 {
		threshold = DefaultSafeConfidence
	}
	if confidence >= threshold {
		return RiskSafe
	}
	return RiskModerate
}

// BuildPicks creates the moneyline, spread and totals picks a sheet row
// predicts. Rows of completed games are graded when their scores parse.
func BuildPicks(row models.GameRow, status models.GameStatus, now time.Time, opts BuildOptions) ([]*models.Pick, error) {
	line := row.Line()
	stamp := models.Timestamp(now)

	base := func(suffix string, market models.MarketType) *models.Pick {
		return &models.Pick{
			ID:         line.GameID + "_" + suffix,
			Sport:      DefaultSport,
			League:     DefaultSport,
			GameID:     line.GameID,
			AwayTeam:   line.AwayTeam,
			HomeTeam:   line.HomeTeam,
			GameTime:   line.Gameday,
			MarketType: market,
			Odds:       DefaultOdds,
			Status:     status,
			Tier:       DefaultTier,
			Source:     DefaultSource,
			CreatedAt:  stamp,
			UpdatedAt:  stamp,
		}
	}

	picks := make([]*models.Pick, 0, 3)

	// Moneyline
	if winner := row.Get(models.ColPredictedWinner); winner != "" {
		fpi := row.FloatOrZero(models.ColWinnerConfidenceFPI)
		confidence := fpi
		reasoning := fmt.Sprintf("Model prediction with %.1f%% confidence (FPI-adjusted)", fpi)
		if fpi <= 0 {
			confidence = row.FloatOrZero(models.ColWinnerConfidence)
			reasoning = fmt.Sprintf("Model prediction with %.1f%% confidence", confidence)
		}

		p := base("moneyline", models.Moneyline)
		p.Pick = winner
		p.PickDesc = winner + " to win"
		p.ModelConfidence = confidence
		p.RiskTag = opts.riskTag(confidence)
		p.Reasoning = reasoning
		picks = append(picks, p)
	}

	// Spread, home cover wins when both are flagged
	homeCover := strings.EqualFold(row.Get(models.ColPredictedCoverHome), coverYes)
	awayCover := strings.EqualFold(row.Get(models.ColPredictedCoverAway), coverYes)
	if homeCover || awayCover {
		spread := row.FloatOrZero(models.ColSpreadLine)
		team, teamLine := line.HomeTeam, spread
		confidence := row.FloatOrZero(models.ColHomeCoverConfidence)
		if !homeCover {
			team, teamLine = line.AwayTeam, -spread
			confidence = row.FloatOrZero(models.ColAwayCoverConfidence)
		}

		p := base("spread", models.Spread)
		p.Pick = team
		p.PickDesc = team + " " + signedLine(teamLine)
		p.ModelConfidence = confidence
		p.RiskTag = opts.riskTag(confidence)
		p.Reasoning = fmt.Sprintf("Model predicts %s covers with %.1f%% confidence", team, confidence)
		picks = append(picks, p)
	}

	// Totals
	if side := strings.ToUpper(row.Get(models.ColPredictedTotal)); side != "" {
		total := formatLine(row.FloatOrZero(models.ColTotalLine))
		confidence := row.FloatOrZero(models.ColTotalConfidence)

		p := base("total", models.Totals)
		p.Pick = side
		p.PickDesc = side + " " + total
		p.ModelConfidence = confidence
		p.RiskTag = opts.riskTag(confidence)
		p.Reasoning = fmt.Sprintf("Model predicts %s %s with %.1f%% confidence", side, total, confidence)
		picks = append(picks, p)
	}

	if status != models.StatusCompleted || !line.HasScores() {
		return picks, nil
	}

	for _, p := range picks {
		outcome, err := grading.GradePick(grading.SelectionOf(p), line)
		if errors.Is(err, grading.ErrNoFinalScore) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to grade %s: %w", p.ID, err)
		}
		outcome.Apply(p)
	}

	return picks, nil
}

func formatLine(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func signedLine(v float64) string {
	switch {
	case v == 0:
		return "0"
	case v > 0:
		return "+" + formatLine(v)
	default:
		return formatLine(v)
	}
}
