// Package grading classifies games into pick lifecycle stages and grades
// moneyline, spread and totals picks against final scores.
package grading

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"confidentpicks/automation/internal/models"
)

var (
	// ErrNoFinalScore is returned when a game has no usable final score yet
	ErrNoFinalScore = errors.New("game has no final score")
	// ErrUnknownTeam is returned when a spread pick names neither team
	ErrUnknownTeam = errors.New("pick does not name either team")
	// ErrUnknownMarket is returned for market types this package cannot grade
	ErrUnknownMarket = errors.New("unknown market type")
)

var gamedayLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006",
}

// ParseGameday parses a sheet gameday value in UTC
func ParseGameday(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range gamedayLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ClassifyGame determines which lifecycle stage a game is in at time now.
// A game with both scores is completed. A game with odds is live while its
// gameday is in the future and completed once it has passed. Everything else
// is upcoming.
func ClassifyGame(line models.GameLine, now time.Time) models.GameStatus {
	if line.HasScores() {
		return models.StatusCompleted
	}
	if !line.HasOdds() {
		return models.StatusUpcoming
	}

	gameday, ok := ParseGameday(line.Gameday)
	if ok && gameday.After(now) {
		return models.StatusLive
	}
	return models.StatusCompleted
}

// Selection is the part of a pick that grading needs
type Selection struct {
	Market models.MarketType
	Pick   string
}

// SelectionOf returns the selection of a stored pick
func SelectionOf(p *models.Pick) Selection {
	return Selection{Market: p.MarketType, Pick: p.Pick}
}

// Outcome is the graded result of a pick
type Outcome struct {
	Result       models.Result
	ActualResult models.ActualResult
	ActualTotal  *float64
}

// FinalScore is a parsed final score
type FinalScore struct {
	Away float64
	Home float64
}

// ParseFinalScore extracts the final score of a game line
func ParseFinalScore(line models.GameLine) (FinalScore, error) {
	away, errAway := parseNumber(line.AwayScore)
	home, errHome := parseNumber(line.HomeScore)
	if errAway != nil || errHome != nil {
		return FinalScore{}, fmt.Errorf("%w: game_id=%s", ErrNoFinalScore, line.GameID)
	}
	return FinalScore{Away: away, Home: home}, nil
}

// Winner returns the team with the higher score, or "" on a tie
func Winner(line models.GameLine, score FinalScore) string {
	switch {
	case score.Home > score.Away:
		return line.HomeTeam
	case score.Away > score.Home:
		return line.AwayTeam
	default:
		return ""
	}
}

// GradePick grades a selection against a completed game line.
// The spread line is the home team's line; the away team's line is its negation.
// Missing lines grade as 0.
func GradePick(sel Selection, line models.GameLine) (*Outcome, error) {
	score, err := ParseFinalScore(line)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		ActualResult: models.ActualResult{
			AwayScore: score.Away,
			HomeScore: score.Home,
			Winner:    Winner(line, score),
		},
	}

	switch sel.Market {
	case models.Moneyline:
		winner := outcome.ActualResult.Winner
		outcome.Result = resultOf(winner != "" && sel.Pick == winner)

	case models.Spread:
		spread := lineOrZero(line.SpreadLine)
		adjustedHome := score.Home + spread
		switch sel.Pick {
		case line.HomeTeam:
			outcome.Result = resultOf(adjustedHome > score.Away)
		case line.AwayTeam:
			outcome.Result = resultOf(score.Away > adjustedHome)
		default:
			return nil, fmt.Errorf("%w: pick=%q home=%q away=%q", ErrUnknownTeam, sel.Pick, line.HomeTeam, line.AwayTeam)
		}

	case models.Totals:
		total := lineOrZero(line.TotalLine)
		actual := score.Away + score.Home
		wasOver := actual > total
		pickedOver := strings.EqualFold(sel.Pick, models.Over)
		outcome.Result = resultOf(wasOver == pickedOver)
		outcome.ActualTotal = &actual

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMarket, sel.Market)
	}

	return outcome, nil
}

// Apply copies a graded outcome onto a pick
func (o *Outcome) Apply(p *models.Pick) {
	p.Result = o.Result
	actual := o.ActualResult
	p.ActualResult = &actual
	if p.MarketType == models.Totals && o.ActualTotal != nil {
		total := *o.ActualTotal
		p.ActualTotal = &total
	}
}

func resultOf(won bool) models.Result {
	if won {
		return models.Win
	}
	return models.Loss
}

func parseNumber(value string) (float64, error) {
	if models.IsBlank(value) {
		return 0, errors.New("blank")
	}
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

func lineOrZero(value string) float64 {
	f, err := parseNumber(value)
	if err != nil {
		return 0
	}
	return f
}
