package client

import (
	"context"

	"confidentpicks/automation/internal/models"
)

// ScheduleSource serves one nflverse season as a game source
type ScheduleSource struct {
	client *Client
	season int
}

// NewScheduleSource creates a game source for a season (0 for all seasons)
func NewScheduleSource(client *Client, season int) *ScheduleSource {
	return &ScheduleSource{client: client, season: season}
}

// Name identifies the source in logs and metrics
func (s *ScheduleSource) Name() string {
	return "nflverse"
}

// FetchGames returns the game rows of the configured season
func (s *ScheduleSource) FetchGames(ctx context.Context) ([]models.GameRow, error) {
	return s.client.FetchSchedule(ctx, s.season)
}
