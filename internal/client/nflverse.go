package client

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"confidentpicks/automation/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultScheduleURL is the nflverse schedule feed that nflreadpy loads
const DefaultScheduleURL = "https://github.com/nflverse/nfldata/raw/master/data/games.csv"

// Client downloads schedules and results from the nflverse data feed
type Client struct {
	scheduleURL string
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	maxRetries  int
	retryDelay  time.Duration
}

// NewClient creates a new nflverse client
func NewClient(scheduleURL string, timeout time.Duration) *Client {
	if scheduleURL == "" {
		scheduleURL = DefaultScheduleURL
	}

	// Rate limiter (max 4 concurrent downloads)
	rateLimiter := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		rateLimiter <- struct{}{}
	}

	return &Client{
		scheduleURL: scheduleURL,
		rateLimiter: rateLimiter,
		maxRetries:  3,
		retryDelay:  1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithRetryDelay overrides the base backoff between attempts
func (c *Client) WithRetryDelay(d time.Duration) *Client {
	c.retryDelay = d
	return c
}

type attemptResult struct {
	body      []byte
	err       error
	retryable bool
}

// get performs a GET request with retry logic and rate limiting
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying download after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		res := c.attempt(ctx, url, attempt)
		if res.err == nil {
			return res.body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = res.err
		if !res.retryable {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// attempt issues a single request while holding one rate limiter slot
func (c *Client) attempt(ctx context.Context, url string, attempt int) attemptResult {
	select {
	case <-ctx.Done():
		return attemptResult{err: ctx.Err()}
	case <-c.rateLimiter:
	}
	defer func() { c.rateLimiter <- struct{}{} }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return attemptResult{err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "text/csv")
	req.Header.Set("User-Agent", "confident-picks-automation/1.0")

	log.Debug().
		Str("url", url).
		Int("attempt", attempt+1).
		Msg("Making download request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Retry on network errors
		return attemptResult{err: fmt.Errorf("download failed: %w", err), retryable: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptResult{err: fmt.Errorf("failed to read response body: %w", err), retryable: true}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		log.Debug().
			Str("url", url).
			Int("size", len(body)).
			Msg("Download successful")
		return attemptResult{body: body}

	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		log.Warn().
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Msg("Received retryable error, will retry")
		return attemptResult{
			err:       fmt.Errorf("feed returned retryable status %d", resp.StatusCode),
			retryable: true,
		}

	case http.StatusUnauthorized, http.StatusForbidden:
		return attemptResult{err: fmt.Errorf("feed denied access (status %d)", resp.StatusCode)}

	default:
		return attemptResult{err: fmt.Errorf("feed returned status %d: %s", resp.StatusCode, truncate(body, 200))}
	}
}

// FetchSchedule downloads the schedule and returns the rows of one season.
// A season of 0 returns every row in the feed.
func (c *Client) FetchSchedule(ctx context.Context, season int) ([]models.GameRow, error) {
	body, err := c.get(ctx, c.scheduleURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}

	rows, err := ParseSchedule(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule: %w", err)
	}

	if season == 0 {
		return rows, nil
	}

	want := strconv.Itoa(season)
	filtered := make([]models.GameRow, 0, 300)
	for _, row := range rows {
		if row.Get(models.ColSeason) == want {
			filtered = append(filtered, row)
		}
	}

	log.Debug().
		Int("season", season).
		Int("rows", len(filtered)).
		Msg("Filtered schedule to season")

	return filtered, nil
}

// ParseSchedule reads an nflverse games.csv into header-keyed rows
func ParseSchedule(r io.Reader) ([]models.GameRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) < 2 {
		return []models.GameRow{}, nil
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimPrefix(header[i], "\ufeff")
	}
	return models.RowsFromTable(header, records[1:]), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
