// Package sheets reads the upcoming_games prediction sheet and writes export
// tabs through the Google Sheets v4 API.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"confidentpicks/automation/internal/models"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultRange covers every prediction column of the upcoming_games sheet
const DefaultRange = "upcoming_games!A1:CZ500"

// Client wraps the Sheets API for one spreadsheet
type Client struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewClient creates a Sheets client authenticated with a service account file.
// readOnly restricts the token scope to spreadsheets.readonly.
func NewClient(ctx context.Context, credentialsFile, spreadsheetID string, readOnly bool) (*Client, error) {
	scope := sheets.SpreadsheetsScope
	if readOnly {
		scope = sheets.SpreadsheetsReadonlyScope
	}

	opts := []option.ClientOption{option.WithScopes(scope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return NewClientWithOptions(ctx, spreadsheetID, opts...)
}

// NewClientWithOptions creates a Sheets client from explicit client options
func NewClientWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{service: service, spreadsheetID: spreadsheetID}, nil
}

// ReadRows reads a range whose first row is the header. Fewer than two rows
// yields no games.
func (c *Client) ReadRows(ctx context.Context, rng string) ([]models.GameRow, error) {
	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", rng, err)
	}

	if len(resp.Values) < 2 {
		log.Warn().Str("range", rng).Msg("No data found in sheet")
		return []models.GameRow{}, nil
	}

	table := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		table[i] = cellsToStrings(row)
	}

	return models.RowsFromTable(table[0], table[1:]), nil
}

// WriteValues clears a range and writes values into it as entered (RAW)
func (c *Client) WriteValues(ctx context.Context, rng string, values [][]interface{}) error {
	if _, err := c.service.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear range %s: %w", rng, err)
	}

	body := &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         values,
	}
	resp, err := c.service.Spreadsheets.Values.Update(c.spreadsheetID, rng, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write range %s: %w", rng, err)
	}

	log.Debug().
		Str("range", resp.UpdatedRange).
		Int64("cells", resp.UpdatedCells).
		Msg("Sheet range updated")

	return nil
}

// Source reads games with predictions from a sheet range
type Source struct {
	client *Client
	rng    string
}

// NewSource creates a game source over the given range
func NewSource(client *Client, rng string) *Source {
	if rng == "" {
		rng = DefaultRange
	}
	return &Source{client: client, rng: rng}
}

// Name identifies the source in logs and metrics
func (s *Source) Name() string {
	return "sheets"
}

// FetchGames returns every game row of the sheet
func (s *Source) FetchGames(ctx context.Context) ([]models.GameRow, error) {
	return s.client.ReadRows(ctx, s.rng)
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		switch v := cell.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = v
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}
