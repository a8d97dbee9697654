package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"confidentpicks/automation/internal/app"
	"confidentpicks/automation/internal/config"
	"confidentpicks/automation/internal/models"
	"confidentpicks/automation/internal/repository"

	"github.com/spf13/cobra"
)

var errLedgerDisabled = errors.New("ledger is disabled, set LEDGER_ENABLED=true")

var runKinds = []string{
	models.RunPush, models.RunMigrate, models.RunExport, models.RunImport, models.RunLiveSheet,
}

// ledgerReader is the read side of the ledger database
type ledgerReader interface {
	PickHistory(ctx context.Context, pickID string) (*repository.PickHistory, error)
	RunSummary(ctx context.Context, kinds []string, limit int) (*repository.RunSummary, error)
}

type transitionView struct {
	RunID   string    `json:"runId"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Result  string    `json:"result,omitempty"`
	MovedAt time.Time `json:"movedAt"`
}

type gameView struct {
	GameID    string            `json:"gameId"`
	Matchup   string            `json:"matchup"`
	Gameday   string            `json:"gameday,omitempty"`
	Status    models.GameStatus `json:"status"`
	AwayScore *float64          `json:"awayScore,omitempty"`
	HomeScore *float64          `json:"homeScore,omitempty"`
}

type historyView struct {
	PickID      string           `json:"pickId"`
	Game        *gameView        `json:"game,omitempty"`
	Transitions []transitionView `json:"transitions"`
}

type runView struct {
	RunID      string          `json:"runId"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
	Counters   json.RawMessage `json:"counters,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type runsView struct {
	Runs  map[string][]runView      `json:"runs"`
	Games map[models.GameStatus]int `json:"games"`
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <pick-id>",
		Short: "Show the ledger transitions of one pick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(cmd, func(ctx context.Context, db ledgerReader) (interface{}, error) {
				return pickHistory(ctx, db, args[0])
			})
		},
	}
}

func runsCmd() *cobra.Command {
	var kind string
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs and ledger game counts",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateRunsFlags(kind, limit)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(cmd, func(ctx context.Context, db ledgerReader) (interface{}, error) {
				return recentRuns(ctx, db, kind, limit)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only show runs of this kind")
	cmd.Flags().IntVar(&limit, "limit", 10, "Runs to show per kind")
	return cmd
}

func validateRunsFlags(kind string, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", limit)
	}
	if kind == "" {
		return nil
	}
	for _, k := range runKinds {
		if k == kind {
			return nil
		}
	}
	return fmt.Errorf("unknown run kind %q", kind)
}

func pickHistory(ctx context.Context, db ledgerReader, pickID string) (*historyView, error) {
	history, err := db.PickHistory(ctx, pickID)
	if err != nil {
		return nil, err
	}

	view := &historyView{PickID: history.PickID, Transitions: make([]transitionView, 0, len(history.Transitions))}
	for _, t := range history.Transitions {
		view.Transitions = append(view.Transitions, transitionView{
			RunID:   t.RunID,
			From:    t.FromCollection,
			To:      t.ToCollection,
			Result:  t.Result.String,
			MovedAt: t.MovedAt,
		})
	}

	if g := history.Game; g != nil {
		view.Game = &gameView{
			GameID:  g.GameID,
			Matchup: g.AwayTeam + " @ " + g.HomeTeam,
			Gameday: g.Gameday.String,
			Status:  g.Status,
		}
		if g.AwayScore.Valid && g.HomeScore.Valid {
			view.Game.AwayScore = &g.AwayScore.Float64
			view.Game.HomeScore = &g.HomeScore.Float64
		}
	}
	return view, nil
}

func recentRuns(ctx context.Context, db ledgerReader, kind string, limit int) (*runsView, error) {
	kinds := runKinds
	if kind != "" {
		kinds = []string{kind}
	}

	summary, err := db.RunSummary(ctx, kinds, limit)
	if err != nil {
		return nil, err
	}

	view := &runsView{Runs: make(map[string][]runView, len(summary.Runs)), Games: summary.Games}
	for k, runs := range summary.Runs {
		out := make([]runView, 0, len(runs))
		for _, r := range runs {
			rv := runView{RunID: r.RunID, StartedAt: r.StartedAt, Counters: r.Counters, Error: r.Error.String}
			if r.FinishedAt.Valid {
				finished := r.FinishedAt.Time
				rv.FinishedAt = &finished
			}
			out = append(out, rv)
		}
		view.Runs[k] = out
	}
	return view, nil
}

type ledgerFunc func(ctx context.Context, db ledgerReader) (interface{}, error)

// runLedger connects to the ledger database only
func runLedger(cmd *cobra.Command, fn ledgerFunc) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app.SetupLogger(cfg.AppEnv, cfg.LogLevel)

	if !cfg.LedgerEnabled {
		return errLedgerDisabled
	}

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := fn(ctx, db)
	if err != nil {
		return err
	}
	return printReport(cmd.OutOrStdout(), report)
}
