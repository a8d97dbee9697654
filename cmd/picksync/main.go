// Command picksync runs one pipeline step and prints its report.
//
// Usage:
//
//	picksync push
//	picksync migrate --dry-run
//	picksync sync
//	picksync export --csv completed_picks.csv
//	picksync import
//	picksync live-sheet
//	picksync history 2025_08_BUF_CAR_spread
//	picksync runs --kind migrate --limit 5
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"confidentpicks/automation/internal/app"
	"confidentpicks/automation/internal/config"
	"confidentpicks/automation/internal/pipeline"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	dryRun bool
	noLock bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "picksync",
		Short:        "Confident Picks pick pipeline",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Read everything but log writes instead of committing them")
	root.PersistentFlags().BoolVar(&flags.noLock, "no-lock", false, "Run without the Redis run lock")

	root.AddCommand(pushCmd(flags))
	root.AddCommand(migrateCmd(flags))
	root.AddCommand(syncCmd(flags))
	root.AddCommand(exportCmd(flags))
	root.AddCommand(importCmd(flags))
	root.AddCommand(liveSheetCmd(flags))
	root.AddCommand(historyCmd())
	root.AddCommand(runsCmd())
	return root
}

func pushCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push predictions from the sheet into the pick collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(cmd, flags, app.Options{}, func(ctx context.Context, r *pipeline.Runner) (interface{}, error) {
				rep, err := r.Push(ctx)
				return asReport(rep, err)
			})
		},
	}
}

func migrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Move picks between collections as games progress and grade finished ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(cmd, flags, app.Options{}, func(ctx context.Context, r *pipeline.Runner) (interface{}, error) {
				rep, err := r.Migrate(ctx)
				return asReport(rep, err)
			})
		},
	}
}

func syncCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push then migrate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(cmd, flags, app.Options{}, func(ctx context.Context, r *pipeline.Runner) (interface{}, error) {
				rep, err := r.Sync(ctx)
				return asReport(rep, err)
			})
		},
	}
}

func exportCmd(flags *rootFlags) *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export graded picks to CSV and the results sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(cmd, flags, app.Options{CSVPath: csvPath}, func(ctx context.Context, r *pipeline.Runner) (interface{}, error) {
				rep, err := r.Export(ctx)
				return asReport(rep, err)
			})
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write the export to this CSV file")
	return cmd
}

func importCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Apply results entered on the completed picks sheet to Firestore",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(cmd, flags, app.Options{}, func(ctx context.Context, r *pipeline.Runner) (interface{}, error) {
				rep, err := r.Import(ctx)
				return asReport(rep, err)
			})
		},
	}
}

func liveSheetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "live-sheet",
		Short: "Publish uncompleted games to the live picks tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(cmd, flags, app.Options{}, func(ctx context.Context, r *pipeline.Runner) (interface{}, error) {
				rep, err := r.LiveSheet(ctx)
				return asReport(rep, err)
			})
		},
	}
}

type stepFunc func(ctx context.Context, r *pipeline.Runner) (interface{}, error)

func runStep(cmd *cobra.Command, flags *rootFlags, opts app.Options, step stepFunc) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app.SetupLogger(cfg.AppEnv, cfg.LogLevel)

	opts.DryRun = flags.dryRun
	opts.SkipLock = flags.noLock

	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := step(ctx, a.Runner)
	if report != nil {
		if printErr := printReport(cmd.OutOrStdout(), report); printErr != nil && err == nil {
			err = printErr
		}
	}
	return err
}

// asReport drops typed nil reports so nothing is printed for them
func asReport[T any](report *T, err error) (interface{}, error) {
	if report == nil {
		return nil, err
	}
	return report, err
}

func printReport(w io.Writer, report interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
