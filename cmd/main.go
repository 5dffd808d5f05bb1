package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contribstats/collector"
	"contribstats/config"
	"contribstats/db"
	"contribstats/github"
	"contribstats/logger"
)

const dateLayout = "2006-01-02"

var (
	flagSince    string
	flagUntil    string
	flagDisplay  bool
	flagNoUpload bool
)

var rootCmd = &cobra.Command{
	Use:           "contribstats",
	Short:         "Collects GitHub contribution activity into a checkpointed store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect contribution stats since the last run and persist them",
	RunE:  runCollect,
}

func init() {
	collectCmd.Flags().StringVar(&flagSince, "since", "", "collect activity from this date (YYYY-MM-DD, UTC); defaults to the last-run checkpoint")
	collectCmd.Flags().StringVar(&flagUntil, "until", "", "collect activity up to this date (YYYY-MM-DD, UTC); defaults to now")
	collectCmd.Flags().BoolVar(&flagDisplay, "display", false, "print the collected result as JSON to stdout")
	collectCmd.Flags().BoolVar(&flagNoUpload, "no-upload", false, "skip persisting the result and checkpoint")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	if err := cfg.Load(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	ctx := cmd.Context()

	database, err := db.New()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("Failed to close database", zap.Error(err))
		}
	}()

	win, err := resolveWindow(ctx, database)
	if err != nil {
		return err
	}

	client := github.NewClient(cfg.GitHubToken, github.WithTimeout(cfg.RequestTimeout))
	col := collector.NewGitHub(client, cfg.PRBaseBranch)

	logger.Info("Starting collection",
		zap.Time("since", win.Since),
		zap.Time("until", win.Until))

	result, err := col.Collect(ctx, win)
	if err != nil {
		return fmt.Errorf("collection failed: %w", err)
	}

	logger.Info("Collection finished",
		zap.String("user", result.User),
		zap.Int("contribution_count", len(result.Contributions)),
		zap.Float64("took_ms", result.TookMS))

	if flagDisplay {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(encoded))
	}

	if flagNoUpload {
		logger.Info("--no-upload flag has been detected, skipping persistence")
		return nil
	}

	if err := persist(ctx, database, result); err != nil {
		if cfg.StoreErrorPolicy == config.StorePolicyContinue {
			logger.Error("Persistence failed, continuing per store error policy", zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}

// resolveWindow builds the collection window from the date flags,
// defaulting since to the persisted checkpoint.
func resolveWindow(ctx context.Context, database *db.DB) (collector.Window, error) {
	var since, until time.Time

	if flagSince != "" {
		parsed, err := time.Parse(dateLayout, flagSince)
		if err != nil {
			return collector.Window{}, fmt.Errorf("could not parse --since %q as %s: %w", flagSince, dateLayout, err)
		}
		since = parsed
	} else {
		checkpoint, err := database.FetchLastRun(ctx)
		if err != nil {
			return collector.Window{}, fmt.Errorf("no --since given and no checkpoint available: %w", err)
		}
		since = checkpoint.LastRun
	}

	if flagUntil != "" {
		parsed, err := time.Parse(dateLayout, flagUntil)
		if err != nil {
			return collector.Window{}, fmt.Errorf("could not parse --until %q as %s: %w", flagUntil, dateLayout, err)
		}
		until = parsed
	}

	return collector.NewWindow(since, until)
}

// persist writes the checkpoint and the run's contributions. The
// checkpoint advances to the window end so the next run picks up where
// this one stopped.
func persist(ctx context.Context, database *db.DB, result *collector.Result) error {
	if err := database.UpdateLastRun(ctx, db.LastRun{
		LastRun:    result.Until,
		TookMS:     result.TookMS,
		Successful: true,
	}); err != nil {
		return fmt.Errorf("failed to update checkpoint: %w", err)
	}
	if err := database.SaveContributions(ctx, result.Until, result.Contributions); err != nil {
		return fmt.Errorf("failed to save contributions: %w", err)
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
