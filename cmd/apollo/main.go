package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/app"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/config"
	"github.com/Dhruvq/Apollo-AI-Research-Analyst/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "apollo",
	Short: "Apollo - biweekly AI research digest pipeline",
	Long: `Apollo fetches new cs.AI papers from arXiv on a biweekly schedule,
filters and scores them, publishes a digest, and announces it on Telegram.
Completed periods are recorded in a run ledger so re-running is safe.`,
}

var (
	dryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one cycle check and exit",
	RunE:  runOnce,
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run continuously, checking the schedule on a fixed interval",
	RunE:  runDaemon,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"fetch, filter and score, but skip publication, memory and the ledger commit")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	result, err := application.RunOnce(cmd.Context(), dryRun)
	if err != nil {
		logger.Error("cycle failed",
			"cycle", result.CycleID, "state", string(result.State), "error", err)
		return err
	}

	logger.Info("cycle finished",
		"cycle", result.CycleID,
		"state", string(result.State),
		"fetched", result.Fetched,
		"selected", len(result.Top),
		"digest", result.DigestURL)
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("daemon started", "checkInterval", cfg.Schedule.CheckInterval().String())
	return application.RunDaemon(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
