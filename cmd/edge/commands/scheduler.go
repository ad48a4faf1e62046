package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hmoon/edgeforge/internal/scheduler"
	"github.com/hmoon/edgeforge/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the nightly validation sweep scheduler",
	Long: `Runs the cron scheduler in the foreground. The validation sweep
fires at 02:30 UTC daily, after bar ingestion, and drains the
GENERATED/TESTING backlog through the gate pipeline.

Example:
  go run ./cmd/edge scheduler
  go run ./cmd/edge scheduler --batch 500`,
	RunE: runScheduler,
}

var schedulerBatch int

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().IntVar(&schedulerBatch, "batch", 200, "max candidates per sweep")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== edgeforge Scheduler ===")

	d, cleanup, err := initDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	sched := scheduler.New(d.log)
	if err := sched.AddJob(jobs.NewValidationSweepJob(d.pool, schedulerBatch, d.log)); err != nil {
		return fmt.Errorf("register validation sweep: %w", err)
	}

	sched.Start()
	fmt.Println("Scheduler running. Press Ctrl+C to stop.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	d.log.WithFields(map[string]interface{}{"signal": sig.String()}).Info("Shutdown signal received")
	sched.Stop()

	fmt.Println("✅ Scheduler stopped")
	return nil
}
