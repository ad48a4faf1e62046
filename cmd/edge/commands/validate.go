package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmoon/edgeforge/internal/contracts"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run candidates through the validation gauntlet",
	Long: `Backtests pending candidates over the given window and applies the
four gates in order: baseline, cost realism, adversarial, regime split.
The first failing gate is terminal for the candidate.

With --id a single candidate is validated and its gate-by-gate verdict
printed. Without it the whole GENERATED/TESTING backlog is swept with
the configured worker pool.

Example:
  go run ./cmd/edge validate --from 2023-01-01 --to 2024-12-31
  go run ./cmd/edge validate --id 42 --from 2023-01-01 --to 2024-12-31`,
	RunE: runValidate,
}

var (
	validateFrom  string
	validateTo    string
	validateID    int64
	validateBatch int
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFrom, "from", "", "test window start (YYYY-MM-DD, required)")
	validateCmd.Flags().StringVar(&validateTo, "to", "", "test window end (YYYY-MM-DD, default today)")
	validateCmd.Flags().Int64Var(&validateID, "id", 0, "validate a single candidate by ID")
	validateCmd.Flags().IntVar(&validateBatch, "batch", 200, "max candidates per sweep")
	validateCmd.MarkFlagRequired("from")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Println("=== edgeforge Validation Pipeline ===")

	from, err := time.Parse("2006-01-02", validateFrom)
	if err != nil {
		return fmt.Errorf("invalid --from date: %w", err)
	}
	to := time.Now().UTC().Truncate(24 * time.Hour)
	if validateTo != "" {
		to, err = time.Parse("2006-01-02", validateTo)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
	}
	if !to.After(from) {
		return fmt.Errorf("--to must be after --from")
	}

	d, cleanup, err := initDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	fmt.Printf("Window: %s → %s\n\n", from.Format("2006-01-02"), to.Format("2006-01-02"))

	if validateID > 0 {
		res, err := d.manager.RunValidation(ctx, validateID, from, to)
		if err != nil {
			return fmt.Errorf("validate candidate %d: %w", validateID, err)
		}
		printVerdict(res)
		return nil
	}

	stats, err := d.pool.Sweep(ctx, from, to, validateBatch)
	if err != nil {
		return fmt.Errorf("sweep backlog: %w", err)
	}

	fmt.Println("✅ Sweep Completed")
	fmt.Printf("%-14s %d\n", "Processed:", stats.Processed)
	fmt.Printf("%-14s %d\n", "Survived:", stats.Survived)
	fmt.Printf("%-14s %d\n", "Failed:", stats.Failed)
	fmt.Printf("%-14s %d\n", "Errors:", stats.Errors)
	return nil
}

func printVerdict(res *contracts.ValidationResult) {
	for _, g := range res.Gates {
		mark := "✅"
		if !g.Passed {
			mark = "❌"
		}
		fmt.Printf("%s %-13s metric=%.4f threshold=%.4f score=%.1f  %s\n",
			mark, g.Gate, g.Metric, g.Threshold, g.Score, g.Detail)
	}

	fmt.Println()
	if res.Passed {
		fmt.Println("✅ SURVIVOR")
		fmt.Printf("%-16s %.1f / 100\n", "Survival score:", res.SurvivalScore)
		fmt.Printf("%-16s %s\n", "Confidence:", res.Confidence)
		fmt.Printf("%-16s %d (win rate %.1f%%)\n", "Trades:", res.TradeCount, res.WinRate*100)
		fmt.Printf("%-16s %.3f\n", "Avg R:", res.AvgR)
		fmt.Printf("%-16s %.2f\n", "Max drawdown:", res.MaxDrawdownR)
	} else {
		fmt.Printf("❌ FAILED at %s: %s\n", res.FailedGate, res.FailureReason)
	}
}
