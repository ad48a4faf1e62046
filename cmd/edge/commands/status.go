package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hmoon/edgeforge/internal/contracts"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline backlog and the approved-edge manifest",
	Long: `Prints the candidate population broken down by lifecycle status,
followed by the current approved-edge manifest.

Example:
  go run ./cmd/edge status`,
	RunE: runStatus,
}

// edgeStatusCmd represents the edge-status command
var edgeStatusCmd = &cobra.Command{
	Use:   "edge-status <edge-id> <ACTIVE|SUSPENDED|RETIRED>",
	Short: "Change an approved edge's operational status",
	Long: `Flips an approved edge between ACTIVE, SUSPENDED and RETIRED.
RETIRED is terminal: a retired edge never changes status again. The
edge's parameters and metrics snapshot stay frozen either way.

Example:
  go run ./cmd/edge edge-status 3 SUSPENDED`,
	Args: cobra.ExactArgs(2),
	RunE: runEdgeStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(edgeStatusCmd)
}

// statusOrder keeps the breakdown readable: pipeline order, not map order
var statusOrder = []contracts.CandidateStatus{
	contracts.StatusGenerated,
	contracts.StatusDuplicate,
	contracts.StatusInvalid,
	contracts.StatusTesting,
	contracts.StatusBacktestFailed,
	contracts.StatusAttackFailed,
	contracts.StatusValidationFailed,
	contracts.StatusSurvivor,
	contracts.StatusPendingApproval,
	contracts.StatusApproved,
	contracts.StatusRejected,
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== edgeforge Pipeline Status ===")

	d, cleanup, err := initDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()

	counts, err := d.candidates.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("count candidates: %w", err)
	}

	fmt.Println("\n📋 Candidates")
	var total int
	for _, s := range statusOrder {
		if n, ok := counts[s]; ok {
			fmt.Printf("  %-20s %d\n", s, n)
			total += n
		}
	}
	fmt.Printf("  %-20s %d\n", "TOTAL", total)

	manifest, err := d.manager.Manifest(ctx)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	fmt.Printf("\n🏆 Approved Edges (%d)\n", len(manifest))
	if len(manifest) == 0 {
		fmt.Println("  (none)")
	}
	for _, e := range manifest {
		fmt.Printf("  [%d] %s v%d  %s  score=%.1f %s  trades=%d avgR=%.2f\n",
			e.ID, e.HumanName, e.Version, e.Status,
			e.SurvivalScore, e.Confidence, e.TradeCount, e.AvgR)
	}

	runs, err := d.audit.List(ctx, 5)
	if err != nil {
		return fmt.Errorf("load generation log: %w", err)
	}
	if len(runs) > 0 {
		fmt.Println("\n🧾 Recent Generation Runs")
		for _, r := range runs {
			fmt.Printf("  %s  %s %s seed=%d  generated=%d accepted=%d\n",
				r.CreatedAt.Format("2006-01-02 15:04"), r.Symbol, r.Mode, r.Seed, r.Generated, r.Accepted)
		}
	}
	return nil
}

func runEdgeStatus(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid edge id %q", args[0])
	}
	status := contracts.EdgeStatus(strings.ToUpper(args[1]))

	d, cleanup, err := initDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := d.manager.SetEdgeStatus(context.Background(), id, status); err != nil {
		return fmt.Errorf("set edge %d status: %w", id, err)
	}

	fmt.Printf("✅ Edge %d is now %s\n", id, status)
	return nil
}
