package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// approveCmd represents the approve command
var approveCmd = &cobra.Command{
	Use:   "approve <candidate-id>",
	Short: "Approve a pending survivor into the manifest",
	Long: `Promotes a PENDING_APPROVAL candidate to the approved-edge manifest.
The survivor's metrics and the drift thresholds are frozen into the
manifest entry at this moment; later revalidation never rewrites them.

Approving an already-approved candidate returns the existing manifest
entry unchanged.

Example:
  go run ./cmd/edge approve 42 --by hmoon`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

// rejectCmd represents the reject command
var rejectCmd = &cobra.Command{
	Use:   "reject <candidate-id>",
	Short: "Reject a pending survivor",
	Long: `Marks a PENDING_APPROVAL candidate REJECTED. The reason is required
and recorded on the candidate; rejection is terminal.

Example:
  go run ./cmd/edge reject 42 --reason "overlaps edge 17"`,
	Args: cobra.ExactArgs(1),
	RunE: runReject,
}

var (
	approveBy    string
	rejectReason string
)

func init() {
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)

	approveCmd.Flags().StringVar(&approveBy, "by", "", "approver name (required)")
	approveCmd.MarkFlagRequired("by")

	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "rejection reason (required)")
	rejectCmd.MarkFlagRequired("reason")
}

func runApprove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid candidate id %q", args[0])
	}

	d, cleanup, err := initDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	edge, err := d.manager.Approve(context.Background(), id, approveBy)
	if err != nil {
		return fmt.Errorf("approve candidate %d: %w", id, err)
	}

	fmt.Println("✅ Approved")
	fmt.Printf("%-20s %s v%d\n", "Edge:", edge.HumanName, edge.Version)
	fmt.Printf("%-20s %s\n", "Hash:", edge.Hash)
	fmt.Printf("%-20s %s (%s)\n", "Approved by:", edge.ApprovedBy, edge.ApprovedAt.Format("2006-01-02 15:04"))
	fmt.Printf("%-20s %.1f (%s)\n", "Survival score:", edge.SurvivalScore, edge.Confidence)
	fmt.Printf("%-20s win rate < %.1f%%, drawdown > %.2fR\n",
		"Drift thresholds:", edge.DriftMinWinRate*100, edge.DriftMaxDrawdownR)
	return nil
}

func runReject(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid candidate id %q", args[0])
	}

	d, cleanup, err := initDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := d.manager.Reject(context.Background(), id, rejectReason); err != nil {
		return fmt.Errorf("reject candidate %d: %w", id, err)
	}

	fmt.Printf("✅ Candidate %d rejected: %s\n", id, rejectReason)
	return nil
}
