package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/internal/generator"
	"github.com/hmoon/edgeforge/internal/lifecycle"
	"github.com/hmoon/edgeforge/pkg/logger"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and register edge candidates",
	Long: `Enumerates the candidate space for one instrument and submits
every combination to the registry. Structural duplicates within the run
are dropped silently; collisions with already-registered candidates are
counted and skipped.

Flags:
  --symbol   instrument to generate for (default: ES)
  --max      cap the run by seeded random sampling (0 = full product)
  --seed     sampling seed, recorded in the audit log
  --dry-run  generate and validate schemas without touching the database

Example:
  go run ./cmd/edge generate --symbol ES
  go run ./cmd/edge generate --symbol NQ --max 500 --seed 7
  go run ./cmd/edge generate --dry-run`,
	RunE: runGenerate,
}

var (
	generateSymbol string
	generateMax    int
	generateSeed   int64
	generateDryRun bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generateSymbol, "symbol", "ES", "instrument symbol")
	generateCmd.Flags().IntVar(&generateMax, "max", 0, "max candidates to emit (0 = all)")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 42, "sampling seed")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "skip persistence")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	fmt.Println("=== edgeforge Candidate Generator ===")

	var (
		manager *lifecycle.Manager
		audit   contracts.AuditLogRepository
		log     *logger.Logger
	)

	if generateDryRun {
		log = logger.NewNop()
		manager = lifecycle.NewManager(
			lifecycle.NewMemCandidateRepository(),
			lifecycle.NewMemSurvivorRepository(),
			lifecycle.NewMemEdgeRepository(),
			nil,
			log,
		)
		audit = lifecycle.NewMemAuditLogRepository()
	} else {
		d, cleanup, err := initDeps()
		if err != nil {
			return err
		}
		defer cleanup()
		log = d.log
		manager = d.manager
		audit = d.audit
	}

	genCfg := generator.DefaultConfig(generateSymbol)
	genCfg.MaxCandidates = generateMax
	genCfg.Seed = generateSeed

	mode := "full"
	if generateMax > 0 {
		mode = "sampled"
	}

	candidates, record, err := generator.New(genCfg, log).Generate(mode)
	if err != nil {
		return fmt.Errorf("generate candidates: %w", err)
	}

	ctx := context.Background()
	var submitted, duplicates, rejected int

	for i := range candidates {
		err := manager.Submit(ctx, &candidates[i])
		switch {
		case err == nil:
			submitted++
		default:
			var dup *lifecycle.DuplicateError
			var schema *lifecycle.SchemaError
			if errors.As(err, &dup) {
				duplicates++
			} else if errors.As(err, &schema) {
				rejected++
			} else {
				return fmt.Errorf("submit candidate %s: %w", candidates[i].Hash, err)
			}
		}
	}

	if err := audit.Insert(ctx, &record); err != nil {
		return fmt.Errorf("record generation run: %w", err)
	}

	fmt.Println("\n✅ Generation Completed")
	fmt.Printf("%-22s %s\n", "Symbol:", generateSymbol)
	fmt.Printf("%-22s %s (seed %d)\n", "Mode:", mode, generateSeed)
	fmt.Printf("%-22s %d\n", "Combinations:", record.Generated)
	fmt.Printf("%-22s %d\n", "Invalid:", record.Invalid)
	fmt.Printf("%-22s %d\n", "In-run duplicates:", record.Duplicates)
	fmt.Printf("%-22s %d\n", "Already registered:", duplicates)
	fmt.Printf("%-22s %d\n", "Schema rejects:", rejected)
	fmt.Printf("%-22s %d\n", "Newly registered:", submitted)
	if generateDryRun {
		fmt.Println("\n(dry run: nothing was persisted)")
	}

	return nil
}
