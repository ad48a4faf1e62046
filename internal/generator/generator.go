package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/pkg/logger"
)

// Config spans the enumeration space. The generator takes the cartesian
// product of every dimension; it asserts nothing about which combinations
// are good — that is the validation pipeline's job.
type Config struct {
	Symbol     string
	Windows    []contracts.TimeWindow
	Entries    []contracts.EntrySpec
	Exits      []contracts.ExitSpec
	Risks      []contracts.RiskSpec
	FilterSets [][]contracts.FilterSpec

	// MaxCandidates caps the emitted volume by uniform sampling without
	// replacement. 0 means emit everything.
	MaxCandidates int

	// Seed drives the sampling shuffle; recorded in the audit log so a
	// generation run can be reproduced exactly.
	Seed int64
}

// DefaultConfig is the standard opening-range sweep for one instrument.
// Session open is 13:30 UTC (09:30 New York) for the index futures the
// bar store carries.
func DefaultConfig(symbol string) Config {
	const open = 13*60 + 30

	return Config{
		Symbol: symbol,
		Windows: []contracts.TimeWindow{
			{Kind: contracts.WindowOpeningRange, StartMinute: open, EndMinute: open + 5},
			{Kind: contracts.WindowOpeningRange, StartMinute: open, EndMinute: open + 15},
			{Kind: contracts.WindowOpeningRange, StartMinute: open, EndMinute: open + 30},
			{Kind: contracts.WindowHourRange, StartMinute: open + 60, EndMinute: open + 120},
		},
		Entries: []contracts.EntrySpec{
			{Style: contracts.EntryBreakoutClose, ConfirmBars: 1},
			{Style: contracts.EntryBreakoutClose, ConfirmBars: 2},
			{Style: contracts.EntryFade, ConfirmBars: 1},
			{Style: contracts.EntryStopOrder, ConfirmBars: 1},
			{Style: contracts.EntryLimitOrder, ConfirmBars: 1},
		},
		Exits: []contracts.ExitSpec{
			{Style: contracts.ExitFixedR, StopMode: contracts.StopFull, RewardR: 1.5},
			{Style: contracts.ExitFixedR, StopMode: contracts.StopFull, RewardR: 2.0},
			{Style: contracts.ExitFixedR, StopMode: contracts.StopHalf, RewardR: 2.0},
			{Style: contracts.ExitFixedR, StopMode: contracts.StopQuarter, RewardR: 3.0},
			{Style: contracts.ExitATRScaled, StopMode: contracts.StopFull, RewardR: 2.0, ATRMult: 1.0},
			{Style: contracts.ExitHalfRange, StopMode: contracts.StopHalf, RewardR: 1.0},
			{Style: contracts.ExitTrailing, StopMode: contracts.StopFull, RewardR: 2.0},
			{Style: contracts.ExitTimeBoxed, StopMode: contracts.StopFull, RewardR: 2.0, MaxHoldBars: 24},
		},
		Risks: []contracts.RiskSpec{
			{Model: contracts.RiskFixedPct, RiskPct: 1.0},
			{Model: contracts.RiskVolScaled, RiskPct: 1.0},
		},
		FilterSets: [][]contracts.FilterSpec{
			nil,
			{{Kind: contracts.FilterMinORBSize, Min: 0.25}},
			{{Kind: contracts.FilterATRRange, Min: 0.5, Max: 5.0}},
			{
				{Kind: contracts.FilterMinORBSize, Min: 0.25},
				{Kind: contracts.FilterPriorRange, Min: 1.0, Max: 0},
			},
		},
	}
}

// Generator enumerates candidate strategies
type Generator struct {
	cfg Config
	log *logger.Logger
}

// New creates a generator over the given space
func New(cfg Config, log *logger.Logger) *Generator {
	return &Generator{cfg: cfg, log: log}
}

// Generate walks the full cartesian product, dropping content-hash
// collisions silently (the registry rejects them loudly on submission —
// this level only avoids wasted work). Returns the emitted candidates
// plus the audit record of the run.
func (g *Generator) Generate(mode string) ([]contracts.EdgeCandidate, contracts.GenerationRecord, error) {
	record := contracts.GenerationRecord{
		Mode:      mode,
		Symbol:    g.cfg.Symbol,
		Seed:      g.cfg.Seed,
		CreatedAt: time.Now().UTC(),
	}

	seen := make(map[string]struct{})
	var candidates []contracts.EdgeCandidate

	for _, window := range g.cfg.Windows {
		for _, entry := range g.cfg.Entries {
			for _, exit := range g.cfg.Exits {
				for _, risk := range g.cfg.Risks {
					for _, filters := range g.cfg.FilterSets {
						record.Generated++

						params := contracts.CandidateParams{
							Symbol:  g.cfg.Symbol,
							Window:  window,
							Entry:   entry,
							Exit:    exit,
							Risk:    risk,
							Filters: filters,
						}

						if !sane(params) {
							record.Invalid++
							continue
						}

						hash, err := params.Hash()
						if err != nil {
							return nil, record, fmt.Errorf("hash candidate: %w", err)
						}
						if _, dup := seen[hash]; dup {
							record.Duplicates++
							continue
						}
						seen[hash] = struct{}{}

						candidates = append(candidates, contracts.EdgeCandidate{
							Hash:          hash,
							HumanName:     name(params),
							Params:        params,
							GeneratorMode: mode,
							Status:        contracts.StatusGenerated,
						})
					}
				}
			}
		}
	}

	candidates = g.sample(candidates)
	record.Accepted = len(candidates)

	g.log.WithFields(map[string]interface{}{
		"mode":       mode,
		"generated":  record.Generated,
		"duplicates": record.Duplicates,
		"invalid":    record.Invalid,
		"accepted":   record.Accepted,
		"seed":       record.Seed,
	}).Info("Candidate generation completed")

	return candidates, record, nil
}

// sample caps the candidate volume by a seeded shuffle-and-truncate,
// which is uniform sampling without replacement.
func (g *Generator) sample(candidates []contracts.EdgeCandidate) []contracts.EdgeCandidate {
	if g.cfg.MaxCandidates <= 0 || len(candidates) <= g.cfg.MaxCandidates {
		return candidates
	}

	rng := rand.New(rand.NewSource(g.cfg.Seed))
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	return candidates[:g.cfg.MaxCandidates]
}

// sane filters combinations that could never simulate; full schema
// validation happens again at submission.
func sane(p contracts.CandidateParams) bool {
	if p.Window.Duration() <= 0 {
		return false
	}
	if p.Exit.RewardR <= 0 {
		return false
	}
	if p.Exit.Style == contracts.ExitATRScaled && p.Exit.ATRMult <= 0 {
		return false
	}
	if p.Exit.Style == contracts.ExitTimeBoxed && p.Exit.MaxHoldBars <= 0 {
		return false
	}
	return true
}

// name builds a readable label. Names never enter the content hash.
func name(p contracts.CandidateParams) string {
	return fmt.Sprintf("%s %dm %s/%s %s %.1fR",
		p.Symbol,
		p.Window.Duration(),
		p.Entry.Style,
		p.Exit.Style,
		p.Exit.StopMode,
		p.Exit.RewardR,
	)
}
