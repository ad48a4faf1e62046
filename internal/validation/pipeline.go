package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/hmoon/edgeforge/internal/backtest"
	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/pkg/config"
	"github.com/hmoon/edgeforge/pkg/logger"
)

// BacktestRunner is what the pipeline needs from the backtest engine
type BacktestRunner interface {
	Run(ctx context.Context, cand *contracts.EdgeCandidate, from, to time.Time, opts backtest.RunOptions) (*contracts.BacktestResult, error)
}

// Pipeline runs the four-gate validation sequence. All thresholds come
// from config so a run is reproducible from config plus the recorded
// attack seed alone.
type Pipeline struct {
	runner BacktestRunner
	cfg    config.PipelineConfig
	log    *logger.Logger
}

// NewPipeline creates a validation pipeline
func NewPipeline(runner BacktestRunner, cfg config.PipelineConfig, log *logger.Logger) *Pipeline {
	return &Pipeline{
		runner: runner,
		cfg:    cfg,
		log:    log,
	}
}

// Validate runs the gates in order: baseline, cost realism, adversarial,
// regime split. The first failure is terminal; later gates never run.
// A gate failure is NOT an error — the result carries the failed gate and
// the reason. An error means the run itself could not complete and
// nothing about the candidate should be concluded from it.
func (p *Pipeline) Validate(ctx context.Context, cand *contracts.EdgeCandidate, from, to time.Time) (*contracts.ValidationResult, error) {
	res := &contracts.ValidationResult{
		CandidateID: cand.ID,
		Hash:        cand.Hash,
		AttackSeed:  p.cfg.AttackSeed,
		From:        from,
		To:          to,
		CreatedAt:   time.Now().UTC(),
	}

	baseline, err := p.runner.Run(ctx, cand, from, to, backtest.RunOptions{})
	if err != nil {
		return nil, fmt.Errorf("baseline run: %w", err)
	}
	res.TradeCount = baseline.TradeCount
	res.WinRate = baseline.WinRate
	res.AvgR = baseline.AvgR
	res.MaxDrawdownR = baseline.MaxDrawdownR

	gates := []func(ctx context.Context, cand *contracts.EdgeCandidate, from, to time.Time, baseline *contracts.BacktestResult) (contracts.GateResult, error){
		p.baselineGate,
		p.costGate,
		p.attackGate,
		p.regimeGate,
	}

	for _, gate := range gates {
		gr, err := gate(ctx, cand, from, to, baseline)
		if err != nil {
			return nil, err
		}
		res.Gates = append(res.Gates, gr)

		if !gr.Passed {
			res.FailedGate = gr.Gate
			res.FailureReason = gr.Detail
			p.log.WithFields(map[string]interface{}{
				"candidate_id": cand.ID,
				"hash":         cand.Hash,
				"gate":         string(gr.Gate),
				"reason":       gr.Detail,
			}).Info("Candidate failed validation")
			return res, nil
		}
	}

	res.Passed = true
	for _, g := range res.Gates {
		res.SurvivalScore += g.Score
	}
	res.Confidence = contracts.ConfidenceFor(res.SurvivalScore, res.TradeCount)

	p.log.WithFields(map[string]interface{}{
		"candidate_id":   cand.ID,
		"hash":           cand.Hash,
		"survival_score": res.SurvivalScore,
		"confidence":     string(res.Confidence),
		"trades":         res.TradeCount,
	}).Info("Candidate survived validation")

	return res, nil
}
