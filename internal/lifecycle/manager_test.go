package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/pkg/logger"
)

type fakeValidator struct {
	result *contracts.ValidationResult
	err    error
}

func (f *fakeValidator) Validate(_ context.Context, cand *contracts.EdgeCandidate, from, to time.Time) (*contracts.ValidationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.CandidateID = cand.ID
	res.Hash = cand.Hash
	res.From = from
	res.To = to
	return &res, nil
}

func newTestManager(v Validator) (*Manager, *MemCandidateRepository, *MemSurvivorRepository, *MemEdgeRepository) {
	candidates := NewMemCandidateRepository()
	survivors := NewMemSurvivorRepository()
	edges := NewMemEdgeRepository()
	m := NewManager(candidates, survivors, edges, v, logger.NewNop())
	return m, candidates, survivors, edges
}

func validCandidate(name string, rewardR float64) *contracts.EdgeCandidate {
	return &contracts.EdgeCandidate{
		HumanName: name,
		Params: contracts.CandidateParams{
			Symbol: "ES",
			Window: contracts.TimeWindow{Kind: contracts.WindowOpeningRange, StartMinute: 810, EndMinute: 825},
			Entry:  contracts.EntrySpec{Style: contracts.EntryBreakoutClose, ConfirmBars: 1},
			Exit:   contracts.ExitSpec{Style: contracts.ExitFixedR, StopMode: contracts.StopFull, RewardR: rewardR},
			Risk:   contracts.RiskSpec{Model: contracts.RiskFixedPct, RiskPct: 1.0},
		},
	}
}

func passedResult() *contracts.ValidationResult {
	return &contracts.ValidationResult{
		Passed:        true,
		SurvivalScore: 72.5,
		Confidence:    contracts.ConfidenceHigh,
		TradeCount:    80,
		WinRate:       0.55,
		AvgR:          0.4,
		MaxDrawdownR:  6.0,
		AttackSeed:    1337,
	}
}

func failedResult(gate contracts.GateName) *contracts.ValidationResult {
	return &contracts.ValidationResult{
		Passed:        false,
		FailedGate:    gate,
		FailureReason: "did not make it",
	}
}

func window() (time.Time, time.Time) {
	return time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func TestManager_SubmitRejectsSchemaViolations(t *testing.T) {
	m, _, _, _ := newTestManager(&fakeValidator{})

	cases := []struct {
		name   string
		mutate func(*contracts.EdgeCandidate)
	}{
		{"missing symbol", func(c *contracts.EdgeCandidate) { c.Params.Symbol = "" }},
		{"inverted window", func(c *contracts.EdgeCandidate) { c.Params.Window.EndMinute = 800 }},
		{"zero reward", func(c *contracts.EdgeCandidate) { c.Params.Exit.RewardR = 0 }},
		{"unknown entry style", func(c *contracts.EdgeCandidate) { c.Params.Entry.Style = "YOLO" }},
		{"zero confirm bars", func(c *contracts.EdgeCandidate) { c.Params.Entry.ConfirmBars = 0 }},
		{"oversized risk", func(c *contracts.EdgeCandidate) { c.Params.Risk.RiskPct = 10 }},
		{"bad filter bounds", func(c *contracts.EdgeCandidate) {
			c.Params.Filters = []contracts.FilterSpec{{Kind: contracts.FilterATRRange, Min: 2, Max: 1}}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cand := validCandidate("bad", 2.0)
			tc.mutate(cand)

			err := m.Submit(context.Background(), cand)
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.NotEmpty(t, schemaErr.Field)
		})
	}
}

func TestManager_SubmitDuplicateReportsExistingCandidate(t *testing.T) {
	m, _, _, _ := newTestManager(&fakeValidator{})
	ctx := context.Background()

	first := validCandidate("orb breakout", 2.0)
	require.NoError(t, m.Submit(ctx, first))
	require.NotZero(t, first.ID)

	// Different human name, identical parameters: same content hash
	again := validCandidate("totally new idea", 2.0)
	err := m.Submit(ctx, again)

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.Hash, dup.Hash)
	assert.Equal(t, first.ID, dup.ExistingID)
	assert.Equal(t, contracts.StatusGenerated, dup.Status)
}

func TestManager_SubmitDuplicateCarriesCurrentStatus(t *testing.T) {
	m, candidates, _, _ := newTestManager(&fakeValidator{result: passedResult()})
	ctx := context.Background()

	first := validCandidate("orb breakout", 2.0)
	require.NoError(t, m.Submit(ctx, first))
	from, to := window()
	_, err := m.RunValidation(ctx, first.ID, from, to)
	require.NoError(t, err)

	again := validCandidate("resubmitted twin", 2.0)
	err = m.Submit(ctx, again)

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.ExistingID)
	assert.Equal(t, contracts.StatusPendingApproval, dup.Status)

	stored, err := candidates.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Status, dup.Status)
}

func TestManager_SurvivorReachesPendingApproval(t *testing.T) {
	m, candidates, survivors, _ := newTestManager(&fakeValidator{result: passedResult()})
	ctx := context.Background()
	from, to := window()

	cand := validCandidate("orb breakout", 2.0)
	require.NoError(t, m.Submit(ctx, cand))

	res, err := m.RunValidation(ctx, cand.ID, from, to)
	require.NoError(t, err)
	assert.True(t, res.Passed)

	stored, err := candidates.GetByID(ctx, cand.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusPendingApproval, stored.Status)

	rec, err := survivors.GetByCandidateID(ctx, cand.ID)
	require.NoError(t, err)
	assert.Equal(t, cand.Hash, rec.Hash)
	assert.InDelta(t, 72.5, rec.SurvivalScore, 1e-9)
}

func TestManager_GateFailureMapsToTerminalStatus(t *testing.T) {
	cases := []struct {
		gate   contracts.GateName
		status contracts.CandidateStatus
	}{
		{contracts.GateBaseline, contracts.StatusBacktestFailed},
		{contracts.GateCost, contracts.StatusValidationFailed},
		{contracts.GateAttack, contracts.StatusAttackFailed},
		{contracts.GateRegime, contracts.StatusValidationFailed},
	}

	for _, tc := range cases {
		t.Run(string(tc.gate), func(t *testing.T) {
			m, candidates, survivors, _ := newTestManager(&fakeValidator{result: failedResult(tc.gate)})
			ctx := context.Background()
			from, to := window()

			cand := validCandidate("doomed", 2.0)
			require.NoError(t, m.Submit(ctx, cand))

			res, err := m.RunValidation(ctx, cand.ID, from, to)
			require.NoError(t, err)
			assert.False(t, res.Passed)

			stored, err := candidates.GetByID(ctx, cand.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.status, stored.Status)
			assert.True(t, stored.Status.Terminal())
			assert.Equal(t, "did not make it", stored.FailureReason)

			_, err = survivors.GetByCandidateID(ctx, cand.ID)
			assert.ErrorIs(t, err, contracts.ErrNotFound)
		})
	}
}

func TestManager_ValidationRefusesWrongStatus(t *testing.T) {
	m, _, _, _ := newTestManager(&fakeValidator{result: failedResult(contracts.GateBaseline)})
	ctx := context.Background()
	from, to := window()

	cand := validCandidate("once only", 2.0)
	require.NoError(t, m.Submit(ctx, cand))
	_, err := m.RunValidation(ctx, cand.ID, from, to)
	require.NoError(t, err)

	// Terminal candidates never re-enter the pipeline
	_, err = m.RunValidation(ctx, cand.ID, from, to)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKTEST_FAILED")
}

func TestManager_PipelineErrorLeavesCandidateTesting(t *testing.T) {
	m, candidates, _, _ := newTestManager(&fakeValidator{err: errors.New("bar store down")})
	ctx := context.Background()
	from, to := window()

	cand := validCandidate("unlucky", 2.0)
	require.NoError(t, m.Submit(ctx, cand))

	_, err := m.RunValidation(ctx, cand.ID, from, to)
	require.Error(t, err)

	stored, err := candidates.GetByID(ctx, cand.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusTesting, stored.Status)
}

func TestManager_ApproveFreezesSnapshotAndDrift(t *testing.T) {
	m, candidates, _, _ := newTestManager(&fakeValidator{result: passedResult()})
	ctx := context.Background()
	from, to := window()

	cand := validCandidate("orb breakout", 2.0)
	require.NoError(t, m.Submit(ctx, cand))
	_, err := m.RunValidation(ctx, cand.ID, from, to)
	require.NoError(t, err)

	edge, err := m.Approve(ctx, cand.ID, "hmoon")
	require.NoError(t, err)

	assert.Equal(t, cand.Hash, edge.Hash)
	assert.Equal(t, 1, edge.Version)
	assert.Equal(t, contracts.EdgeActive, edge.Status)
	assert.Equal(t, "hmoon", edge.ApprovedBy)
	assert.InDelta(t, 72.5, edge.SurvivalScore, 1e-9)
	assert.InDelta(t, 0.55*0.8, edge.DriftMinWinRate, 1e-9)
	assert.InDelta(t, 6.0*1.5, edge.DriftMaxDrawdownR, 1e-9)

	stored, err := candidates.GetByID(ctx, cand.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusApproved, stored.Status)
}

func TestManager_ApproveIsIdempotentByHash(t *testing.T) {
	m, _, _, _ := newTestManager(&fakeValidator{result: passedResult()})
	ctx := context.Background()
	from, to := window()

	cand := validCandidate("orb breakout", 2.0)
	require.NoError(t, m.Submit(ctx, cand))
	_, err := m.RunValidation(ctx, cand.ID, from, to)
	require.NoError(t, err)

	first, err := m.Approve(ctx, cand.ID, "hmoon")
	require.NoError(t, err)

	second, err := m.Approve(ctx, cand.ID, "someone else")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, "hmoon", second.ApprovedBy) // original approval stands
}

func TestManager_ApproveRequiresPendingApproval(t *testing.T) {
	m, _, _, _ := newTestManager(&fakeValidator{result: passedResult()})
	ctx := context.Background()

	cand := validCandidate("too eager", 2.0)
	require.NoError(t, m.Submit(ctx, cand))

	_, err := m.Approve(ctx, cand.ID, "hmoon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GENERATED")
}

func TestManager_RejectIsTerminal(t *testing.T) {
	m, candidates, _, _ := newTestManager(&fakeValidator{result: passedResult()})
	ctx := context.Background()
	from, to := window()

	cand := validCandidate("not good enough", 2.0)
	require.NoError(t, m.Submit(ctx, cand))
	_, err := m.RunValidation(ctx, cand.ID, from, to)
	require.NoError(t, err)

	require.Error(t, m.Reject(ctx, cand.ID, ""))
	require.NoError(t, m.Reject(ctx, cand.ID, "drawdown too deep for the book"))

	stored, err := candidates.GetByID(ctx, cand.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusRejected, stored.Status)
	assert.True(t, stored.Status.Terminal())

	_, err = m.Approve(ctx, cand.ID, "hmoon")
	require.Error(t, err)
}

func TestManager_RetiredEdgeIsImmutable(t *testing.T) {
	m, _, _, edges := newTestManager(&fakeValidator{result: passedResult()})
	ctx := context.Background()
	from, to := window()

	cand := validCandidate("orb breakout", 2.0)
	require.NoError(t, m.Submit(ctx, cand))
	_, err := m.RunValidation(ctx, cand.ID, from, to)
	require.NoError(t, err)
	edge, err := m.Approve(ctx, cand.ID, "hmoon")
	require.NoError(t, err)

	require.NoError(t, m.SetEdgeStatus(ctx, edge.ID, contracts.EdgeSuspended))
	require.NoError(t, m.SetEdgeStatus(ctx, edge.ID, contracts.EdgeRetired))

	err = m.SetEdgeStatus(ctx, edge.ID, contracts.EdgeActive)
	require.Error(t, err)

	stored, err := edges.GetByID(ctx, edge.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.EdgeRetired, stored.Status)
}

func TestManager_VersionIncrementsPerName(t *testing.T) {
	m, _, _, _ := newTestManager(&fakeValidator{result: passedResult()})
	ctx := context.Background()
	from, to := window()

	first := validCandidate("orb breakout", 2.0)
	require.NoError(t, m.Submit(ctx, first))
	_, err := m.RunValidation(ctx, first.ID, from, to)
	require.NoError(t, err)
	e1, err := m.Approve(ctx, first.ID, "hmoon")
	require.NoError(t, err)

	// Same name, different parameters: a re-parameterization
	second := validCandidate("orb breakout", 3.0)
	require.NoError(t, m.Submit(ctx, second))
	_, err = m.RunValidation(ctx, second.ID, from, to)
	require.NoError(t, err)
	e2, err := m.Approve(ctx, second.ID, "hmoon")
	require.NoError(t, err)

	assert.Equal(t, 1, e1.Version)
	assert.Equal(t, 2, e2.Version)
	assert.NotEqual(t, e1.Hash, e2.Hash)
}
