package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashParams(t *testing.T) CandidateParams {
	t.Helper()
	return CandidateParams{
		Symbol: "ES",
		Window: TimeWindow{Kind: WindowOpeningRange, StartMinute: 810, EndMinute: 825},
		Entry:  EntrySpec{Style: EntryBreakoutClose, ConfirmBars: 1},
		Exit:   ExitSpec{Style: ExitFixedR, StopMode: StopFull, RewardR: 2.0},
		Risk:   RiskSpec{Model: RiskFixedPct, RiskPct: 1.0},
		Filters: []FilterSpec{
			{Kind: FilterMinORBSize, Min: 0.25},
			{Kind: FilterATRRange, Min: 0.5, Max: 5.0},
		},
	}
}

func TestHash_Deterministic(t *testing.T) {
	p := hashParams(t)

	h1, err := p.Hash()
	require.NoError(t, err)
	h2, err := p.Hash()
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // hex-encoded SHA-256
}

func TestHash_FilterOrderIsIrrelevant(t *testing.T) {
	a := hashParams(t)
	b := hashParams(t)
	b.Filters = []FilterSpec{b.Filters[1], b.Filters[0]}

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
}

func TestHash_NilAndEmptyFiltersCollide(t *testing.T) {
	a := hashParams(t)
	a.Filters = nil
	b := hashParams(t)
	b.Filters = []FilterSpec{}

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
}

func TestHash_BehavioralChangesChangeTheHash(t *testing.T) {
	base := hashParams(t)
	baseHash, err := base.Hash()
	require.NoError(t, err)

	mutations := []struct {
		name   string
		mutate func(*CandidateParams)
	}{
		{"symbol", func(p *CandidateParams) { p.Symbol = "NQ" }},
		{"window end", func(p *CandidateParams) { p.Window.EndMinute = 840 }},
		{"confirm bars", func(p *CandidateParams) { p.Entry.ConfirmBars = 2 }},
		{"reward", func(p *CandidateParams) { p.Exit.RewardR = 1.5 }},
		{"stop mode", func(p *CandidateParams) { p.Exit.StopMode = StopHalf }},
		{"risk model", func(p *CandidateParams) { p.Risk.Model = RiskVolScaled }},
		{"filter bound", func(p *CandidateParams) { p.Filters[0].Min = 0.5 }},
		{"filter dropped", func(p *CandidateParams) { p.Filters = p.Filters[:1] }},
	}

	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			p := hashParams(t)
			m.mutate(&p)
			h, err := p.Hash()
			require.NoError(t, err)
			assert.NotEqual(t, baseHash, h)
		})
	}
}

func TestHash_IgnoresInapplicableStyleFields(t *testing.T) {
	base := hashParams(t)
	baseHash, err := base.Hash()
	require.NoError(t, err)

	strays := []struct {
		name   string
		mutate func(*CandidateParams)
	}{
		{"atr mult on fixed-r exit", func(p *CandidateParams) { p.Exit.ATRMult = 1.5 }},
		{"hold bars on fixed-r exit", func(p *CandidateParams) { p.Exit.MaxHoldBars = 24 }},
		{"max on min-orb-size filter", func(p *CandidateParams) { p.Filters[0].Max = 3.0 }},
	}

	for _, s := range strays {
		t.Run(s.name, func(t *testing.T) {
			p := hashParams(t)
			s.mutate(&p)
			h, err := p.Hash()
			require.NoError(t, err)
			assert.Equal(t, baseHash, h)
		})
	}

	// The same fields still count where the style reads them.
	timeBoxed := hashParams(t)
	timeBoxed.Exit.Style = ExitTimeBoxed
	timeBoxed.Exit.MaxHoldBars = 12
	h12, err := timeBoxed.Hash()
	require.NoError(t, err)
	timeBoxed.Exit.MaxHoldBars = 24
	h24, err := timeBoxed.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h12, h24)
}

func TestComputeHash_IgnoresNonBehavioralFields(t *testing.T) {
	a := EdgeCandidate{HumanName: "morning breakout", Params: hashParams(t), GeneratorMode: "full"}
	b := EdgeCandidate{HumanName: "completely different label", Params: hashParams(t), GeneratorMode: "sampled"}

	ha, err := a.ComputeHash()
	require.NoError(t, err)
	hb, err := b.ComputeHash()
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Equal(t, ha, a.Hash)
}

func TestWindowDuration(t *testing.T) {
	w := TimeWindow{Kind: WindowOpeningRange, StartMinute: 810, EndMinute: 825}
	assert.Equal(t, 15, w.Duration())

	inverted := TimeWindow{StartMinute: 825, EndMinute: 810}
	assert.Negative(t, inverted.Duration())
}
