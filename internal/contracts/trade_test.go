package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeClosed(t *testing.T) {
	assert.True(t, OutcomeWin.Closed())
	assert.True(t, OutcomeLoss.Closed())

	open := []Outcome{
		OutcomeNoTrade, OutcomeSkippedNoORB, OutcomeSkippedNoBars,
		OutcomeSkippedNoEntry, OutcomeSkippedBigStop, OutcomeSkippedFiltered,
	}
	for _, o := range open {
		assert.False(t, o.Closed(), "%s is not a closed position", o)
	}
}

func TestOutcomeEntered(t *testing.T) {
	assert.True(t, OutcomeWin.Entered())
	assert.True(t, OutcomeLoss.Entered())
	assert.True(t, OutcomeNoTrade.Entered())

	skipped := []Outcome{
		OutcomeSkippedNoORB, OutcomeSkippedNoBars,
		OutcomeSkippedNoEntry, OutcomeSkippedBigStop, OutcomeSkippedFiltered,
	}
	for _, o := range skipped {
		assert.False(t, o.Entered(), "%s never opened a position", o)
	}
}
