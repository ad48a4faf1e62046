package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_OneWayMachine(t *testing.T) {
	tests := []struct {
		name    string
		from    CandidateStatus
		to      CandidateStatus
		allowed bool
	}{
		{"generated to testing", StatusGenerated, StatusTesting, true},
		{"generated to duplicate", StatusGenerated, StatusDuplicate, true},
		{"generated to invalid", StatusGenerated, StatusInvalid, true},
		{"testing to survivor", StatusTesting, StatusSurvivor, true},
		{"testing to backtest failed", StatusTesting, StatusBacktestFailed, true},
		{"testing to attack failed", StatusTesting, StatusAttackFailed, true},
		{"testing to validation failed", StatusTesting, StatusValidationFailed, true},
		{"survivor to pending approval", StatusSurvivor, StatusPendingApproval, true},
		{"pending to approved", StatusPendingApproval, StatusApproved, true},
		{"pending to rejected", StatusPendingApproval, StatusRejected, true},

		{"no skipping testing", StatusGenerated, StatusSurvivor, false},
		{"no direct approval", StatusGenerated, StatusApproved, false},
		{"testing cannot approve", StatusTesting, StatusApproved, false},
		{"survivor cannot regress", StatusSurvivor, StatusTesting, false},
		{"no backwards from testing", StatusTesting, StatusGenerated, false},
		{"rejected is final", StatusRejected, StatusPendingApproval, false},
		{"approved is final", StatusApproved, StatusTesting, false},
		{"failure is final", StatusBacktestFailed, StatusTesting, false},
		{"self transition", StatusTesting, StatusTesting, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestTerminal(t *testing.T) {
	terminal := []CandidateStatus{
		StatusDuplicate, StatusInvalid,
		StatusBacktestFailed, StatusAttackFailed, StatusValidationFailed,
		StatusApproved, StatusRejected,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	live := []CandidateStatus{
		StatusGenerated, StatusTesting, StatusSurvivor, StatusPendingApproval,
	}
	for _, s := range live {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestCandidateStatusValid(t *testing.T) {
	assert.True(t, StatusGenerated.Valid())
	assert.True(t, StatusRejected.Valid())
	assert.False(t, CandidateStatus("ARCHIVED").Valid())
	assert.False(t, CandidateStatus("").Valid())
}

func TestEdgeStatusValid(t *testing.T) {
	assert.True(t, EdgeActive.Valid())
	assert.True(t, EdgeSuspended.Valid())
	assert.True(t, EdgeRetired.Valid())
	assert.False(t, EdgeStatus("DELETED").Valid())
	assert.False(t, EdgeStatus("").Valid())
}
