package contracts

// CandidateStatus is the lifecycle state of an EdgeCandidate.
//
// The machine is strictly one-way:
//
//	GENERATED → {DUPLICATE | INVALID}
//	GENERATED → TESTING → {BACKTEST_FAILED | ATTACK_FAILED | VALIDATION_FAILED | SURVIVOR}
//	SURVIVOR → PENDING_APPROVAL → {APPROVED | REJECTED}
//
// No transition ever moves a candidate backwards; failed and rejected
// states are terminal.
type CandidateStatus string

const (
	StatusGenerated        CandidateStatus = "GENERATED"
	StatusDuplicate        CandidateStatus = "DUPLICATE"
	StatusInvalid          CandidateStatus = "INVALID"
	StatusTesting          CandidateStatus = "TESTING"
	StatusBacktestFailed   CandidateStatus = "BACKTEST_FAILED"
	StatusAttackFailed     CandidateStatus = "ATTACK_FAILED"
	StatusValidationFailed CandidateStatus = "VALIDATION_FAILED"
	StatusSurvivor         CandidateStatus = "SURVIVOR"
	StatusPendingApproval  CandidateStatus = "PENDING_APPROVAL"
	StatusApproved         CandidateStatus = "APPROVED"
	StatusRejected         CandidateStatus = "REJECTED"
)

// allowedTransitions is the single source of truth for the state machine
var allowedTransitions = map[CandidateStatus][]CandidateStatus{
	StatusGenerated:       {StatusDuplicate, StatusInvalid, StatusTesting},
	StatusTesting:         {StatusBacktestFailed, StatusAttackFailed, StatusValidationFailed, StatusSurvivor},
	StatusSurvivor:        {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
}

// CanTransition reports whether moving from s to next is legal
func (s CandidateStatus) CanTransition(next CandidateStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s CandidateStatus) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

// Valid reports whether s is a known status
func (s CandidateStatus) Valid() bool {
	switch s {
	case StatusGenerated, StatusDuplicate, StatusInvalid, StatusTesting,
		StatusBacktestFailed, StatusAttackFailed, StatusValidationFailed,
		StatusSurvivor, StatusPendingApproval, StatusApproved, StatusRejected:
		return true
	}
	return false
}
