package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/pkg/logger"
)

// Drift thresholds frozen into an edge at approval, relative to the
// validated metrics snapshot.
const (
	driftWinRateFactor  = 0.8
	driftDrawdownFactor = 1.5
)

// Validator is what the manager needs from the validation pipeline
type Validator interface {
	Validate(ctx context.Context, cand *contracts.EdgeCandidate, from, to time.Time) (*contracts.ValidationResult, error)
}

// Manager owns the candidate lifecycle: submission into the registry,
// driving candidates through validation, and the human approve/reject
// step that ends in the frozen edge manifest. All status changes go
// through here so the one-way state machine is enforced in one place.
type Manager struct {
	candidates contracts.CandidateRepository
	survivors  contracts.SurvivorRepository
	edges      contracts.EdgeRepository
	validator  Validator
	log        *logger.Logger
}

// NewManager creates a lifecycle manager
func NewManager(
	candidates contracts.CandidateRepository,
	survivors contracts.SurvivorRepository,
	edges contracts.EdgeRepository,
	validator Validator,
	log *logger.Logger,
) *Manager {
	return &Manager{
		candidates: candidates,
		survivors:  survivors,
		edges:      edges,
		validator:  validator,
		log:        log,
	}
}

// Submit registers a new candidate. Schema violations return a
// *SchemaError, content-hash collisions a *DuplicateError naming the
// existing candidate; neither writes anything.
func (m *Manager) Submit(ctx context.Context, cand *contracts.EdgeCandidate) error {
	if err := validateParams(cand.Params); err != nil {
		return err
	}

	hash, err := cand.ComputeHash()
	if err != nil {
		return fmt.Errorf("hash candidate: %w", err)
	}

	existing, err := m.candidates.GetByHash(ctx, hash)
	if err != nil && !errors.Is(err, contracts.ErrNotFound) {
		return fmt.Errorf("hash lookup: %w", err)
	}
	if existing != nil {
		return &DuplicateError{Hash: hash, ExistingID: existing.ID, Status: existing.Status}
	}

	cand.Status = contracts.StatusGenerated
	if err := m.candidates.Insert(ctx, cand); err != nil {
		return fmt.Errorf("insert candidate: %w", err)
	}

	m.log.WithFields(map[string]interface{}{
		"candidate_id": cand.ID,
		"hash":         cand.Hash,
		"name":         cand.HumanName,
	}).Debug("Candidate submitted")
	return nil
}

// RunValidation drives one candidate through the gate pipeline and
// applies the resulting status transition. A candidate already in
// TESTING is picked up where it was left (interrupted earlier run);
// any other non-GENERATED status is refused.
//
// A pipeline error leaves the candidate in TESTING with no verdict
// recorded; the periodic sweep retries it.
func (m *Manager) RunValidation(ctx context.Context, candidateID int64, from, to time.Time) (*contracts.ValidationResult, error) {
	cand, err := m.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("load candidate %d: %w", candidateID, err)
	}

	switch cand.Status {
	case contracts.StatusGenerated:
		if err := m.transition(ctx, cand.ID, contracts.StatusGenerated, contracts.StatusTesting, ""); err != nil {
			return nil, err
		}
	case contracts.StatusTesting:
		// resume
	default:
		return nil, fmt.Errorf("candidate %d is %s, validation requires GENERATED", candidateID, cand.Status)
	}

	res, err := m.validator.Validate(ctx, cand, from, to)
	if err != nil {
		return nil, fmt.Errorf("validate candidate %d: %w", candidateID, err)
	}

	if !res.Passed {
		if err := m.transition(ctx, cand.ID, contracts.StatusTesting, failStatusFor(res.FailedGate), res.FailureReason); err != nil {
			return nil, err
		}
		return res, nil
	}

	if err := m.survivors.Insert(ctx, res); err != nil {
		return nil, fmt.Errorf("record survivor %d: %w", candidateID, err)
	}
	if err := m.transition(ctx, cand.ID, contracts.StatusTesting, contracts.StatusSurvivor, ""); err != nil {
		return nil, err
	}
	// Survivors queue for human review immediately
	if err := m.transition(ctx, cand.ID, contracts.StatusSurvivor, contracts.StatusPendingApproval, ""); err != nil {
		return nil, err
	}
	return res, nil
}

// Approve turns a pending survivor into an approved edge. Approval is
// idempotent by content hash: approving an already-approved candidate
// returns the existing manifest entry unchanged.
func (m *Manager) Approve(ctx context.Context, candidateID int64, approvedBy string) (*contracts.ApprovedEdge, error) {
	cand, err := m.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("load candidate %d: %w", candidateID, err)
	}

	if edge, err := m.edges.GetByHash(ctx, cand.Hash); err == nil {
		return edge, nil
	} else if !errors.Is(err, contracts.ErrNotFound) {
		return nil, fmt.Errorf("manifest lookup: %w", err)
	}

	if cand.Status != contracts.StatusPendingApproval {
		return nil, fmt.Errorf("candidate %d is %s, approval requires PENDING_APPROVAL", candidateID, cand.Status)
	}

	res, err := m.survivors.GetByCandidateID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("load validation result for %d: %w", candidateID, err)
	}

	version, err := m.edges.NextVersion(ctx, cand.HumanName)
	if err != nil {
		return nil, fmt.Errorf("next version for %q: %w", cand.HumanName, err)
	}

	edge := &contracts.ApprovedEdge{
		CandidateID: cand.ID,
		Hash:        cand.Hash,
		Version:     version,
		HumanName:   cand.HumanName,
		Params:      cand.Params,
		ApprovedBy:  approvedBy,
		ApprovedAt:  time.Now().UTC(),
		Status:      contracts.EdgeActive,

		SurvivalScore: res.SurvivalScore,
		Confidence:    res.Confidence,
		TradeCount:    res.TradeCount,
		AvgR:          res.AvgR,
		MaxDrawdownR:  res.MaxDrawdownR,

		DriftMinWinRate:   res.WinRate * driftWinRateFactor,
		DriftMaxDrawdownR: res.MaxDrawdownR * driftDrawdownFactor,
	}

	if err := m.edges.Insert(ctx, edge); err != nil {
		return nil, fmt.Errorf("insert edge: %w", err)
	}
	if err := m.transition(ctx, cand.ID, contracts.StatusPendingApproval, contracts.StatusApproved, ""); err != nil {
		return nil, err
	}

	m.log.WithFields(map[string]interface{}{
		"edge_id":     edge.ID,
		"hash":        edge.Hash,
		"version":     edge.Version,
		"approved_by": approvedBy,
	}).Info("Edge approved")
	return edge, nil
}

// Reject closes a pending survivor without approval. Terminal.
func (m *Manager) Reject(ctx context.Context, candidateID int64, reason string) error {
	if reason == "" {
		return &SchemaError{Field: "reason", Reason: "rejection requires a reason"}
	}

	cand, err := m.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return fmt.Errorf("load candidate %d: %w", candidateID, err)
	}
	if cand.Status != contracts.StatusPendingApproval {
		return fmt.Errorf("candidate %d is %s, rejection requires PENDING_APPROVAL", candidateID, cand.Status)
	}

	return m.transition(ctx, cand.ID, contracts.StatusPendingApproval, contracts.StatusRejected, reason)
}

// SetEdgeStatus changes an approved edge's operational status. Retired
// edges are immutable; parameters are never touched here or anywhere.
func (m *Manager) SetEdgeStatus(ctx context.Context, edgeID int64, status contracts.EdgeStatus) error {
	if !status.Valid() {
		return &SchemaError{Field: "status", Reason: fmt.Sprintf("unknown edge status %q", status)}
	}

	edge, err := m.edges.GetByID(ctx, edgeID)
	if err != nil {
		return fmt.Errorf("load edge %d: %w", edgeID, err)
	}
	if edge.Status == contracts.EdgeRetired {
		return fmt.Errorf("edge %d is RETIRED and immutable", edgeID)
	}

	return m.edges.UpdateStatus(ctx, edgeID, status)
}

// Manifest returns the full approved-edge manifest
func (m *Manager) Manifest(ctx context.Context) ([]*contracts.ApprovedEdge, error) {
	return m.edges.List(ctx)
}

// transition applies one legal state-machine step
func (m *Manager) transition(ctx context.Context, id int64, from, to contracts.CandidateStatus, reason string) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("illegal transition %s -> %s for candidate %d", from, to, id)
	}
	if err := m.candidates.UpdateStatus(ctx, id, from, to, reason); err != nil {
		return fmt.Errorf("transition candidate %d %s -> %s: %w", id, from, to, err)
	}
	return nil
}

// failStatusFor maps a failed gate to the candidate's terminal status
func failStatusFor(gate contracts.GateName) contracts.CandidateStatus {
	switch gate {
	case contracts.GateBaseline:
		return contracts.StatusBacktestFailed
	case contracts.GateAttack:
		return contracts.StatusAttackFailed
	default:
		return contracts.StatusValidationFailed
	}
}
