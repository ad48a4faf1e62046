package lifecycle

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hmoon/edgeforge/internal/contracts"
)

// In-memory repository implementations backing the CLI dry-run mode and
// tests. Semantics mirror the Postgres repositories, including the
// status guard on updates and hash uniqueness on insert.

// MemCandidateRepository is an in-memory contracts.CandidateRepository
type MemCandidateRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*contracts.EdgeCandidate
}

// NewMemCandidateRepository creates an empty in-memory registry
func NewMemCandidateRepository() *MemCandidateRepository {
	return &MemCandidateRepository{byID: make(map[int64]*contracts.EdgeCandidate)}
}

func (r *MemCandidateRepository) Insert(_ context.Context, c *contracts.EdgeCandidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Hash == c.Hash {
			return &DuplicateError{Hash: c.Hash, ExistingID: existing.ID, Status: existing.Status}
		}
	}

	r.nextID++
	c.ID = r.nextID
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	stored := *c
	r.byID[c.ID] = &stored
	return nil
}

func (r *MemCandidateRepository) GetByID(_ context.Context, id int64) (*contracts.EdgeCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemCandidateRepository) GetByHash(_ context.Context, hash string) (*contracts.EdgeCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.byID {
		if c.Hash == hash {
			cp := *c
			return &cp, nil
		}
	}
	return nil, contracts.ErrNotFound
}

func (r *MemCandidateRepository) ListByStatus(_ context.Context, status contracts.CandidateStatus, limit int) ([]*contracts.EdgeCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*contracts.EdgeCandidate
	for _, c := range r.byID {
		if c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemCandidateRepository) UpdateStatus(_ context.Context, id int64, from, to contracts.CandidateStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return contracts.ErrNotFound
	}
	if c.Status != from {
		return &staleStatusError{id: id, expected: from, actual: c.Status}
	}
	c.Status = to
	if reason != "" {
		c.FailureReason = reason
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemCandidateRepository) CountByStatus(_ context.Context) (map[contracts.CandidateStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[contracts.CandidateStatus]int)
	for _, c := range r.byID {
		counts[c.Status]++
	}
	return counts, nil
}

type staleStatusError struct {
	id       int64
	expected contracts.CandidateStatus
	actual   contracts.CandidateStatus
}

func (e *staleStatusError) Error() string {
	return "candidate " + string(e.actual) + " is not " + string(e.expected)
}

// MemSurvivorRepository is an in-memory contracts.SurvivorRepository
type MemSurvivorRepository struct {
	mu     sync.Mutex
	nextID int64
	byCand map[int64]*contracts.ValidationResult
}

// NewMemSurvivorRepository creates an empty survivor store
func NewMemSurvivorRepository() *MemSurvivorRepository {
	return &MemSurvivorRepository{byCand: make(map[int64]*contracts.ValidationResult)}
}

func (r *MemSurvivorRepository) Insert(_ context.Context, v *contracts.ValidationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	v.ID = r.nextID
	stored := *v
	r.byCand[v.CandidateID] = &stored
	return nil
}

func (r *MemSurvivorRepository) GetByCandidateID(_ context.Context, candidateID int64) (*contracts.ValidationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.byCand[candidateID]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *MemSurvivorRepository) List(_ context.Context, limit int) ([]*contracts.ValidationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*contracts.ValidationResult
	for _, v := range r.byCand {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SurvivalScore > out[j].SurvivalScore })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemEdgeRepository is an in-memory contracts.EdgeRepository
type MemEdgeRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*contracts.ApprovedEdge
}

// NewMemEdgeRepository creates an empty manifest
func NewMemEdgeRepository() *MemEdgeRepository {
	return &MemEdgeRepository{byID: make(map[int64]*contracts.ApprovedEdge)}
}

func (r *MemEdgeRepository) Insert(_ context.Context, e *contracts.ApprovedEdge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Hash == e.Hash {
			return &DuplicateError{Hash: e.Hash, ExistingID: existing.ID}
		}
	}

	r.nextID++
	e.ID = r.nextID
	stored := *e
	r.byID[e.ID] = &stored
	return nil
}

func (r *MemEdgeRepository) GetByID(_ context.Context, id int64) (*contracts.ApprovedEdge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *MemEdgeRepository) GetByHash(_ context.Context, hash string) (*contracts.ApprovedEdge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.byID {
		if e.Hash == hash {
			cp := *e
			return &cp, nil
		}
	}
	return nil, contracts.ErrNotFound
}

func (r *MemEdgeRepository) List(_ context.Context) ([]*contracts.ApprovedEdge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*contracts.ApprovedEdge
	for _, e := range r.byID {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApprovedAt.After(out[j].ApprovedAt) })
	return out, nil
}

func (r *MemEdgeRepository) UpdateStatus(_ context.Context, id int64, status contracts.EdgeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return contracts.ErrNotFound
	}
	e.Status = status
	return nil
}

func (r *MemEdgeRepository) NextVersion(_ context.Context, humanName string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	max := 0
	for _, e := range r.byID {
		if e.HumanName == humanName && e.Version > max {
			max = e.Version
		}
	}
	return max + 1, nil
}

// MemAuditLogRepository is an in-memory contracts.AuditLogRepository
type MemAuditLogRepository struct {
	mu      sync.Mutex
	nextID  int64
	records []*contracts.GenerationRecord
}

// NewMemAuditLogRepository creates an empty audit log
func NewMemAuditLogRepository() *MemAuditLogRepository {
	return &MemAuditLogRepository{}
}

func (r *MemAuditLogRepository) Insert(_ context.Context, rec *contracts.GenerationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	rec.ID = r.nextID
	stored := *rec
	r.records = append(r.records, &stored)
	return nil
}

func (r *MemAuditLogRepository) List(_ context.Context, limit int) ([]*contracts.GenerationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*contracts.GenerationRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		cp := *r.records[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
