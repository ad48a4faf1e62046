package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/pkg/logger"
)

// EdgeHandler serves the registry and the approved-edge manifest.
// Execution collaborators poll /api/manifest; everything else exists
// for operators looking at pipeline state.
type EdgeHandler struct {
	candidates contracts.CandidateRepository
	survivors  contracts.SurvivorRepository
	edges      contracts.EdgeRepository
	logger     *logger.Logger
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(
	candidates contracts.CandidateRepository,
	survivors contracts.SurvivorRepository,
	edges contracts.EdgeRepository,
	log *logger.Logger,
) *EdgeHandler {
	return &EdgeHandler{
		candidates: candidates,
		survivors:  survivors,
		edges:      edges,
		logger:     log,
	}
}

// GetManifest returns the full approved-edge manifest
// GET /api/manifest
func (h *EdgeHandler) GetManifest(w http.ResponseWriter, r *http.Request) {
	edges, err := h.edges.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load manifest")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve manifest")
		return
	}
	if edges == nil {
		edges = []*contracts.ApprovedEdge{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    edges,
	})
}

// GetSurvivors returns validation results of surviving candidates
// GET /api/survivors?limit=50
func (h *EdgeHandler) GetSurvivors(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	results, err := h.survivors.List(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load survivors")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve survivors")
		return
	}
	if results == nil {
		results = []*contracts.ValidationResult{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    results,
	})
}

// GetCandidates returns candidates in a given lifecycle status
// GET /api/candidates?status=PENDING_APPROVAL&limit=100
func (h *EdgeHandler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	status := contracts.CandidateStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = contracts.StatusPendingApproval
	}
	if !status.Valid() {
		respondError(w, http.StatusBadRequest, "unknown status "+string(status))
		return
	}
	limit := queryInt(r, "limit", 100)

	candidates, err := h.candidates.ListByStatus(r.Context(), status, limit)
	if err != nil {
		h.logger.WithError(err).WithField("status", string(status)).Error("Failed to load candidates")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve candidates")
		return
	}
	if candidates == nil {
		candidates = []*contracts.EdgeCandidate{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    candidates,
	})
}

// GetCandidateSummary returns candidate counts by status
// GET /api/candidates/summary
func (h *EdgeHandler) GetCandidateSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.candidates.CountByStatus(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to count candidates")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve summary")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    counts,
	})
}

// GetCandidate returns one candidate with its validation result, if any
// GET /api/candidates/{id}
func (h *EdgeHandler) GetCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid candidate id")
		return
	}

	cand, err := h.candidates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			respondError(w, http.StatusNotFound, "candidate not found")
			return
		}
		h.logger.WithError(err).WithField("candidate_id", id).Error("Failed to load candidate")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve candidate")
		return
	}

	payload := map[string]interface{}{
		"success":   true,
		"candidate": cand,
	}

	if result, err := h.survivors.GetByCandidateID(ctx, id); err == nil {
		payload["validation"] = result
	} else if !errors.Is(err, contracts.ErrNotFound) {
		h.logger.WithError(err).WithField("candidate_id", id).Warn("Failed to load validation result")
	}

	respondJSON(w, http.StatusOK, payload)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return defaultValue
}
