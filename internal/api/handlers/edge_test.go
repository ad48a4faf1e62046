package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/internal/lifecycle"
	"github.com/hmoon/edgeforge/pkg/logger"
)

func newTestHandler(t *testing.T) (*EdgeHandler, *lifecycle.MemCandidateRepository, *lifecycle.MemSurvivorRepository, *lifecycle.MemEdgeRepository) {
	t.Helper()
	candidates := lifecycle.NewMemCandidateRepository()
	survivors := lifecycle.NewMemSurvivorRepository()
	edges := lifecycle.NewMemEdgeRepository()
	h := NewEdgeHandler(candidates, survivors, edges, logger.NewNop())
	return h, candidates, survivors, edges
}

func seedCandidate(t *testing.T, repo *lifecycle.MemCandidateRepository, hash string, status contracts.CandidateStatus) *contracts.EdgeCandidate {
	t.Helper()
	cand := &contracts.EdgeCandidate{
		Hash:      hash,
		HumanName: "ES 15m breakout",
		Params: contracts.CandidateParams{
			Symbol: "ES",
			Window: contracts.TimeWindow{Kind: contracts.WindowOpeningRange, StartMinute: 810, EndMinute: 825},
		},
		Status: status,
	}
	require.NoError(t, repo.Insert(context.Background(), cand))
	return cand
}

func TestGetManifest_EmptyIsAnEmptyList(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/manifest", nil)
	rec := httptest.NewRecorder()
	h.GetManifest(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                     `json:"success"`
		Data    []*contracts.ApprovedEdge `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.NotNil(t, body.Data)
	assert.Empty(t, body.Data)
}

func TestGetManifest_ReturnsApprovedEdges(t *testing.T) {
	h, _, _, edges := newTestHandler(t)

	require.NoError(t, edges.Insert(context.Background(), &contracts.ApprovedEdge{
		CandidateID: 1,
		Hash:        "deadbeef",
		Version:     1,
		HumanName:   "ES 15m breakout",
		Status:      contracts.EdgeActive,
		ApprovedAt:  time.Now().UTC(),
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/manifest", nil)
	rec := httptest.NewRecorder()
	h.GetManifest(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []*contracts.ApprovedEdge `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "deadbeef", body.Data[0].Hash)
	assert.Equal(t, contracts.EdgeActive, body.Data[0].Status)
}

func TestGetCandidates_FiltersByStatus(t *testing.T) {
	h, candidates, _, _ := newTestHandler(t)

	seedCandidate(t, candidates, "aaa", contracts.StatusPendingApproval)
	seedCandidate(t, candidates, "bbb", contracts.StatusBacktestFailed)

	req := httptest.NewRequest(http.MethodGet, "/api/candidates?status=BACKTEST_FAILED", nil)
	rec := httptest.NewRecorder()
	h.GetCandidates(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []*contracts.EdgeCandidate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "bbb", body.Data[0].Hash)
}

func TestGetCandidates_RejectsUnknownStatus(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/candidates?status=WINNING", nil)
	rec := httptest.NewRecorder()
	h.GetCandidates(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCandidate_IncludesValidationWhenPresent(t *testing.T) {
	h, candidates, survivors, _ := newTestHandler(t)

	cand := seedCandidate(t, candidates, "ccc", contracts.StatusPendingApproval)
	require.NoError(t, survivors.Insert(context.Background(), &contracts.ValidationResult{
		CandidateID:   cand.ID,
		Hash:          cand.Hash,
		Passed:        true,
		SurvivalScore: 81.0,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/candidates/1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	h.GetCandidate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Candidate  *contracts.EdgeCandidate   `json:"candidate"`
		Validation *contracts.ValidationResult `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Candidate)
	assert.Equal(t, "ccc", body.Candidate.Hash)
	require.NotNil(t, body.Validation)
	assert.InDelta(t, 81.0, body.Validation.SurvivalScore, 1e-9)
}

func TestGetCandidate_NotFound(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/candidates/42", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "42"})
	rec := httptest.NewRecorder()
	h.GetCandidate(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCandidateSummary_CountsByStatus(t *testing.T) {
	h, candidates, _, _ := newTestHandler(t)

	seedCandidate(t, candidates, "aaa", contracts.StatusGenerated)
	seedCandidate(t, candidates, "bbb", contracts.StatusGenerated)
	seedCandidate(t, candidates, "ccc", contracts.StatusSurvivor)

	req := httptest.NewRequest(http.MethodGet, "/api/candidates/summary", nil)
	rec := httptest.NewRecorder()
	h.GetCandidateSummary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[contracts.CandidateStatus]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data[contracts.StatusGenerated])
	assert.Equal(t, 1, body.Data[contracts.StatusSurvivor])
}
