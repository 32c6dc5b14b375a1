package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invigilo/proctor-api/internal/dto"
	"github.com/invigilo/proctor-api/internal/models"
	appErrors "github.com/invigilo/proctor-api/pkg/errors"
)

type replacementResolverMock struct {
	autoResp   *dto.ReplacementResult
	autoErr    error
	manualResp *dto.ReplacementResult
	candidates []models.Staff
}

func (m *replacementResolverMock) AutoReplace(ctx context.Context, req dto.AutoReplaceRequest) (*dto.ReplacementResult, error) {
	if m.autoErr != nil {
		return nil, m.autoErr
	}
	return m.autoResp, nil
}

func (m *replacementResolverMock) ManualReplace(ctx context.Context, req dto.ManualReplaceRequest) (*dto.ReplacementResult, error) {
	return m.manualResp, nil
}

func (m *replacementResolverMock) ListEligible(ctx context.Context, query dto.CandidateQuery) ([]models.Staff, error) {
	return m.candidates, nil
}

func TestReplacementHandlerAutoSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ReplacementHandler{service: &replacementResolverMock{
		autoResp: &dto.ReplacementResult{RoomID: "room-1", ReplacementStaffID: "sup-new", Action: "AUTO_REPLACEMENT"},
	}}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.AutoReplaceRequest{
		Date:            "2026-09-01",
		Session:         "MORNING",
		RoomID:          "room-1",
		OriginalStaffID: "sup-old",
		Role:            "SUPERVISOR",
	})
	req, _ := http.NewRequest(http.MethodPost, "/replacements/auto", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Auto(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sup-new")
}

func TestReplacementHandlerAutoNoCandidateStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ReplacementHandler{service: &replacementResolverMock{
		autoErr: appErrors.Clone(appErrors.ErrNoCandidate, "no external-rank candidate satisfies the constraints"),
	}}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.AutoReplaceRequest{
		Date:            "2026-09-01",
		Session:         "MORNING",
		RoomID:          "room-1",
		OriginalStaffID: "sup-old",
		Role:            "SUPERVISOR",
	})
	req, _ := http.NewRequest(http.MethodPost, "/replacements/auto", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Auto(c)
	assert.Equal(t, appErrors.ErrNoCandidate.Status, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrNoCandidate.Code)
}

func TestReplacementHandlerAutoInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ReplacementHandler{service: &replacementResolverMock{}}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/replacements/auto", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Auto(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReplacementHandlerCandidates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ReplacementHandler{service: &replacementResolverMock{
		candidates: []models.Staff{{ID: "obs-1", Role: models.RoleObserver}},
	}}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/replacements/candidates?date=2026-09-01&session=MORNING&roomId=room-1&role=OBSERVER", nil)
	c.Request = req

	handler.Candidates(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "obs-1")
}
