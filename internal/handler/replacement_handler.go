package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/invigilo/proctor-api/internal/dto"
	"github.com/invigilo/proctor-api/internal/models"
	"github.com/invigilo/proctor-api/internal/service"
	appErrors "github.com/invigilo/proctor-api/pkg/errors"
	"github.com/invigilo/proctor-api/pkg/response"
)

type replacementResolver interface {
	AutoReplace(ctx context.Context, req dto.AutoReplaceRequest) (*dto.ReplacementResult, error)
	ManualReplace(ctx context.Context, req dto.ManualReplaceRequest) (*dto.ReplacementResult, error)
	ListEligible(ctx context.Context, query dto.CandidateQuery) ([]models.Staff, error)
}

// ReplacementHandler exposes the replacement resolver endpoints.
type ReplacementHandler struct {
	service replacementResolver
}

// NewReplacementHandler constructs the handler.
func NewReplacementHandler(svc *service.ReplacementService) *ReplacementHandler {
	return &ReplacementHandler{service: svc}
}

// Auto resolves a replacement automatically under the same-rank policy.
func (h *ReplacementHandler) Auto(c *gin.Context) {
	var req dto.AutoReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid auto replace payload"))
		return
	}
	result, err := h.service.AutoReplace(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Manual applies an operator-selected replacement.
func (h *ReplacementHandler) Manual(c *gin.Context) {
	var req dto.ManualReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid manual replace payload"))
		return
	}
	result, err := h.service.ManualReplace(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Candidates lists the staff an operator may pick from for a slot.
func (h *ReplacementHandler) Candidates(c *gin.Context) {
	var query dto.CandidateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid candidate query"))
		return
	}
	candidates, err := h.service.ListEligible(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, map[string]interface{}{"count": len(candidates)})
}
