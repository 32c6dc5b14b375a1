package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/invigilo/proctor-api/internal/dto"
	"github.com/invigilo/proctor-api/internal/service"
	appErrors "github.com/invigilo/proctor-api/pkg/errors"
	"github.com/invigilo/proctor-api/pkg/response"
)

type absenceRecorderService interface {
	Record(ctx context.Context, req dto.RecordAbsenceRequest) (*dto.RecordAbsenceResponse, error)
}

// AbsenceHandler exposes absence reporting.
type AbsenceHandler struct {
	service absenceRecorderService
}

// NewAbsenceHandler constructs the handler.
func NewAbsenceHandler(svc *service.AbsenceService) *AbsenceHandler {
	return &AbsenceHandler{service: svc}
}

// Record marks a rostered staff member absent and applies the suspension policy.
func (h *AbsenceHandler) Record(c *gin.Context) {
	var req dto.RecordAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid absence payload"))
		return
	}
	result, err := h.service.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
