package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/invigilo/proctor-api/internal/dto"
	"github.com/invigilo/proctor-api/internal/models"
	"github.com/invigilo/proctor-api/internal/service"
	"github.com/invigilo/proctor-api/pkg/response"
)

type staffAccessor interface {
	Get(ctx context.Context, id string) (*dto.StaffDetail, error)
	Reactivate(ctx context.Context, id string) (*models.Staff, error)
}

// StaffHandler exposes the staff directory operations the engine owns.
type StaffHandler struct {
	service staffAccessor
}

// NewStaffHandler constructs the handler.
func NewStaffHandler(svc *service.StaffService) *StaffHandler {
	return &StaffHandler{service: svc}
}

// Get returns a single staff member.
func (h *StaffHandler) Get(c *gin.Context) {
	staff, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}

// Reactivate lifts a suspension and resets the absence counter.
func (h *StaffHandler) Reactivate(c *gin.Context) {
	staff, err := h.service.Reactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}
