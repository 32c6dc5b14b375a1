package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/invigilo/proctor-api/internal/dto"
	"github.com/invigilo/proctor-api/internal/service"
	appErrors "github.com/invigilo/proctor-api/pkg/errors"
	"github.com/invigilo/proctor-api/pkg/export"
	"github.com/invigilo/proctor-api/pkg/response"
)

type assignmentRunner interface {
	Run(ctx context.Context, req dto.RunAssignmentRequest) (*dto.AssignmentRunResponse, error)
	Snapshot(ctx context.Context, query dto.AssignmentQuery) (*dto.AssignmentSnapshot, error)
	ExportSheet(ctx context.Context, query dto.AssignmentQuery) (*export.RosterSheet, error)
	Delete(ctx context.Context, query dto.AssignmentQuery) error
}

type rosterRenderer interface {
	Render(sheet export.RosterSheet) ([]byte, error)
}

// AssignmentHandler exposes the assignment engine endpoints.
type AssignmentHandler struct {
	service assignmentRunner
	csv     rosterRenderer
	pdf     rosterRenderer
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc *service.AssignmentService, csv *export.CSVExporter, pdf *export.PDFExporter) *AssignmentHandler {
	return &AssignmentHandler{service: svc, csv: csv, pdf: pdf}
}

// Run executes an assignment run for a date, session and room list.
func (h *AssignmentHandler) Run(c *gin.Context) {
	var req dto.RunAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid run payload"))
		return
	}
	result, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Snapshot returns the stored rosters for a date and session.
func (h *AssignmentHandler) Snapshot(c *gin.Context) {
	var query dto.AssignmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid snapshot query"))
		return
	}
	snapshot, err := h.service.Snapshot(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Export downloads the roster sheet as CSV or PDF.
func (h *AssignmentHandler) Export(c *gin.Context) {
	var query dto.AssignmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	format := c.DefaultQuery("format", "csv")

	sheet, err := h.service.ExportSheet(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	var body []byte
	var mimeType string
	switch format {
	case "csv":
		body, err = h.csv.Render(*sheet)
		mimeType = "text/csv"
	case "pdf":
		body, err = h.pdf.Render(*sheet)
		mimeType = "application/pdf"
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster sheet"))
		return
	}

	filename := fmt.Sprintf("roster-%s-%s.%s", query.Date, query.Session, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mimeType, body)
}

// Delete removes a whole distribution for a date and session.
func (h *AssignmentHandler) Delete(c *gin.Context) {
	var query dto.AssignmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid delete query"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), query); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
