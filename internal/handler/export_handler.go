package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-assess-api/internal/service"
	"github.com/noah-isme/lms-assess-api/pkg/response"
)

type exportService interface {
	CourseGradeReport(ctx context.Context, courseID string, format service.ExportFormat) (*service.ExportResult, error)
}

// ExportHandler serves downloadable grade reports.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// CourseGradeReport godoc
// @Summary Download the course grade report
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /courses/{id}/grade-report [get]
func (h *ExportHandler) CourseGradeReport(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.CourseGradeReport(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
