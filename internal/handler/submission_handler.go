package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-assess-api/internal/models"
	"github.com/noah-isme/lms-assess-api/internal/service"
	appErrors "github.com/noah-isme/lms-assess-api/pkg/errors"
	"github.com/noah-isme/lms-assess-api/pkg/response"
)

type submissionService interface {
	Create(ctx context.Context, req service.CreateSubmissionRequest, actor *models.JWTClaims) (*models.Submission, error)
	Update(ctx context.Context, id string, req service.UpdateSubmissionRequest, actor *models.JWTClaims) (*models.Submission, error)
	Get(ctx context.Context, id string) (*models.Submission, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Submission, error)
}

// SubmissionHandler exposes submission lifecycle endpoints.
type SubmissionHandler struct {
	submissions submissionService
}

// NewSubmissionHandler constructs handler.
func NewSubmissionHandler(submissions submissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

// Create godoc
// @Summary Start a submission for an item
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body service.CreateSubmissionRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	var req service.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.submissions.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// Update godoc
// @Summary Update submission content or status
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body service.UpdateSubmissionRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [patch]
func (h *SubmissionHandler) Update(c *gin.Context) {
	var req service.UpdateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.submissions.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission)
}

// Get godoc
// @Summary Fetch one submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	submission, err := h.submissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission)
}

// List godoc
// @Summary List submissions for an enrollment
// @Tags Submissions
// @Produce json
// @Param enrollmentId query string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	enrollmentID := c.Query("enrollmentId")
	if enrollmentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "enrollmentId is required"))
		return
	}
	submissions, err := h.submissions.ListByEnrollment(c.Request.Context(), enrollmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions)
}
