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

type gradeService interface {
	GradeItem(ctx context.Context, req service.GradeItemRequest) (*models.ItemGrade, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.ItemGrade, error)
	ListByItem(ctx context.Context, itemID string) ([]models.ItemGrade, error)
	ComputeFinalGrade(ctx context.Context, courseID, studentID string) (*string, error)
	MyGrades(ctx context.Context, courseID, studentID string) (*models.GradeSummary, error)
}

type finalizeService interface {
	FinalizeCourse(ctx context.Context, courseID string) (*models.CourseFinalizeResult, error)
}

// GradeHandler exposes grading and aggregation endpoints.
type GradeHandler struct {
	grades   gradeService
	finalize finalizeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService, finalize finalizeService) *GradeHandler {
	return &GradeHandler{grades: grades, finalize: finalize}
}

// GradeItem godoc
// @Summary Record or overwrite a grade for an item
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.GradeItemRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /grades [put]
func (h *GradeHandler) GradeItem(c *gin.Context) {
	var req service.GradeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grade, err := h.grades.GradeItem(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade)
}

// ListByEnrollment godoc
// @Summary List grades recorded for an enrollment
// @Tags Grades
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/grades [get]
func (h *GradeHandler) ListByEnrollment(c *gin.Context) {
	grades, err := h.grades.ListByEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades)
}

// ListByItem godoc
// @Summary List grades recorded for an item
// @Tags Grades
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/grades [get]
func (h *GradeHandler) ListByItem(c *gin.Context) {
	grades, err := h.grades.ListByItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades)
}

// MyGrades godoc
// @Summary Grade summary of the current student in a course
// @Tags Grades
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/my-grades [get]
func (h *GradeHandler) MyGrades(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.grades.MyGrades(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// RecomputeFinalGrade godoc
// @Summary Recompute one student's final grade in a course
// @Tags Grades
// @Produce json
// @Param id path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/students/{studentId}/final-grade [post]
func (h *GradeHandler) RecomputeFinalGrade(c *gin.Context) {
	final, err := h.grades.ComputeFinalGrade(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"final_grade": final})
}

// FinalizeCourse godoc
// @Summary Recompute final grades for every active enrollment in a course
// @Tags Grades
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/finalize [post]
func (h *GradeHandler) FinalizeCourse(c *gin.Context) {
	result, err := h.finalize.FinalizeCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
