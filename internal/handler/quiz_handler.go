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

type quizService interface {
	SubmitResponse(ctx context.Context, req service.SubmitQuizResponseRequest, actor *models.JWTClaims) (*models.QuizResponse, error)
	Score(ctx context.Context, submissionID string) (*service.QuizScore, error)
	ListQuestions(ctx context.Context, itemID string) ([]models.QuizQuestion, error)
}

// QuizHandler exposes quiz response and scoring endpoints.
type QuizHandler struct {
	quizzes quizService
}

// NewQuizHandler constructs handler.
func NewQuizHandler(quizzes quizService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// SubmitResponse godoc
// @Summary Record an answer to one quiz question
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param payload body service.SubmitQuizResponseRequest true "Response payload"
// @Success 200 {object} response.Envelope
// @Router /quiz-responses [post]
func (h *QuizHandler) SubmitResponse(c *gin.Context) {
	var req service.SubmitQuizResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.quizzes.SubmitResponse(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Score godoc
// @Summary Calculate the quiz score of a submission
// @Tags Quizzes
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/score [get]
func (h *QuizHandler) Score(c *gin.Context) {
	score, err := h.quizzes.Score(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score)
}

// ListQuestions godoc
// @Summary List questions of a quiz item
// @Tags Quizzes
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/questions [get]
func (h *QuizHandler) ListQuestions(c *gin.Context) {
	questions, err := h.quizzes.ListQuestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions)
}
