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

	"github.com/noah-isme/lms-assess-api/internal/middleware"
	"github.com/noah-isme/lms-assess-api/internal/models"
	"github.com/noah-isme/lms-assess-api/internal/service"
	appErrors "github.com/noah-isme/lms-assess-api/pkg/errors"
)

type gradeServiceMock struct {
	gradeResp    *models.ItemGrade
	gradeErr     error
	summaryResp  *models.GradeSummary
	summaryErr   error
	gradedWith   *service.GradeItemRequest
	myGradesArgs []string
}

func (m *gradeServiceMock) GradeItem(ctx context.Context, req service.GradeItemRequest) (*models.ItemGrade, error) {
	m.gradedWith = &req
	if m.gradeErr != nil {
		return nil, m.gradeErr
	}
	return m.gradeResp, nil
}

func (m *gradeServiceMock) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.ItemGrade, error) {
	return nil, nil
}

func (m *gradeServiceMock) ListByItem(ctx context.Context, itemID string) ([]models.ItemGrade, error) {
	return nil, nil
}

func (m *gradeServiceMock) ComputeFinalGrade(ctx context.Context, courseID, studentID string) (*string, error) {
	return nil, nil
}

func (m *gradeServiceMock) MyGrades(ctx context.Context, courseID, studentID string) (*models.GradeSummary, error) {
	m.myGradesArgs = []string{courseID, studentID}
	if m.summaryErr != nil {
		return nil, m.summaryErr
	}
	return m.summaryResp, nil
}

type finalizeServiceMock struct {
	result *models.CourseFinalizeResult
	err    error
}

func (m *finalizeServiceMock) FinalizeCourse(ctx context.Context, courseID string) (*models.CourseFinalizeResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func TestGradeHandlerGradeItem(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &gradeServiceMock{gradeResp: &models.ItemGrade{EnrollmentID: "enr-1", ItemID: "item-1", PointsEarned: 90}}
	handler := NewGradeHandler(mock, &finalizeServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.GradeItemRequest{EnrollmentID: "enr-1", ItemID: "item-1", PointsEarned: 90})
	req, _ := http.NewRequest(http.MethodPut, "/grades", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.GradeItem(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.gradedWith)
	assert.Equal(t, 90.0, mock.gradedWith.PointsEarned)
}

func TestGradeHandlerGradeItemInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewGradeHandler(&gradeServiceMock{}, &finalizeServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/grades", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.GradeItem(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGradeHandlerGradeItemOutOfRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &gradeServiceMock{gradeErr: appErrors.Clone(appErrors.ErrOutOfRange, "points earned 110.00 exceed item maximum 100.00")}
	handler := NewGradeHandler(mock, &finalizeServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.GradeItemRequest{EnrollmentID: "enr-1", ItemID: "item-1", PointsEarned: 110})
	req, _ := http.NewRequest(http.MethodPut, "/grades", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.GradeItem(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGradeHandlerMyGradesUsesClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &gradeServiceMock{summaryResp: &models.GradeSummary{CourseID: "course-1", EnrollmentID: "enr-1"}}
	handler := NewGradeHandler(mock, &finalizeServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/courses/course-1/my-grades", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.MyGrades(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"course-1", "stu-1"}, mock.myGradesArgs)
}

func TestGradeHandlerMyGradesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewGradeHandler(&gradeServiceMock{}, &finalizeServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/courses/course-1/my-grades", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}

	handler.MyGrades(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGradeHandlerFinalizeCourse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	letter := "A"
	mock := &finalizeServiceMock{result: &models.CourseFinalizeResult{
		CourseID: "course-1",
		Results:  []models.EnrollmentFinalGrade{{EnrollmentID: "enr-1", StudentID: "stu-1", FinalGrade: &letter}},
		Failures: []models.FinalizeFailure{{EnrollmentID: "enr-2", StudentID: "stu-2", Reason: "storage timeout"}},
	}}
	handler := NewGradeHandler(&gradeServiceMock{}, mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/courses/course-1/finalize", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}

	handler.FinalizeCourse(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.CourseFinalizeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data.Results, 1)
	assert.Len(t, envelope.Data.Failures, 1)
}

func TestGradeHandlerFinalizeCourseNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &finalizeServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "course not found")}
	handler := NewGradeHandler(&gradeServiceMock{}, mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/courses/missing/finalize", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.FinalizeCourse(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
