package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-assess-api/internal/models"
	appErrors "github.com/noah-isme/lms-assess-api/pkg/errors"
	"github.com/noah-isme/lms-assess-api/pkg/export"
)

type exportGradeReader interface {
	ListGradableByEnrollment(ctx context.Context, enrollmentID, courseID string) ([]models.ItemGrade, error)
}

type exportItemReader interface {
	ListGradableByCourse(ctx context.Context, courseID string) ([]models.Item, error)
}

// ExportFormat selects the rendering of a grade report.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered report bytes and HTTP metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders course grade reports for download.
type ExportService struct {
	courses     courseReader
	enrollments enrollmentLister
	grades      exportGradeReader
	items       exportItemReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(courses courseReader, enrollments enrollmentLister, grades exportGradeReader, items exportItemReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		courses:     courses,
		enrollments: enrollments,
		grades:      grades,
		items:       items,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// CourseGradeReport renders the per-student grade table of a course. The
// report reads current grade data; it never mutates final grades.
func (s *ExportService) CourseGradeReport(ctx context.Context, courseID string, format ExportFormat) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	enrollments, err := s.enrollments.ListActiveByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	items, err := s.items.ListGradableByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list items")
	}
	maxByItem := make(map[string]float64, len(items))
	for _, item := range items {
		maxByItem[item.ID] = item.MaxPoints
	}

	table := export.Table{
		Title:   course.Title + " - Grade Report",
		Columns: []string{"Student ID", "Graded Items", "Percentage", "Final Grade"},
	}
	for _, enrollment := range enrollments {
		grades, err := s.grades.ListGradableByEnrollment(ctx, enrollment.ID, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
		}
		percentage := ""
		finalGrade := ""
		if len(items) > 0 && len(grades) > 0 {
			percentage = fmt.Sprintf("%.1f", Percentage(grades, maxByItem))
		}
		if enrollment.FinalGrade != nil {
			finalGrade = *enrollment.FinalGrade
		}
		table.Rows = append(table.Rows, []string{
			enrollment.StudentID,
			strconv.Itoa(len(grades)),
			percentage,
			finalGrade,
		})
	}

	result := &ExportResult{Filename: "grade-report-" + courseID + "." + string(format)}
	switch format {
	case ExportFormatCSV:
		result.ContentType = "text/csv"
		result.Content, err = s.csv.Render(table)
	case ExportFormatPDF:
		result.ContentType = "application/pdf"
		result.Content, err = s.pdf.Render(table)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return result, nil
}
