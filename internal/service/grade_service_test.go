package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-assess-api/internal/models"
	appErrors "github.com/noah-isme/lms-assess-api/pkg/errors"
)

type mockItemGradeRepo struct {
	grades    map[string]models.ItemGrade
	upsertErr error
}

func gradeKey(enrollmentID, itemID string) string { return enrollmentID + "/" + itemID }

func (m *mockItemGradeRepo) Upsert(ctx context.Context, grade *models.ItemGrade) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.grades == nil {
		m.grades = make(map[string]models.ItemGrade)
	}
	m.grades[gradeKey(grade.EnrollmentID, grade.ItemID)] = *grade
	return nil
}

func (m *mockItemGradeRepo) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.ItemGrade, error) {
	var result []models.ItemGrade
	for _, g := range m.grades {
		if g.EnrollmentID == enrollmentID {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *mockItemGradeRepo) ListByItem(ctx context.Context, itemID string) ([]models.ItemGrade, error) {
	var result []models.ItemGrade
	for _, g := range m.grades {
		if g.ItemID == itemID {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *mockItemGradeRepo) ListGradableByEnrollment(ctx context.Context, enrollmentID, courseID string) ([]models.ItemGrade, error) {
	return m.ListByEnrollment(ctx, enrollmentID)
}

type mockEnrollmentStore struct {
	enrollments map[string]*models.Enrollment
	updates     []string
}

func (m *mockEnrollmentStore) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentStore) FindActiveByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	for _, e := range m.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID && e.Status == models.EnrollmentStatusActive {
			return e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentStore) UpdateFinalGrade(ctx context.Context, id string, finalGrade *string) error {
	e, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.FinalGrade = finalGrade
	m.updates = append(m.updates, id)
	return nil
}

type mockItemStore struct {
	items map[string]*models.Item
}

func (m *mockItemStore) FindByID(ctx context.Context, id string) (*models.Item, error) {
	if i, ok := m.items[id]; ok {
		return i, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockItemStore) ListGradableByCourse(ctx context.Context, courseID string) ([]models.Item, error) {
	var result []models.Item
	for _, i := range m.items {
		if i.CourseID == courseID && i.Kind.Gradable() {
			result = append(result, *i)
		}
	}
	return result, nil
}

type fakeSummaryCache struct {
	entries       map[string]*models.GradeSummary
	invalidations int
}

func cacheKey(courseID, enrollmentID string) string { return courseID + "/" + enrollmentID }

func (f *fakeSummaryCache) Get(ctx context.Context, courseID, enrollmentID string) (*models.GradeSummary, bool) {
	s, ok := f.entries[cacheKey(courseID, enrollmentID)]
	return s, ok
}

func (f *fakeSummaryCache) Set(ctx context.Context, summary *models.GradeSummary) {
	if f.entries == nil {
		f.entries = make(map[string]*models.GradeSummary)
	}
	f.entries[cacheKey(summary.CourseID, summary.EnrollmentID)] = summary
}

func (f *fakeSummaryCache) Invalidate(ctx context.Context, courseID, enrollmentID string) {
	delete(f.entries, cacheKey(courseID, enrollmentID))
	f.invalidations++
}

type fakeGradeMetrics struct {
	hits, misses, recalcs int
}

func (f *fakeGradeMetrics) CacheHit()          { f.hits++ }
func (f *fakeGradeMetrics) CacheMiss()         { f.misses++ }
func (f *fakeGradeMetrics) GradeRecalculated() { f.recalcs++ }

func newGradeFixture() (*GradeService, *mockItemGradeRepo, *mockEnrollmentStore, *fakeSummaryCache, *fakeGradeMetrics) {
	grades := &mockItemGradeRepo{grades: map[string]models.ItemGrade{}}
	enrollments := &mockEnrollmentStore{enrollments: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", CourseID: "course-1", StudentID: "stu-1", Status: models.EnrollmentStatusActive},
	}}
	items := &mockItemStore{items: map[string]*models.Item{
		"item-1": {ID: "item-1", CourseID: "course-1", Kind: models.ItemKindAssignment, MaxPoints: 100},
		"item-2": {ID: "item-2", CourseID: "course-1", Kind: models.ItemKindQuiz, MaxPoints: 50},
		"item-3": {ID: "item-3", CourseID: "course-1", Kind: models.ItemKindDocument},
	}}
	cache := &fakeSummaryCache{}
	metrics := &fakeGradeMetrics{}
	return NewGradeService(grades, enrollments, items, cache, metrics, nil, nil), grades, enrollments, cache, metrics
}

func TestLetterGradeBands(t *testing.T) {
	cases := []struct {
		pct    float64
		letter string
	}{
		{100, "A"}, {93, "A"}, {92.99, "A-"}, {90, "A-"},
		{89.9, "B+"}, {87, "B+"}, {83, "B"}, {80, "B-"},
		{77, "C+"}, {73, "C"}, {70, "C-"},
		{67, "D+"}, {63, "D"}, {60, "D-"},
		{59.99, "F"}, {0, "F"}, {-5, "F"}, {110, "A"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.letter, LetterGrade(tc.pct), "%.2f%%", tc.pct)
	}
}

func TestPercentageIgnoresUnknownItems(t *testing.T) {
	grades := []models.ItemGrade{
		{ItemID: "item-1", PointsEarned: 90},
		{ItemID: "item-unknown", PointsEarned: 10},
	}
	maxByItem := map[string]float64{"item-1": 100}
	assert.InDelta(t, 90.0, Percentage(grades, maxByItem), 1e-9)
}

func TestPercentageEmptyDenominator(t *testing.T) {
	assert.Zero(t, Percentage(nil, nil))
	assert.Zero(t, Percentage([]models.ItemGrade{{ItemID: "x", PointsEarned: 5}}, map[string]float64{}))
}

func TestGradeItemRoundTrip(t *testing.T) {
	svc, grades, enrollments, _, metrics := newGradeFixture()

	grade, err := svc.GradeItem(context.Background(), GradeItemRequest{
		EnrollmentID: "enr-1",
		ItemID:       "item-1",
		PointsEarned: 90,
	})

	require.NoError(t, err)
	assert.Equal(t, 90.0, grade.PointsEarned)
	assert.Contains(t, grades.grades, gradeKey("enr-1", "item-1"))

	// Aggregation ran synchronously: 90/100 over the single graded item.
	require.NotNil(t, enrollments.enrollments["enr-1"].FinalGrade)
	assert.Equal(t, "A-", *enrollments.enrollments["enr-1"].FinalGrade)
	assert.Equal(t, 1, metrics.recalcs)
}

func TestGradeItemZeroIsAGrade(t *testing.T) {
	svc, grades, _, _, _ := newGradeFixture()

	grade, err := svc.GradeItem(context.Background(), GradeItemRequest{
		EnrollmentID: "enr-1",
		ItemID:       "item-1",
		PointsEarned: 0,
	})

	require.NoError(t, err)
	assert.Zero(t, grade.PointsEarned)
	assert.Contains(t, grades.grades, gradeKey("enr-1", "item-1"))
}

func TestGradeItemRejectsOutOfRange(t *testing.T) {
	svc, grades, enrollments, _, _ := newGradeFixture()

	_, err := svc.GradeItem(context.Background(), GradeItemRequest{
		EnrollmentID: "enr-1",
		ItemID:       "item-1",
		PointsEarned: 101,
	})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrOutOfRange))
	assert.Empty(t, grades.grades)
	assert.Empty(t, enrollments.updates)
}

func TestGradeItemStoreGuardRejection(t *testing.T) {
	svc, grades, enrollments, _, _ := newGradeFixture()

	// The request passes the early check against the loaded item, but the
	// store's own guard rejects the write, as it would when the item
	// maximum was lowered concurrently. No recompute must follow.
	grades.upsertErr = appErrors.Clone(appErrors.ErrOutOfRange, "points earned exceed item maximum")
	_, err := svc.GradeItem(context.Background(), GradeItemRequest{
		EnrollmentID: "enr-1",
		ItemID:       "item-1",
		PointsEarned: 90,
	})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrOutOfRange))
	assert.Empty(t, grades.grades)
	assert.Empty(t, enrollments.updates)
}

func TestGradeItemRejectsNegativePoints(t *testing.T) {
	svc, _, _, _, _ := newGradeFixture()

	_, err := svc.GradeItem(context.Background(), GradeItemRequest{
		EnrollmentID: "enr-1",
		ItemID:       "item-1",
		PointsEarned: -1,
	})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestGradeItemRejectsDocument(t *testing.T) {
	svc, _, _, _, _ := newGradeFixture()

	_, err := svc.GradeItem(context.Background(), GradeItemRequest{
		EnrollmentID: "enr-1",
		ItemID:       "item-3",
		PointsEarned: 1,
	})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidItemKind))
}

func TestGradeItemOverwriteRecomputes(t *testing.T) {
	svc, _, enrollments, _, _ := newGradeFixture()
	ctx := context.Background()

	_, err := svc.GradeItem(ctx, GradeItemRequest{EnrollmentID: "enr-1", ItemID: "item-1", PointsEarned: 90})
	require.NoError(t, err)
	require.Equal(t, "A-", *enrollments.enrollments["enr-1"].FinalGrade)

	_, err = svc.GradeItem(ctx, GradeItemRequest{EnrollmentID: "enr-1", ItemID: "item-1", PointsEarned: 50})
	require.NoError(t, err)
	assert.Equal(t, "F", *enrollments.enrollments["enr-1"].FinalGrade)
}

func TestComputeFinalGradeExcludesUngraded(t *testing.T) {
	svc, grades, _, _, _ := newGradeFixture()
	grades.grades = map[string]models.ItemGrade{
		gradeKey("enr-1", "item-1"): {EnrollmentID: "enr-1", ItemID: "item-1", PointsEarned: 90},
	}

	// item-2 (50 max) has no grade and must not drag the percentage down.
	final, err := svc.ComputeFinalGrade(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, "A-", *final)
}

func TestComputeFinalGradeNilWithoutGrades(t *testing.T) {
	svc, _, enrollments, _, _ := newGradeFixture()

	final, err := svc.ComputeFinalGrade(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	assert.Nil(t, final)
	// The nil result is still persisted so stale letters get cleared.
	assert.Equal(t, []string{"enr-1"}, enrollments.updates)
}

func TestComputeFinalGradeNoActiveEnrollment(t *testing.T) {
	svc, _, _, _, _ := newGradeFixture()

	_, err := svc.ComputeFinalGrade(context.Background(), "course-1", "stu-unknown")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestComputeForEnrollmentInvalidatesCache(t *testing.T) {
	svc, _, enrollments, cache, _ := newGradeFixture()
	cache.Set(context.Background(), &models.GradeSummary{CourseID: "course-1", EnrollmentID: "enr-1"})

	_, err := svc.ComputeForEnrollment(context.Background(), enrollments.enrollments["enr-1"])
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidations)
	_, ok := cache.Get(context.Background(), "course-1", "enr-1")
	assert.False(t, ok)
}

func TestMyGradesSummary(t *testing.T) {
	svc, grades, _, _, metrics := newGradeFixture()
	grades.grades = map[string]models.ItemGrade{
		gradeKey("enr-1", "item-1"): {EnrollmentID: "enr-1", ItemID: "item-1", PointsEarned: 80},
	}

	summary, err := svc.MyGrades(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "enr-1", summary.EnrollmentID)
	assert.Len(t, summary.Grades, 1)
	// item-2 is gradable and ungraded; item-3 is a document and excluded.
	require.Len(t, summary.UngradedItems, 1)
	assert.Equal(t, "item-2", summary.UngradedItems[0].ID)
	require.NotNil(t, summary.Percentage)
	assert.InDelta(t, 80.0, *summary.Percentage, 1e-9)
	assert.Equal(t, 1, metrics.misses)
}

func TestMyGradesServedFromCache(t *testing.T) {
	svc, _, _, cache, metrics := newGradeFixture()
	cached := &models.GradeSummary{CourseID: "course-1", EnrollmentID: "enr-1"}
	cache.Set(context.Background(), cached)

	summary, err := svc.MyGrades(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	assert.Same(t, cached, summary)
	assert.Equal(t, 1, metrics.hits)
}

func TestMyGradesEmptyCourse(t *testing.T) {
	svc, _, _, _, _ := newGradeFixture()

	summary, err := svc.MyGrades(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	assert.Empty(t, summary.Grades)
	assert.Nil(t, summary.Percentage)
	assert.Nil(t, summary.FinalGrade)
}
