package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-assess-api/internal/models"
)

// ItemRepository handles persistence of course items.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository constructs the repository.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// FindByID returns an item by its ID.
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*models.Item, error) {
	const query = `SELECT id, course_id, title, kind, max_points, created_at, updated_at FROM items WHERE id = $1`
	var item models.Item
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListGradableByCourse returns assignment and quiz items of a course.
// Document items never participate in grading.
func (r *ItemRepository) ListGradableByCourse(ctx context.Context, courseID string) ([]models.Item, error) {
	const query = `SELECT id, course_id, title, kind, max_points, created_at, updated_at
        FROM items WHERE course_id = $1 AND kind IN ($2, $3) ORDER BY created_at`
	var items []models.Item
	if err := r.db.SelectContext(ctx, &items, query, courseID, models.ItemKindAssignment, models.ItemKindQuiz); err != nil {
		return nil, fmt.Errorf("list gradable items: %w", err)
	}
	return items, nil
}
