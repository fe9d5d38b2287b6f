package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/facility-admin-api/internal/models"
)

// CategoryRepository persists work order categories.
type CategoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	const query = `SELECT category_id, lantai, created_at FROM category ORDER BY lantai ASC`
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO category (category_id, lantai, created_at) VALUES (:category_id, :lantai, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// FindByID returns sql.ErrNoRows for unknown categories.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := r.db.GetContext(ctx, &category, `SELECT category_id, lantai, created_at FROM category WHERE category_id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	res, err := r.db.ExecContext(ctx, `UPDATE category SET lantai = $1 WHERE category_id = $2`, category.Lantai, category.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a category; work orders referencing it keep a NULL category.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM category WHERE category_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
