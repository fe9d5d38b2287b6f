package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/pkg/database"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
)

type categoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id string) error
}

// CategoryRequest is the payload for creating or renaming a category.
type CategoryRequest struct {
	Lantai string `json:"lantai" validate:"required,max=100"`
}

// CategoryService manages the floor categories of work orders.
type CategoryService struct {
	repo      categoryRepository
	validator *validator.Validate
	logger    *zap.Logger
}

func NewCategoryService(repo categoryRepository, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{repo: repo, validator: validate, logger: logger}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

func (s *CategoryService) Create(ctx context.Context, req CategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category := &models.Category{Lantai: strings.TrimSpace(req.Lantai)}
	if err := s.repo.Create(ctx, category); err != nil {
		if database.IsCode(err, database.CodeUniqueViolation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "category already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, req CategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	category.Lantai = strings.TrimSpace(req.Lantai)
	if err := s.repo.Update(ctx, category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update category")
	}
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category")
	}
	return nil
}
