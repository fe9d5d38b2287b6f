package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/pkg/database"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
)

type technicianRepository interface {
	List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, int, error)
	FindByID(ctx context.Context, id string) (*models.Technician, error)
	UpsertByEmail(ctx context.Context, technician *models.Technician) error
	Update(ctx context.Context, technician *models.Technician) error
	Delete(ctx context.Context, id string) error
}

// RegisterTechnicianRequest signs a technician up. Registering an email that
// already exists refreshes that technician instead of failing.
type RegisterTechnicianRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,max=20"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateTechnicianRequest edits the contact details of a technician.
type UpdateTechnicianRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,max=20"`
}

// TechnicianService handles technician use-cases.
type TechnicianService struct {
	repo      technicianRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	hashCost  int
}

func NewTechnicianService(repo technicianRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *TechnicianService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TechnicianService{repo: repo, audit: audit, validator: validate, logger: logger, hashCost: bcrypt.DefaultCost}
}

func (s *TechnicianService) List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, *models.Pagination, error) {
	technicians, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list technicians")
	}
	if technicians == nil {
		technicians = []models.Technician{}
	}
	return technicians, paginationFor(filter.Page, filter.PageSize, total), nil
}

func (s *TechnicianService) Get(ctx context.Context, id string) (*models.Technician, error) {
	technician, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "technician not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load technician")
	}
	return technician, nil
}

// Register hashes the password and upserts the technician by email.
func (s *TechnicianService) Register(ctx context.Context, adminID string, req RegisterTechnicianRequest) (*models.Technician, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid technician payload")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	technician := &models.Technician{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
	}
	if err := s.repo.UpsertByEmail(ctx, technician); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save technician")
	}

	s.logger.Info("technician registered", zap.String("technician_id", technician.ID), zap.String("email", technician.Email))
	if s.audit != nil {
		entry := &models.AuditLog{Action: models.AuditActionTechnicianAdd, Resource: "technician", ResourceID: &technician.ID}
		if adminID != "" {
			entry.AdminID = &adminID
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record technician audit log", zap.Error(err))
		}
	}
	return technician, nil
}

func (s *TechnicianService) Update(ctx context.Context, id string, req UpdateTechnicianRequest) (*models.Technician, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid technician payload")
	}
	technician, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	technician.Name = strings.TrimSpace(req.Name)
	technician.Email = strings.ToLower(strings.TrimSpace(req.Email))
	technician.Phone = strings.TrimSpace(req.Phone)
	if err := s.repo.Update(ctx, technician); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "technician not found")
		case database.IsCode(err, database.CodeUniqueViolation):
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already used by another technician")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update technician")
	}
	return technician, nil
}

// Delete removes a technician; their work orders keep a NULL technician.
func (s *TechnicianService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "technician not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete technician")
	}
	return nil
}
