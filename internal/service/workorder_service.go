package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/pkg/database"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
)

type workOrderRepository interface {
	List(ctx context.Context, filter models.WorkOrderFilter) ([]models.WorkOrder, int, error)
	FindByID(ctx context.Context, id string) (*models.WorkOrder, error)
	Create(ctx context.Context, order *models.WorkOrder) error
	Update(ctx context.Context, order *models.WorkOrder) error
	Delete(ctx context.Context, id string) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, prefix string) error
}

// WorkOrderRequest is the create/update payload. Status accepts legacy
// spellings and defaults to belum_mulai on create.
type WorkOrderRequest struct {
	Title        string                 `json:"title" validate:"required,max=200"`
	Description  string                 `json:"description" validate:"max=2000"`
	Status       models.WorkOrderStatus `json:"status"`
	TechnicianID *string                `json:"technician_id"`
	CategoryID   *string                `json:"category_id"`
	BeforeURL    *string                `json:"before_url" validate:"omitempty,url"`
	AfterURL     *string                `json:"after_url" validate:"omitempty,url"`
}

// WorkOrderStatusRequest is the PATCH status payload.
type WorkOrderStatusRequest struct {
	Status models.WorkOrderStatus `json:"status" validate:"required"`
}

// WorkOrderService handles work order use-cases and keeps dependent caches fresh.
type WorkOrderService struct {
	repo      workOrderRepository
	cache     cacheInvalidator
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

func NewWorkOrderService(repo workOrderRepository, cache cacheInvalidator, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *WorkOrderService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkOrderService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *WorkOrderService) List(ctx context.Context, filter models.WorkOrderFilter) ([]models.WorkOrder, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list work orders")
	}
	out := make([]models.WorkOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.WithLabel())
	}
	return out, paginationFor(filter.Page, filter.PageSize, total), nil
}

func (s *WorkOrderService) Get(ctx context.Context, id string) (*models.WorkOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "work order not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load work order")
	}
	labelled := order.WithLabel()
	return &labelled, nil
}

func (s *WorkOrderService) Create(ctx context.Context, adminID string, req WorkOrderRequest) (*models.WorkOrder, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	order := &models.WorkOrder{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Status:       req.Status,
		TechnicianID: blankToNil(req.TechnicianID),
		CategoryID:   blankToNil(req.CategoryID),
		BeforeURL:    blankToNil(req.BeforeURL),
		AfterURL:     blankToNil(req.AfterURL),
	}
	if order.Status == "" {
		order.Status = models.StatusBelumMulai
	}
	if adminID != "" {
		order.AdminID = &adminID
	}
	s.stamp(order, "")
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, s.writeError(err, "failed to create work order")
	}
	s.afterWrite(ctx, adminID, "create", order.ID, nil, order)
	return s.Get(ctx, order.ID)
}

func (s *WorkOrderService) Update(ctx context.Context, adminID, id string, req WorkOrderRequest) (*models.WorkOrder, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := *current

	current.Title = strings.TrimSpace(req.Title)
	current.Description = req.Description
	current.TechnicianID = blankToNil(req.TechnicianID)
	current.CategoryID = blankToNil(req.CategoryID)
	current.BeforeURL = blankToNil(req.BeforeURL)
	current.AfterURL = blankToNil(req.AfterURL)
	if req.Status != "" {
		current.Status = req.Status
	}
	s.stamp(current, previous.Status)

	if err := s.repo.Update(ctx, current); err != nil {
		return nil, s.writeError(err, "failed to update work order")
	}
	s.afterWrite(ctx, adminID, "update", id, &previous, current)
	return s.Get(ctx, id)
}

// UpdateStatus moves a work order through its workflow. Entering
// dalam_pengerjaan stamps start_time once; entering selesai stamps end_time.
func (s *WorkOrderService) UpdateStatus(ctx context.Context, adminID, id string, req WorkOrderStatusRequest) (*models.WorkOrder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown work order status")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := *current
	current.Status = req.Status
	s.stamp(current, previous.Status)

	if err := s.repo.Update(ctx, current); err != nil {
		return nil, s.writeError(err, "failed to update work order status")
	}
	s.logger.Info("work order status changed",
		zap.String("work_order_id", id),
		zap.String("from", string(previous.Status)),
		zap.String("to", string(current.Status)),
	)
	s.afterWrite(ctx, adminID, "status", id, &previous, current)
	return s.Get(ctx, id)
}

func (s *WorkOrderService) Delete(ctx context.Context, adminID, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "work order not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete work order")
	}
	s.afterWrite(ctx, adminID, "delete", id, nil, nil)
	return nil
}

func (s *WorkOrderService) validate(req WorkOrderRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid work order payload")
	}
	if req.Status != "" && !req.Status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown work order status")
	}
	return nil
}

func (s *WorkOrderService) stamp(order *models.WorkOrder, from models.WorkOrderStatus) {
	if order.Status == from {
		return
	}
	now := s.now()
	switch order.Status {
	case models.StatusDalamPengerjaan:
		if order.StartTime == nil {
			order.StartTime = &now
		}
	case models.StatusSelesai:
		if order.StartTime == nil {
			order.StartTime = &now
		}
		order.EndTime = &now
	}
}

func (s *WorkOrderService) writeError(err error, msg string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "work order not found")
	case database.IsCode(err, database.CodeForeignKey):
		return appErrors.Clone(appErrors.ErrValidation, "unknown technician or category")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
}

// afterWrite drops dashboard caches and records the audit trail. The change
// feed invalidates too, but only when the listener is running.
func (s *WorkOrderService) afterWrite(ctx context.Context, adminID, op, id string, oldValue, newValue *models.WorkOrder) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, CachePrefixDashboard); err != nil {
			s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
		}
	}
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{Action: models.AuditActionWorkOrderWrite, Resource: "workorder:" + op, ResourceID: &id}
	if adminID != "" {
		entry.AdminID = &adminID
	}
	if oldValue != nil {
		entry.OldValues, _ = json.Marshal(oldValue)
	}
	if newValue != nil {
		entry.NewValues, _ = json.Marshal(newValue)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record work order audit log", zap.String("work_order_id", id), zap.Error(err))
	}
}

func blankToNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}
