package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/facility-admin-api/internal/models"
)

const (
	workOrderColumns = `w.id, w.title, w.description, w.status, w.technician_id, t.name AS technician_name, w.category_id, c.lantai AS category_lantai, w.admin_id, w.start_time, w.end_time, w.before_url, w.after_url, w.created_at, w.updated_at`
	workOrderFrom    = `FROM workorder w LEFT JOIN technician t ON t.technician_id = w.technician_id LEFT JOIN category c ON c.category_id = w.category_id`
)

// WorkOrderRepository persists work orders.
type WorkOrderRepository struct {
	db *sqlx.DB
}

func NewWorkOrderRepository(db *sqlx.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// List returns work orders with optional filtering and pagination.
func (r *WorkOrderRepository) List(ctx context.Context, filter models.WorkOrderFilter) ([]models.WorkOrder, int, error) {
	base := workOrderFrom + " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("w.title ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("w.status = $%d", len(args)+1))
		args = append(args, string(filter.Status))
	}
	if filter.TechnicianID != "" {
		conditions = append(conditions, fmt.Sprintf("w.technician_id = $%d", len(args)+1))
		args = append(args, filter.TechnicianID)
	}
	if filter.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf("w.category_id = $%d", len(args)+1))
		args = append(args, filter.CategoryID)
	}
	if filter.CreatedFrom != nil {
		conditions = append(conditions, fmt.Sprintf("w.created_at >= $%d", len(args)+1))
		args = append(args, *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		conditions = append(conditions, fmt.Sprintf("w.created_at < $%d", len(args)+1))
		args = append(args, *filter.CreatedTo)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := sortColumn(filter.SortBy, "created_at", "created_at", "updated_at", "title", "status")
	order := sortOrder(filter.SortOrder, "DESC")
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY w.%s %s LIMIT %d OFFSET %d", workOrderColumns, base, sortBy, order, size, offset)
	var orders []models.WorkOrder
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list work orders: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count work orders: %w", err)
	}
	return orders, total, nil
}

// FindByID loads a work order with its technician and category.
func (r *WorkOrderRepository) FindByID(ctx context.Context, id string) (*models.WorkOrder, error) {
	query := "SELECT " + workOrderColumns + " " + workOrderFrom + " WHERE w.id = $1"
	var order models.WorkOrder
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find work order: %w", err)
	}
	return &order, nil
}

// Create stores a new work order.
func (r *WorkOrderRepository) Create(ctx context.Context, order *models.WorkOrder) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO workorder (id, title, description, status, technician_id, category_id, admin_id, start_time, end_time, before_url, after_url, created_at) VALUES (:id, :title, :description, :status, :technician_id, :category_id, :admin_id, :start_time, :end_time, :before_url, :after_url, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, order); err != nil {
		return fmt.Errorf("create work order: %w", err)
	}
	return nil
}

// Update replaces the editable fields. sql.ErrNoRows means the id is unknown.
func (r *WorkOrderRepository) Update(ctx context.Context, order *models.WorkOrder) error {
	now := time.Now().UTC()
	order.UpdatedAt = &now
	const query = `UPDATE workorder SET title = :title, description = :description, status = :status, technician_id = :technician_id, category_id = :category_id, start_time = :start_time, end_time = :end_time, before_url = :before_url, after_url = :after_url, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, order)
	if err != nil {
		return fmt.Errorf("update work order: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a work order. sql.ErrNoRows means nothing matched.
func (r *WorkOrderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM workorder WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete work order: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListCompleted returns finished work orders for the completion report, newest first.
func (r *WorkOrderRepository) ListCompleted(ctx context.Context, filter models.CompletionReportFilter) ([]models.CompletionReportRow, error) {
	query := `SELECT w.id, w.title, t.name AS technician_name, w.created_at, w.start_time, w.end_time, w.before_url, w.after_url FROM workorder w LEFT JOIN technician t ON t.technician_id = w.technician_id WHERE w.status = $1`
	args := []interface{}{string(models.StatusSelesai)}
	if filter.From != nil {
		query += fmt.Sprintf(" AND w.created_at >= $%d", len(args)+1)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND w.created_at < $%d", len(args)+1)
		args = append(args, *filter.To)
	}
	if filter.TechnicianID != "" {
		query += fmt.Sprintf(" AND w.technician_id = $%d", len(args)+1)
		args = append(args, filter.TechnicianID)
	}
	query += " ORDER BY w.created_at DESC"

	var rows []models.CompletionReportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list completed work orders: %w", err)
	}
	return rows, nil
}
