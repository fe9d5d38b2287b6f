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

const technicianColumns = `technician_id, name, email, phone, password_hash, created_at, updated_at`

// TechnicianRepository persists technicians.
type TechnicianRepository struct {
	db *sqlx.DB
}

func NewTechnicianRepository(db *sqlx.DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

// List returns technicians matching the filter with the total count.
func (r *TechnicianRepository) List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, int, error) {
	base := "FROM technician WHERE 1=1"
	var args []interface{}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}

	sortBy := sortColumn(filter.SortBy, "name", "name", "email", "created_at")
	order := sortOrder(filter.SortOrder, "ASC")
	_, size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", technicianColumns, base, sortBy, order, size, offset)
	var technicians []models.Technician
	if err := r.db.SelectContext(ctx, &technicians, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list technicians: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count technicians: %w", err)
	}
	return technicians, total, nil
}

// FindByID loads a technician by id.
func (r *TechnicianRepository) FindByID(ctx context.Context, id string) (*models.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technician WHERE technician_id = $1`
	var technician models.Technician
	if err := r.db.GetContext(ctx, &technician, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find technician: %w", err)
	}
	return &technician, nil
}

// UpsertByEmail inserts the technician or, when the email exists, refreshes
// name, phone and password in place. The stored row is written back.
func (r *TechnicianRepository) UpsertByEmail(ctx context.Context, technician *models.Technician) error {
	if technician.ID == "" {
		technician.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	technician.CreatedAt = now
	technician.UpdatedAt = now

	const query = `INSERT INTO technician (technician_id, name, email, phone, password_hash, created_at, updated_at)
VALUES (:technician_id, :name, :email, :phone, :password_hash, :created_at, :updated_at)
ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, phone = EXCLUDED.phone, password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
RETURNING ` + technicianColumns

	rows, err := r.db.NamedQueryContext(ctx, query, technician)
	if err != nil {
		return fmt.Errorf("upsert technician: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("upsert technician: %w", err)
		}
		return fmt.Errorf("upsert technician: no row returned")
	}
	if err := rows.StructScan(technician); err != nil {
		return fmt.Errorf("scan technician: %w", err)
	}
	return nil
}

// Delete removes a technician. sql.ErrNoRows means nothing matched.
func (r *TechnicianRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM technician WHERE technician_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete technician: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Update changes name, email and phone. sql.ErrNoRows means the id is unknown.
func (r *TechnicianRepository) Update(ctx context.Context, technician *models.Technician) error {
	technician.UpdatedAt = time.Now().UTC()
	const query = `UPDATE technician SET name = :name, email = :email, phone = :phone, updated_at = :updated_at WHERE technician_id = :technician_id`
	res, err := r.db.NamedExecContext(ctx, query, technician)
	if err != nil {
		return fmt.Errorf("update technician: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
