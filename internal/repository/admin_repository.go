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

const adminColumns = `admin_id, name, email, password_hash, role, last_login, created_at, updated_at`

// AdminRepository provides database access for dashboard accounts, their
// sessions and the audit trail.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository creates a new instance of AdminRepository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// FindByEmail returns an admin by email address, case-insensitively.
func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admin WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by email: %w", err)
	}
	return &admin, nil
}

// FindByID returns an admin by identifier.
func (r *AdminRepository) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admin WHERE admin_id = $1 LIMIT 1`
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by id: %w", err)
	}
	return &admin, nil
}

// ListSummaries returns every admin as reference data.
func (r *AdminRepository) ListSummaries(ctx context.Context) ([]models.AdminSummary, error) {
	const query = `SELECT admin_id, name, email FROM admin ORDER BY name ASC`
	var admins []models.AdminSummary
	if err := r.db.SelectContext(ctx, &admins, query); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// UpdateLastLogin updates the last_login timestamp.
func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE admin SET last_login = $2, updated_at = $3 WHERE admin_id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *AdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE admin SET password_hash = $2, updated_at = $3 WHERE admin_id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CreateRefreshToken persists a refresh token entry.
func (r *AdminRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, admin_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent) VALUES (:id, :admin_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *AdminRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, admin_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *AdminRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAdminRefreshTokens revokes every live session of an admin.
func (r *AdminRepository) RevokeAdminRefreshTokens(ctx context.Context, adminID string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE admin_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, adminID, revokedAt); err != nil {
		return fmt.Errorf("revoke admin refresh tokens: %w", err)
	}
	return nil
}

// CreateResetToken stores a password reset token.
func (r *AdminRepository) CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO password_reset_tokens (token, admin_id, expires_at, used_at, created_at) VALUES (:token, :admin_id, :expires_at, :used_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken marks an unused, unexpired token as used and returns it.
// sql.ErrNoRows means the token is unknown, used or expired.
func (r *AdminRepository) ConsumeResetToken(ctx context.Context, token string, now time.Time) (*models.PasswordResetToken, error) {
	const query = `UPDATE password_reset_tokens SET used_at = $2 WHERE token = $1 AND used_at IS NULL AND expires_at > $2 RETURNING token, admin_id, expires_at, used_at, created_at`
	var rt models.PasswordResetToken
	if err := r.db.GetContext(ctx, &rt, query, token, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	return &rt, nil
}

// CreateAuditLog stores an audit log entry.
func (r *AdminRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, admin_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :admin_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
