package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/facility-admin-api/internal/models"
)

// DashboardRepository runs the aggregate queries behind the dashboard charts.
type DashboardRepository struct {
	db *sqlx.DB
}

func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Counts returns the stat card totals.
func (r *DashboardRepository) Counts(ctx context.Context) (models.DashboardCounts, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM workorder) AS work_orders,
	(SELECT COUNT(*) FROM workorder WHERE status = $1) AS completed,
	(SELECT COUNT(*) FROM technician) AS technicians,
	(SELECT COUNT(*) FROM meeting_room_booking) AS bookings`
	var counts models.DashboardCounts
	if err := r.db.GetContext(ctx, &counts, query, string(models.StatusSelesai)); err != nil {
		return models.DashboardCounts{}, fmt.Errorf("dashboard counts: %w", err)
	}
	return counts, nil
}

// StatusCounts groups work orders created in [from, to) by status.
func (r *DashboardRepository) StatusCounts(ctx context.Context, from, to time.Time) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM workorder WHERE created_at >= $1 AND created_at < $2 GROUP BY status ORDER BY status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, from, to); err != nil {
		return nil, fmt.Errorf("dashboard status counts: %w", err)
	}
	return counts, nil
}

// DailyCounts returns per-day creation counts in [from, to); days without rows are absent.
func (r *DashboardRepository) DailyCounts(ctx context.Context, from, to time.Time, tz string) ([]models.DailyCount, error) {
	const query = `SELECT to_char((created_at AT TIME ZONE $3)::date, 'YYYY-MM-DD') AS day, COUNT(*) AS count FROM workorder WHERE created_at >= $1 AND created_at < $2 GROUP BY day ORDER BY day`
	var counts []models.DailyCount
	if err := r.db.SelectContext(ctx, &counts, query, from, to, tz); err != nil {
		return nil, fmt.Errorf("dashboard daily counts: %w", err)
	}
	return counts, nil
}

// MonthlyCounts returns per-month creation counts for a year; months without rows are absent.
func (r *DashboardRepository) MonthlyCounts(ctx context.Context, year int, tz string) ([]models.MonthlyCount, error) {
	const query = `SELECT EXTRACT(MONTH FROM created_at AT TIME ZONE $2)::int AS month, COUNT(*) AS count FROM workorder WHERE EXTRACT(YEAR FROM created_at AT TIME ZONE $2)::int = $1 GROUP BY month ORDER BY month`
	var counts []models.MonthlyCount
	if err := r.db.SelectContext(ctx, &counts, query, year, tz); err != nil {
		return nil, fmt.Errorf("dashboard monthly counts: %w", err)
	}
	return counts, nil
}
