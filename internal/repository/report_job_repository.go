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

const reportJobColumns = `id, type, params, status, progress, result_url, created_by, created_at, finished_at, error_message`

// ReportJobRepository tracks asynchronous export jobs.
type ReportJobRepository struct {
	db *sqlx.DB
}

func NewReportJobRepository(db *sqlx.DB) *ReportJobRepository {
	return &ReportJobRepository{db: db}
}

// Create inserts a queued job.
func (r *ReportJobRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_jobs (` + reportJobColumns + `) VALUES (:id, :type, :params, :status, :progress, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID returns sql.ErrNoRows for unknown jobs.
func (r *ReportJobRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, `SELECT `+reportJobColumns+` FROM report_jobs WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find report job: %w", err)
	}
	return &job, nil
}

// ListByCreator returns an admin's most recent jobs.
func (r *ReportJobRepository) ListByCreator(ctx context.Context, adminID string, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	var jobs []models.ReportJob
	query := `SELECT ` + reportJobColumns + ` FROM report_jobs WHERE created_by = $1 ORDER BY created_at DESC LIMIT $2`
	if err := r.db.SelectContext(ctx, &jobs, query, adminID, limit); err != nil {
		return nil, fmt.Errorf("list report jobs: %w", err)
	}
	return jobs, nil
}

// ReportJobUpdate holds the fields a worker may change; nil leaves a column untouched.
type ReportJobUpdate struct {
	Status       *models.ReportStatus
	Progress     *int
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update applies a partial update.
func (r *ReportJobRepository) Update(ctx context.Context, id string, upd ReportJobUpdate) error {
	var set []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.Progress != nil {
		add("progress", *upd.Progress)
	}
	if upd.ResultURL != nil {
		add("result_url", *upd.ResultURL)
	}
	if upd.ErrorMessage != nil {
		add("error_message", *upd.ErrorMessage)
	}
	if upd.FinishedAt != nil {
		add("finished_at", *upd.FinishedAt)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE report_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	return nil
}

// ListQueued returns jobs still waiting, oldest first, for resubmission after a restart.
func (r *ReportJobRepository) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	var jobs []models.ReportJob
	query := `SELECT ` + reportJobColumns + ` FROM report_jobs WHERE status = $1 ORDER BY created_at ASC LIMIT $2`
	if err := r.db.SelectContext(ctx, &jobs, query, models.ReportStatusQueued, limit); err != nil {
		return nil, fmt.Errorf("list queued report jobs: %w", err)
	}
	return jobs, nil
}

// DeleteFinishedBefore drops finished job rows older than cutoff and reports how many went.
func (r *ReportJobRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM report_jobs WHERE status IN ($1, $2) AND finished_at < $3`, models.ReportStatusFinished, models.ReportStatusFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete finished report jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
