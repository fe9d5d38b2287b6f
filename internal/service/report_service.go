package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/facility-admin-api/internal/dto"
	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/internal/repository"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
	"github.com/noah-isme/facility-admin-api/pkg/jobs"
	"github.com/noah-isme/facility-admin-api/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	ListByCreator(ctx context.Context, adminID string, limit int) ([]models.ReportJob, error)
	Update(ctx context.Context, id string, upd repository.ReportJobUpdate) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

type exportFiles interface {
	ParseToken(token string, allowExpired bool) (storage.SignedRef, error)
	Open(relPath string) (*os.File, error)
	Cleanup(ttl time.Duration) ([]string, error)
}

// ReportService manages asynchronous export jobs.
type ReportService struct {
	repo     reportJobStore
	queue    jobDispatcher
	files    exportFiles
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ReportServiceConfig
	location *time.Location
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	Location        *time.Location
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

func NewReportService(repo reportJobStore, queue jobDispatcher, files exportFiles, metrics *MetricsService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		repo:     repo,
		queue:    queue,
		files:    files,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		location: loc,
	}
}

// CreateJob validates the request, persists a queued job and hands it to the worker queue.
func (s *ReportService) CreateJob(ctx context.Context, adminID string, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	params, err := s.jobParams(req)
	if err != nil {
		return nil, err
	}
	job := &models.ReportJob{
		Type:      models.ReportTypeWorkOrderCompletion,
		Params:    params,
		Status:    models.ReportStatusQueued,
		CreatedBy: adminID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	s.metrics.RecordReportJob(string(models.ReportStatusQueued))

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		if updateErr := s.repo.Update(ctx, job.ID, repository.ReportJobUpdate{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		}); updateErr != nil {
			s.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		s.metrics.RecordReportJob(string(models.ReportStatusFailed))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus returns job progress. Admins only see their own jobs.
func (s *ReportService) GetStatus(ctx context.Context, adminID, id string) (*dto.ReportStatusResponse, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.CreatedBy != adminID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	resp := statusResponse(*job)
	return &resp, nil
}

// ListJobs returns the admin's recent jobs, newest first.
func (s *ReportService) ListJobs(ctx context.Context, adminID string) ([]dto.ReportStatusResponse, error) {
	records, err := s.repo.ListByCreator(ctx, adminID, 20)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report jobs")
	}
	out := make([]dto.ReportStatusResponse, 0, len(records))
	for _, job := range records {
		out = append(out, statusResponse(job))
	}
	return out, nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	ref, err := s.files.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.FindByID(ctx, ref.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.files.Open(ref.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(ref.Path),
		Format:    job.Params.Format,
		ExpiresAt: ref.ExpiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued report jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if len(pending) > 0 {
		s.logger.Info("requeued pending report jobs", zap.Int("count", len(pending)))
	}
}

// StartCleanup purges expired exports and their job rows until ctx is done.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	removed, err := s.files.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export file cleanup failed", zap.Error(err))
	}
	rows, err := s.repo.DeleteFinishedBefore(ctx, time.Now().UTC().Add(-s.cfg.ResultTTL))
	if err != nil {
		s.logger.Warn("report job cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 || rows > 0 {
		s.logger.Info("expired exports removed", zap.Int("files", len(removed)), zap.Int64("jobs", rows))
	}
}

func (s *ReportService) jobParams(req dto.ReportRequest) (models.ReportJobParams, error) {
	format := models.ReportFormat(strings.ToLower(strings.TrimSpace(string(req.Format))))
	if format == "" {
		format = models.ReportFormatCSV
	}
	if format != models.ReportFormatCSV && format != models.ReportFormatPDF {
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	params := models.ReportJobParams{Format: format, TechnicianID: strings.TrimSpace(req.TechnicianID)}
	if req.From != "" {
		from, err := time.ParseInLocation("2006-01-02", req.From, s.location)
		if err != nil {
			return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
		params.From = &from
	}
	if req.To != "" {
		to, err := time.ParseInLocation("2006-01-02", req.To, s.location)
		if err != nil {
			return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
		end := to.AddDate(0, 0, 1)
		params.To = &end
	}
	if params.From != nil && params.To != nil && !params.To.After(*params.From) {
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	return params, nil
}

func statusResponse(job models.ReportJob) dto.ReportStatusResponse {
	resp := dto.ReportStatusResponse{
		ID:        job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		Format:    job.Params.Format,
		ResultURL: job.ResultURL,
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	if job.FinishedAt != nil {
		finished := job.FinishedAt.UTC().Format(time.RFC3339)
		resp.FinishedAt = &finished
	}
	return resp
}

// ReportWorker bridges queue jobs to ExportService.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

func NewReportWorker(repo reportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job. A returned error lets the queue retry it.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.FindByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.ReportJobUpdate{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ReportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.ReportJobUpdate{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
			w.metrics.RecordReportJob(string(models.ReportStatusFailed))
		} else {
			queued := models.ReportStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.ReportJobUpdate{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Warn("failed to mark job queued", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}

	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.ReportJobUpdate{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.metrics.RecordReportJob(string(models.ReportStatusFinished))
	return nil
}
