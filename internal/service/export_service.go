package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/facility-admin-api/internal/models"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
	"github.com/noah-isme/facility-admin-api/pkg/export"
	"github.com/noah-isme/facility-admin-api/pkg/storage"
)

const completionReportName = "work_order_report"

var completionHeaders = []string{"WO Title", "Technician", "Created At", "Start", "End", "Duration", "Before Photo", "After Photo"}

type completionSource interface {
	ListCompleted(ctx context.Context, filter models.CompletionReportFilter) ([]models.CompletionReportRow, error)
}

type fileStorage interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	Location  *time.Location
	// CSV tunes the CSV encoding of downloads and background exports.
	CSV []export.CSVOption
}

// ExportResult captures a stored export and its signed download link.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportFile is a report rendered in memory for direct download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService builds the completion report and renders it as CSV or PDF.
type ExportService struct {
	source  completionSource
	storage fileStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

func NewExportService(source completionSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ExportService{
		source:  source,
		storage: store,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// CompletionReport lists finished work orders with their formatted duration.
func (s *ExportService) CompletionReport(ctx context.Context, filter models.CompletionReportFilter) ([]models.CompletionReportRow, error) {
	rows, err := s.source.ListCompleted(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completion report")
	}
	if rows == nil {
		rows = []models.CompletionReportRow{}
	}
	for i := range rows {
		rows[i].Duration = FormatWorkDuration(rows[i].StartTime, rows[i].EndTime)
	}
	return rows, nil
}

// Render produces the report in the requested format for a synchronous download.
func (s *ExportService) Render(ctx context.Context, format models.ReportFormat, filter models.CompletionReportFilter) (*ExportFile, error) {
	f, err := export.ParseFormat(string(format))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	rows, err := s.CompletionReport(ctx, filter)
	if err != nil {
		return nil, err
	}
	payload, err := s.render(f, rows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &ExportFile{
		Filename:    completionReportName + f.Extension(),
		ContentType: f.ContentType(),
		Data:        payload,
	}, nil
}

// Generate renders the job's report into storage and signs a download URL for it.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if job.Type != models.ReportTypeWorkOrderCompletion {
		return nil, fmt.Errorf("unsupported report type %s", job.Type)
	}
	f, err := export.ParseFormat(string(job.Params.Format))
	if err != nil {
		return nil, err
	}
	rows, err := s.source.ListCompleted(ctx, models.CompletionReportFilter{
		From:         job.Params.From,
		To:           job.Params.To,
		TechnicianID: job.Params.TechnicianID,
	})
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Duration = FormatWorkDuration(rows[i].StartTime, rows[i].EndTime)
	}
	payload, err := s.render(f, rows)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s_%s_%s%s", completionReportName, job.ID, s.now().UTC().Format("20060102_150405"), f.Extension())
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")

	s.logger.Info("report generated",
		zap.String("job_id", job.ID),
		zap.String("format", string(f)),
		zap.Int("rows", len(rows)),
	)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.SignedRef, error) {
	return s.signer.Parse(token, allowExpired)
}

func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) render(f export.Format, rows []models.CompletionReportRow) ([]byte, error) {
	renderer, err := export.RendererFor(f, s.cfg.CSV...)
	if err != nil {
		return nil, err
	}
	return renderer.Render(completionDataset(rows, s.cfg.Location))
}

func completionDataset(rows []models.CompletionReportRow, loc *time.Location) export.Dataset {
	data := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		created := row.CreatedAt
		data = append(data, map[string]string{
			"WO Title":     row.Title,
			"Technician":   orDash(row.TechnicianName),
			"Created At":   formatReportTime(&created, loc),
			"Start":        formatReportTime(row.StartTime, loc),
			"End":          formatReportTime(row.EndTime, loc),
			"Duration":     row.Duration,
			"Before Photo": orDash(row.BeforeURL),
			"After Photo":  orDash(row.AfterURL),
		})
	}
	return export.Dataset{
		Title:   "Work Order Completion Report",
		Headers: completionHeaders,
		Rows:    data,
	}
}

// FormatWorkDuration renders the time between start and end as "X hari Y jam Z menit",
// dropping zero parts. It returns "-" when either end is missing or end precedes start.
func FormatWorkDuration(start, end *time.Time) string {
	if start == nil || end == nil || end.Before(*start) {
		return "-"
	}
	total := int(end.Sub(*start) / time.Minute)
	days := total / (60 * 24)
	hours := (total % (60 * 24)) / 60
	minutes := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d hari", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d jam", hours))
	}
	if minutes > 0 || (days == 0 && hours == 0) {
		parts = append(parts, fmt.Sprintf("%d menit", minutes))
	}
	return strings.Join(parts, " ")
}

func formatReportTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

func orDash(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "-"
	}
	return *v
}
