package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-admin-api/internal/dto"
	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/internal/service"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
	"github.com/noah-isme/facility-admin-api/pkg/export"
	"github.com/noah-isme/facility-admin-api/pkg/response"
)

type reportJobs interface {
	CreateJob(ctx context.Context, adminID string, req dto.ReportRequest) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, adminID, id string) (*dto.ReportStatusResponse, error)
	ListJobs(ctx context.Context, adminID string) ([]dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

type completionReports interface {
	CompletionReport(ctx context.Context, filter models.CompletionReportFilter) ([]models.CompletionReportRow, error)
	Render(ctx context.Context, format models.ReportFormat, filter models.CompletionReportFilter) (*service.ExportFile, error)
}

// ReportHandler exposes the work order history report and its exports.
type ReportHandler struct {
	jobs    reportJobs
	reports completionReports
	loc     *time.Location
}

// NewReportHandler constructs handler. loc interprets the from/to filters.
func NewReportHandler(jobs reportJobs, reports completionReports, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{jobs: jobs, reports: reports, loc: loc}
}

// Completed godoc
// @Summary Completed work orders with their working duration
// @Tags Reports
// @Produce json
// @Param from query string false "Created from (YYYY-MM-DD)"
// @Param to query string false "Created to, inclusive (YYYY-MM-DD)"
// @Param technician_id query string false "Technician"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) Completed(c *gin.Context) {
	filter, err := h.completionFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.reports.CompletionReport(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CompletionReportResponse{Reports: rows}, nil)
}

// Export godoc
// @Summary Download the completion report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param from query string false "Created from (YYYY-MM-DD)"
// @Param to query string false "Created to, inclusive (YYYY-MM-DD)"
// @Param technician_id query string false "Technician"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/work-orders/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	filter, err := h.completionFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := models.ReportFormat(trimmedQuery(c, "format"))
	if format == "" {
		format = models.ReportFormatCSV
	}
	file, err := h.reports.Render(c.Request.Context(), format, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// CreateExport godoc
// @Summary Queue a completion report export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/exports [post]
func (h *ReportHandler) CreateExport(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), currentAdminID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// ListExports godoc
// @Summary Recent export jobs of the current admin
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/exports [get]
func (h *ReportHandler) ListExports(c *gin.Context) {
	jobs, err := h.jobs.ListJobs(c.Request.Context(), currentAdminID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// ExportStatus godoc
// @Summary Export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/exports/{id} [get]
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	status, err := h.jobs.GetStatus(c.Request.Context(), currentAdminID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export through its signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}
	contentType := "application/octet-stream"
	if format, err := export.ParseFormat(string(download.Format)); err == nil {
		contentType = format.ContentType()
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
		"Cache-Control":       "private, max-age=0",
	})
}

func (h *ReportHandler) completionFilter(c *gin.Context) (models.CompletionReportFilter, error) {
	filter := models.CompletionReportFilter{TechnicianID: trimmedQuery(c, "technician_id")}
	if raw := trimmedQuery(c, "from"); raw != "" {
		from, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
		filter.From = &from
	}
	if raw := trimmedQuery(c, "to"); raw != "" {
		to, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	return filter, nil
}
