package dto

import "github.com/noah-isme/facility-admin-api/internal/models"

// ReportRequest captures POST /reports/exports payload.
type ReportRequest struct {
	Format       models.ReportFormat `json:"format"`
	From         string              `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To           string              `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TechnicianID string              `json:"technicianId,omitempty"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID         string              `json:"id"`
	Status     models.ReportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	Format     models.ReportFormat `json:"format"`
	ResultURL  *string             `json:"resultUrl,omitempty"`
	Error      *string             `json:"error,omitempty"`
	CreatedAt  string              `json:"createdAt"`
	FinishedAt *string             `json:"finishedAt,omitempty"`
}

// CompletionReportResponse wraps GET /reports.
type CompletionReportResponse struct {
	Reports []models.CompletionReportRow `json:"reports"`
}
