package models

import "time"

// CompletionReportRow is a finished work order as listed on the history page.
type CompletionReportRow struct {
	ID             string     `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	TechnicianName *string    `db:"technician_name" json:"technician_name,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	StartTime      *time.Time `db:"start_time" json:"start_time,omitempty"`
	EndTime        *time.Time `db:"end_time" json:"end_time,omitempty"`
	BeforeURL      *string    `db:"before_url" json:"before_url,omitempty"`
	AfterURL       *string    `db:"after_url" json:"after_url,omitempty"`
	Duration       string     `db:"-" json:"duration"`
}

// CompletionReportFilter narrows the completion report.
type CompletionReportFilter struct {
	From         *time.Time
	To           *time.Time
	TechnicianID string
}
