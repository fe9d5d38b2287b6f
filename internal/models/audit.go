package models

import "time"

// Audit actions recorded for dashboard mutations.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordReset  = "PASSWORD_RESET"
	AuditActionBookingCreate  = "BOOKING_CREATE"
	AuditActionBookingUpdate  = "BOOKING_UPDATE"
	AuditActionBookingDelete  = "BOOKING_DELETE"
	AuditActionWorkOrderWrite = "WORKORDER_WRITE"
	AuditActionTechnicianAdd  = "TECHNICIAN_REGISTER"
	AuditActionReportExport   = "REPORT_EXPORT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	AdminID    *string   `db:"admin_id" json:"admin_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
