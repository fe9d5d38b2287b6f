package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WorkOrderStatus is the canonical lowercase status stored on work orders.
type WorkOrderStatus string

const (
	StatusBelumMulai      WorkOrderStatus = "belum_mulai"
	StatusDalamPengerjaan WorkOrderStatus = "dalam_pengerjaan"
	StatusTerkendala      WorkOrderStatus = "terkendala"
	StatusSelesai         WorkOrderStatus = "selesai"
)

// UnknownStatusLabel is shown for values outside the enum.
const UnknownStatusLabel = "Tidak Diketahui"

// WorkOrderStatuses lists statuses in workflow order.
var WorkOrderStatuses = []WorkOrderStatus{StatusBelumMulai, StatusDalamPengerjaan, StatusTerkendala, StatusSelesai}

var statusLabels = map[WorkOrderStatus]string{
	StatusBelumMulai:      "Belum Mulai",
	StatusDalamPengerjaan: "Dalam Pengerjaan",
	StatusTerkendala:      "Terkendala",
	StatusSelesai:         "Selesai",
}

// legacy spellings seen in older rows and clients, keyed by normalised form
var statusAliases = map[string]WorkOrderStatus{
	"belum_mulai":       StatusBelumMulai,
	"belum mulai":       StatusBelumMulai,
	"waiting":           StatusBelumMulai,
	"menunggu":          StatusBelumMulai,
	"dalam_pengerjaan":  StatusDalamPengerjaan,
	"dalam pengerjaan":  StatusDalamPengerjaan,
	"process":           StatusDalamPengerjaan,
	"procces":           StatusDalamPengerjaan,
	"in progress":       StatusDalamPengerjaan,
	"sedang dikerjakan": StatusDalamPengerjaan,
	"terkendala":        StatusTerkendala,
	"blocked":           StatusTerkendala,
	"selesai":           StatusSelesai,
	"finish":            StatusSelesai,
	"finished":          StatusSelesai,
	"done":              StatusSelesai,
}

// ParseWorkOrderStatus maps any known spelling onto the canonical value.
func ParseWorkOrderStatus(raw string) (WorkOrderStatus, error) {
	key := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if status, ok := statusAliases[key]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown work order status %q", raw)
}

// Valid reports whether s is one of the canonical values.
func (s WorkOrderStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the Indonesian display label.
func (s WorkOrderStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return UnknownStatusLabel
}

func (s *WorkOrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseWorkOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// WorkOrder is a maintenance task row joined with its technician and category.
type WorkOrder struct {
	ID             string          `db:"id" json:"id"`
	Title          string          `db:"title" json:"title"`
	Description    string          `db:"description" json:"description"`
	Status         WorkOrderStatus `db:"status" json:"status"`
	StatusLabel    string          `db:"-" json:"status_label"`
	TechnicianID   *string         `db:"technician_id" json:"technician_id,omitempty"`
	TechnicianName *string         `db:"technician_name" json:"technician_name,omitempty"`
	CategoryID     *string         `db:"category_id" json:"category_id,omitempty"`
	CategoryLantai *string         `db:"category_lantai" json:"category_lantai,omitempty"`
	AdminID        *string         `db:"admin_id" json:"admin_id,omitempty"`
	StartTime      *time.Time      `db:"start_time" json:"start_time,omitempty"`
	EndTime        *time.Time      `db:"end_time" json:"end_time,omitempty"`
	BeforeURL      *string         `db:"before_url" json:"before_url,omitempty"`
	AfterURL       *string         `db:"after_url" json:"after_url,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time      `db:"updated_at" json:"updated_at,omitempty"`
}

// WithLabel fills StatusLabel from Status.
func (w WorkOrder) WithLabel() WorkOrder {
	w.StatusLabel = w.Status.Label()
	return w
}

// WorkOrderFilter describes query params for listing work orders.
type WorkOrderFilter struct {
	Search       string
	Status       WorkOrderStatus
	TechnicianID string
	CategoryID   string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// WorkOrderChange is one row-level change published by the workorder trigger.
type WorkOrderChange struct {
	Op         string    `json:"op"`
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
}
