package dto

import "github.com/noah-isme/facility-admin-api/internal/models"

// DashboardStats feeds the stat cards.
type DashboardStats struct {
	TotalWorkOrders     int     `json:"total_work_orders"`
	CompletedWorkOrders int     `json:"completed_work_orders"`
	Technicians         int     `json:"technicians"`
	Bookings            int     `json:"bookings"`
	CompletionRate      float64 `json:"completion_rate"`
}

// DashboardRange feeds the range-filtered charts. Daily has one entry per
// date in [Start, End], zero-filled.
type DashboardRange struct {
	Start          string               `json:"start"`
	End            string               `json:"end"`
	Total          int                  `json:"total"`
	Completed      int                  `json:"completed"`
	CompletionRate float64              `json:"completion_rate"`
	Statuses       []models.StatusCount `json:"statuses"`
	Daily          []models.DailyCount  `json:"daily"`
}

// DashboardMonthly has exactly twelve buckets, January first.
type DashboardMonthly struct {
	Year   int                   `json:"year"`
	Months []models.MonthlyCount `json:"months"`
}

// DashboardOverview bundles the stat cards with the reference lists the
// dashboard filters need.
type DashboardOverview struct {
	Stats       DashboardStats        `json:"stats"`
	Rooms       []models.Room         `json:"rooms"`
	Technicians []models.Technician   `json:"technicians"`
	Categories  []models.Category     `json:"categories"`
	Admins      []models.AdminSummary `json:"admins"`
}
