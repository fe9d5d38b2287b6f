package models

// DashboardCounts are the raw totals behind the stat cards.
type DashboardCounts struct {
	WorkOrders  int `db:"work_orders" json:"work_orders"`
	Completed   int `db:"completed" json:"completed"`
	Technicians int `db:"technicians" json:"technicians"`
	Bookings    int `db:"bookings" json:"bookings"`
}

// DailyCount is the number of work orders created on one date.
type DailyCount struct {
	Date  string `db:"day" json:"date"`
	Count int    `db:"count" json:"count"`
}

// StatusCount is the number of work orders in one status.
type StatusCount struct {
	Status WorkOrderStatus `db:"status" json:"status"`
	Label  string          `db:"-" json:"label"`
	Count  int             `db:"count" json:"count"`
}

// MonthlyCount is the number of work orders created in one month (1-12).
type MonthlyCount struct {
	Month int `db:"month" json:"month"`
	Count int `db:"count" json:"count"`
}
