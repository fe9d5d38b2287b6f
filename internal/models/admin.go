package models

import "time"

// Role is the role claim carried by dashboard accounts.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
)

// Admin is a dashboard account stored in the admin table.
type Admin struct {
	ID           string     `db:"admin_id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         Role       `db:"role" json:"role"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// AdminSummary is the reference-data view of an admin used by dropdowns.
type AdminSummary struct {
	ID    string `db:"admin_id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
