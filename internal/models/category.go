package models

import "time"

// Category groups work orders by building floor.
type Category struct {
	ID        string    `db:"category_id" json:"id"`
	Lantai    string    `db:"lantai" json:"lantai"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
