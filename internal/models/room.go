package models

// Room is a bookable meeting room.
type Room struct {
	ID   string `db:"room_id" json:"id"`
	Name string `db:"name" json:"name"`
}
