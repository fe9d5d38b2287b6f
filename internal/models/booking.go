package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventType classifies a booking. Stored lowercase, rendered capitalised.
type EventType string

const (
	EventMeeting     EventType = "meeting"
	EventAppointment EventType = "appointment"
	EventTask        EventType = "task"
	EventBreak       EventType = "break"
)

// EventTypes lists the bookable types in display order.
var EventTypes = []EventType{EventMeeting, EventAppointment, EventTask, EventBreak}

// ParseEventType accepts any casing of a known type.
func ParseEventType(raw string) (EventType, error) {
	t := EventType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range EventTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", raw)
}

// Label returns the capitalised display name.
func (t EventType) Label() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

func (t EventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Label())
}

func (t *EventType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseEventType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Booking is the hour-granular view of a room reservation: it starts on Date
// at StartTime and occupies Duration hours, possibly spilling past midnight.
type Booking struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	StartTime   int       `json:"startTime"`
	Duration    int       `json:"duration"`
	Type        EventType `json:"type"`
	Location    string    `json:"location"`
	RoomID      string    `json:"roomId,omitempty"`
	Description string    `json:"description,omitempty"`
	AdminID     string    `json:"adminId,omitempty"`
}

// BookingRecord is a meeting_room_booking row joined with its room name.
type BookingRecord struct {
	ID          string    `db:"booking_id"`
	Title       string    `db:"title"`
	StartTime   time.Time `db:"start_time"`
	EndTime     time.Time `db:"end_time"`
	EventType   string    `db:"event_type"`
	Description *string   `db:"description"`
	RoomID      string    `db:"room_id"`
	RoomName    string    `db:"room_name"`
	AdminID     *string   `db:"admin_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// BookingFilter selects bookings whose occupied interval intersects [From, To).
type BookingFilter struct {
	RoomID string
	From   *time.Time
	To     *time.Time
}
