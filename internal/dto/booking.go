package dto

import (
	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/internal/scheduling"
)

// BookingRequest is the create/update payload of the scheduler.
type BookingRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Date        string           `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   *int             `json:"startTime" validate:"required"`
	Duration    int              `json:"duration"`
	Type        models.EventType `json:"type" validate:"required"`
	Location    string           `json:"location" validate:"required"`
	Description string           `json:"description" validate:"max=2000"`
}

// BookingEvents is the body of every booking read and mutation.
type BookingEvents struct {
	Event  *models.Booking  `json:"event,omitempty"`
	Events []models.Booking `json:"events"`
}

// BookingConflictData accompanies a BOOKING_CONFLICT error.
type BookingConflictData struct {
	Conflict models.Booking `json:"conflict"`
}

// RoomSchedule is one room column of the schedule table.
type RoomSchedule struct {
	Room   string             `json:"room"`
	Events []scheduling.Entry `json:"events"`
}

// DayScheduleResponse is the schedule table of one date.
type DayScheduleResponse struct {
	Date  string         `json:"date"`
	Type  string         `json:"type"`
	Rooms []RoomSchedule `json:"rooms"`
}
