package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/facility-admin-api/internal/models"
)

var (
	ErrStartTimeRange = errors.New("startTime must be between 0 and 23")
	ErrDurationRange  = errors.New("duration must be at least 1 hour")
)

// ValidationError reports a malformed booking candidate.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Slot is the when of a booking: Duration hours from StartTime on Date.
type Slot struct {
	Date      Date
	StartTime int
	Duration  int
}

// Validate enforces startTime in [0,23] and duration >= 1.
func (s Slot) Validate() error {
	if s.StartTime < 0 || s.StartTime > 23 {
		return &ValidationError{Field: "startTime", Err: ErrStartTimeRange}
	}
	if s.Duration < 1 {
		return &ValidationError{Field: "duration", Err: ErrDurationRange}
	}
	return nil
}

// Interval returns the occupied half-open interval [start, end).
func (s Slot) Interval() Interval {
	start := s.Date.At(s.StartTime)
	return Interval{Start: start, End: start.AddHours(s.Duration)}
}

// SpillsOver reports whether the slot ends after midnight of its start date.
func (s Slot) SpillsOver() bool {
	return s.StartTime+s.Duration > 24
}

// EndLabel is the display end hour, marked when it lands on a later day.
func (s Slot) EndLabel() string {
	label := FormatHour(s.StartTime + s.Duration)
	if s.SpillsOver() {
		return label + " (Next day)"
	}
	return label
}

// SlotOf extracts the slot of a booking.
func SlotOf(b models.Booking) (Slot, error) {
	d, err := ParseDate(b.Date)
	if err != nil {
		return Slot{}, &ValidationError{Field: "date", Err: err}
	}
	return Slot{Date: d, StartTime: b.StartTime, Duration: b.Duration}, nil
}

// Interval is a half-open range of instants.
type Interval struct {
	Start Instant
	End   Instant
}

// Overlaps is the half-open overlap test used for room conflicts.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

// Contains reports whether x lies in [Start, End).
func (iv Interval) Contains(x Instant) bool {
	return !x.Before(iv.Start) && x.Before(iv.End)
}

// Hours is the length of the interval.
func (iv Interval) Hours() int {
	return iv.Start.HoursUntil(iv.End)
}

// FromRecord converts a stored row into the hour-granular booking seen in loc.
func FromRecord(rec models.BookingRecord, loc *time.Location) models.Booking {
	start := InstantOf(rec.StartTime, loc)
	end := InstantOf(rec.EndTime, loc)
	b := models.Booking{
		ID:        rec.ID,
		Title:     rec.Title,
		Date:      start.Date().String(),
		StartTime: start.Hour,
		Duration:  Interval{Start: start, End: end}.Hours(),
		Type:      models.EventType(strings.ToLower(rec.EventType)),
		Location:  rec.RoomName,
		RoomID:    rec.RoomID,
	}
	if rec.Description != nil {
		b.Description = *rec.Description
	}
	if rec.AdminID != nil {
		b.AdminID = *rec.AdminID
	}
	return b
}

// FromRecords converts rows preserving order.
func FromRecords(recs []models.BookingRecord, loc *time.Location) []models.Booking {
	out := make([]models.Booking, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecord(rec, loc))
	}
	return out
}

// Bounds returns the wall-clock start and end of a slot in loc.
func Bounds(s Slot, loc *time.Location) (time.Time, time.Time) {
	iv := s.Interval()
	return iv.Start.In(loc), iv.End.In(loc)
}
