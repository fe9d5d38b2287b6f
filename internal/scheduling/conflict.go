package scheduling

import (
	"fmt"

	"github.com/noah-isme/facility-admin-api/internal/models"
)

// Candidate is a booking proposed for admission.
type Candidate struct {
	Title    string
	Location string
	Slot     Slot
}

// CandidateOf builds a candidate from a booking.
func CandidateOf(b models.Booking) (Candidate, error) {
	slot, err := SlotOf(b)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{Title: b.Title, Location: b.Location, Slot: slot}, nil
}

// Conflict describes the first existing booking that blocks a candidate.
type Conflict struct {
	Message string         `json:"message"`
	Booking models.Booking `json:"booking"`
}

// ConflictError is returned when a candidate collides with an existing booking.
type ConflictError struct {
	Conflict Conflict
}

func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Conflict.Message
}

// ConflictMessage renders the rejection shown to the user.
func ConflictMessage(location string, existing models.Booking) string {
	return fmt.Sprintf("Room \"%s\" is already booked for \"%s\" from %s to %s",
		location,
		existing.Title,
		FormatHour(existing.StartTime),
		FormatHour(existing.StartTime+existing.Duration),
	)
}

// Detect returns the first booking in existing, in order, that overlaps the
// candidate in the same room, or nil when the candidate may be admitted.
// The booking whose ID equals excludeID is skipped so an edit never collides
// with itself. Existing rows with unparsable dates are ignored.
func Detect(c Candidate, existing []models.Booking, excludeID string) *Conflict {
	want := c.Slot.Interval()
	// days the candidate touches; a booking is in scope when it starts on the
	// candidate's date or its own interval reaches into one of these days
	scope := Interval{Start: want.Start.Midnight(), End: want.End.AddHours(23).Midnight()}

	for _, e := range existing {
		if excludeID != "" && e.ID == excludeID {
			continue
		}
		if e.Location != c.Location {
			continue
		}
		slot, err := SlotOf(e)
		if err != nil {
			continue
		}
		have := slot.Interval()
		if slot.Date != c.Slot.Date && !have.Overlaps(scope) {
			continue
		}
		if overlaps(want, have) {
			return &Conflict{Message: ConflictMessage(c.Location, e), Booking: e}
		}
	}
	return nil
}

// Admit is Detect as an error.
func Admit(c Candidate, existing []models.Booking, excludeID string) error {
	if conflict := Detect(c, existing, excludeID); conflict != nil {
		return &ConflictError{Conflict: *conflict}
	}
	return nil
}

// overlaps spells out the admission rule on unwrapped instants: the candidate
// starts inside e, ends inside e, or covers e entirely.
func overlaps(c, e Interval) bool {
	startsInside := !c.Start.Before(e.Start) && c.Start.Before(e.End)
	endsInside := e.Start.Before(c.End) && !e.End.Before(c.End)
	covers := !e.Start.Before(c.Start) && !c.End.Before(e.End)
	return startsInside || endsInside || covers
}
