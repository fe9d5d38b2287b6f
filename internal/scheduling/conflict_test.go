package scheduling

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/facility-admin-api/internal/models"
)

const successRoom = "Success Meeting Room"

func booking(id, title, date string, start, duration int, room string) models.Booking {
	return models.Booking{ID: id, Title: title, Date: date, StartTime: start, Duration: duration, Type: models.EventMeeting, Location: room}
}

func candidate(t *testing.T, date string, start, duration int, room string) Candidate {
	t.Helper()
	return Candidate{Title: "New", Location: room, Slot: Slot{Date: mustDate(t, date), StartTime: start, Duration: duration}}
}

func TestDetectSameSlotRejected(t *testing.T) {
	existing := []models.Booking{booking("b1", "Team Meeting", "2025-06-01", 9, 1, successRoom)}

	conflict := Detect(candidate(t, "2025-06-01", 9, 1, successRoom), existing, "")
	require.NotNil(t, conflict)
	assert.Equal(t, `Room "Success Meeting Room" is already booked for "Team Meeting" from 09:00 to 10:00`, conflict.Message)
	assert.Equal(t, "b1", conflict.Booking.ID)
}

func TestDetectBoundaryTouchingAdmitted(t *testing.T) {
	existing := []models.Booking{booking("b1", "Team Meeting", "2025-06-01", 9, 1, successRoom)}

	assert.Nil(t, Detect(candidate(t, "2025-06-01", 10, 1, successRoom), existing, ""))
	assert.Nil(t, Detect(candidate(t, "2025-06-01", 8, 1, successRoom), existing, ""))
}

func TestDetectOverlapShapes(t *testing.T) {
	existing := []models.Booking{booking("b1", "Workshop", "2025-06-01", 10, 3, successRoom)}

	cases := []struct {
		name     string
		start    int
		duration int
		want     bool
	}{
		{"starts inside", 11, 4, true},
		{"ends inside", 8, 3, true},
		{"covers", 9, 6, true},
		{"inside", 11, 1, true},
		{"ends at start", 7, 3, false},
		{"starts at end", 13, 2, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Detect(candidate(t, "2025-06-01", tc.start, tc.duration, successRoom), existing, "")
			assert.Equal(t, tc.want, got != nil)
		})
	}
}

func TestDetectFirstMatchWins(t *testing.T) {
	existing := []models.Booking{
		booking("b1", "Standup", "2025-06-01", 9, 1, successRoom),
		booking("b2", "Review", "2025-06-01", 10, 1, successRoom),
	}

	conflict := Detect(candidate(t, "2025-06-01", 9, 2, successRoom), existing, "")
	require.NotNil(t, conflict)
	assert.Equal(t, "b1", conflict.Booking.ID)

	reversed := []models.Booking{existing[1], existing[0]}
	conflict = Detect(candidate(t, "2025-06-01", 9, 2, successRoom), reversed, "")
	require.NotNil(t, conflict)
	assert.Equal(t, "b2", conflict.Booking.ID)
}

func TestDetectDifferentRoomsNeverConflict(t *testing.T) {
	existing := []models.Booking{booking("b1", "Team Meeting", "2025-06-01", 9, 3, "Auditorium")}
	assert.Nil(t, Detect(candidate(t, "2025-06-01", 9, 3, successRoom), existing, ""))
}

func TestDetectSelfExclusionOnEdit(t *testing.T) {
	self := booking("b1", "Team Meeting", "2025-06-01", 9, 2, successRoom)
	existing := []models.Booking{self, booking("b2", "Lunch", "2025-06-01", 12, 1, successRoom)}

	c, err := CandidateOf(self)
	require.NoError(t, err)
	assert.Nil(t, Detect(c, existing, "b1"))
	assert.NotNil(t, Detect(c, existing, ""))

	c.Slot.Duration = 4
	conflict := Detect(c, existing, "b1")
	require.NotNil(t, conflict)
	assert.Equal(t, "b2", conflict.Booking.ID)
}

func TestDetectAcrossMidnight(t *testing.T) {
	late := booking("b1", "Night Shift Briefing", "2025-06-01", 22, 4, successRoom)

	conflict := Detect(candidate(t, "2025-06-02", 1, 1, successRoom), []models.Booking{late}, "")
	require.NotNil(t, conflict)
	assert.Equal(t, `Room "Success Meeting Room" is already booked for "Night Shift Briefing" from 22:00 to 02:00`, conflict.Message)

	assert.Nil(t, Detect(candidate(t, "2025-06-02", 2, 1, successRoom), []models.Booking{late}, ""))

	early := booking("b2", "Early", "2025-06-02", 0, 2, successRoom)
	assert.NotNil(t, Detect(candidate(t, "2025-06-01", 23, 2, successRoom), []models.Booking{early}, ""))
	assert.Nil(t, Detect(candidate(t, "2025-06-01", 23, 1, successRoom), []models.Booking{early}, ""))
}

func TestDetectSkipsMalformedRows(t *testing.T) {
	existing := []models.Booking{booking("bad", "Broken", "not-a-date", 9, 1, successRoom)}
	assert.Nil(t, Detect(candidate(t, "2025-06-01", 9, 1, successRoom), existing, ""))
}

// Every pair of hour intervals on a two-day grid: the detector agrees with the
// plain half-open overlap predicate in both directions.
func TestDetectMatchesHalfOpenOverlap(t *testing.T) {
	dates := []string{"2025-06-01", "2025-06-02"}
	type spec struct {
		date            string
		start, duration int
	}
	var slots []spec
	for _, d := range dates {
		for start := 0; start < 24; start += 3 {
			for _, dur := range []int{1, 2, 5, 26} {
				slots = append(slots, spec{d, start, dur})
			}
		}
	}

	for _, a := range slots {
		for _, b := range slots {
			existing := []models.Booking{booking("a", "A", a.date, a.start, a.duration, successRoom)}
			c := candidate(t, b.date, b.start, b.duration, successRoom)
			ia := Slot{Date: mustDate(t, a.date), StartTime: a.start, Duration: a.duration}.Interval()
			want := ia.Overlaps(c.Slot.Interval())

			got := Detect(c, existing, "") != nil
			require.Equal(t, want, got, fmt.Sprintf("existing %+v candidate %+v", a, b))
		}
	}
}

func TestAdmitReturnsConflictError(t *testing.T) {
	existing := []models.Booking{booking("b1", "Team Meeting", "2025-06-01", 9, 1, successRoom)}

	err := Admit(candidate(t, "2025-06-01", 9, 1, successRoom), existing, "")
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Contains(t, conflictErr.Error(), "Team Meeting")
	assert.Contains(t, conflictErr.Error(), "09:00")
	assert.Contains(t, conflictErr.Error(), "10:00")

	assert.NoError(t, Admit(candidate(t, "2025-06-01", 10, 1, successRoom), existing, ""))
}

func TestConflictMessageKeepsTitleVerbatim(t *testing.T) {
	existing := booking("b1", `Q3 "All Hands"`, "2025-06-01", 9, 1, successRoom)

	assert.Equal(t, `Room "Success Meeting Room" is already booked for "Q3 "All Hands"" from 09:00 to 10:00`, ConflictMessage(successRoom, existing))
}
