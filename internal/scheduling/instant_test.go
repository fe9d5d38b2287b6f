package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, raw string) Date {
	t.Helper()
	d, err := ParseDate(raw)
	require.NoError(t, err)
	return d
}

func TestInstantAddHoursNormalises(t *testing.T) {
	start := Instant{Year: 2024, Month: time.December, Day: 31, Hour: 22}

	got := start.AddHours(4)
	assert.Equal(t, Instant{Year: 2025, Month: time.January, Day: 1, Hour: 2}, got)
	assert.Equal(t, start, got.AddHours(-4))
	assert.Equal(t, Instant{Year: 2024, Month: time.February, Day: 29, Hour: 0}, Instant{Year: 2024, Month: time.February, Day: 28, Hour: 0}.AddHours(24))
}

func TestInstantCompareAndSameDay(t *testing.T) {
	a := Instant{Year: 2025, Month: time.June, Day: 1, Hour: 9}
	b := a.AddHours(1)

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.True(t, a.Before(b))
	assert.True(t, a.SameDay(b))
	assert.False(t, a.SameDay(a.AddHours(15)))
	assert.Equal(t, 24, a.HoursUntil(a.AddHours(24)))
	assert.Equal(t, Instant{Year: 2025, Month: time.June, Day: 1}, b.Midnight())
}

func TestInstantZoneRoundTrip(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	i := Instant{Year: 2025, Month: time.June, Day: 1, Hour: 22}
	wall := i.In(jakarta)
	assert.Equal(t, 15, wall.UTC().Hour())
	assert.Equal(t, i, InstantOf(wall.UTC(), jakarta))
}

func TestDateHelpers(t *testing.T) {
	d := mustDate(t, "2025-06-01")
	assert.Equal(t, "2025-06-02", d.AddDays(1).String())
	assert.Equal(t, "2025-05-31", d.AddDays(-1).String())
	assert.Equal(t, Instant{Year: 2025, Month: time.June, Day: 2, Hour: 2}, d.At(26))

	_, err := ParseDate("01/06/2025")
	assert.Error(t, err)
}

func TestFormatHour(t *testing.T) {
	cases := map[int]string{0: "00:00", 9: "09:00", 10: "10:00", 23: "23:00", 24: "00:00", 26: "02:00"}
	for h, want := range cases {
		assert.Equal(t, want, FormatHour(h), "hour %d", h)
	}
}

func TestSlotValidate(t *testing.T) {
	d := mustDate(t, "2025-06-01")

	assert.NoError(t, Slot{Date: d, StartTime: 0, Duration: 1}.Validate())
	assert.NoError(t, Slot{Date: d, StartTime: 23, Duration: 30}.Validate())

	err := Slot{Date: d, StartTime: 24, Duration: 1}.Validate()
	assert.ErrorIs(t, err, ErrStartTimeRange)
	err = Slot{Date: d, StartTime: -1, Duration: 1}.Validate()
	assert.ErrorIs(t, err, ErrStartTimeRange)
	err = Slot{Date: d, StartTime: 9, Duration: 0}.Validate()
	assert.ErrorIs(t, err, ErrDurationRange)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "duration", vErr.Field)
}

func TestSlotIntervalAndLabels(t *testing.T) {
	slot := Slot{Date: mustDate(t, "2025-06-01"), StartTime: 22, Duration: 4}

	iv := slot.Interval()
	assert.Equal(t, "2025-06-01 22:00", iv.Start.String())
	assert.Equal(t, "2025-06-02 02:00", iv.End.String())
	assert.Equal(t, 4, iv.Hours())
	assert.True(t, slot.SpillsOver())
	assert.Equal(t, "02:00 (Next day)", slot.EndLabel())

	fits := Slot{Date: slot.Date, StartTime: 22, Duration: 2}
	assert.False(t, fits.SpillsOver())
	assert.Equal(t, "00:00", fits.EndLabel())
}
