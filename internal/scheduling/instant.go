// Package scheduling holds the hour-granular booking arithmetic: calendar
// instants, occupied intervals, the room conflict detector and the day view.
// Everything here is pure; persistence and time zones live in the callers.
package scheduling

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a civil calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return DateOf(t), nil
}

// DateOf returns the date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// At returns the instant at hour h of this date. h may exceed 23.
func (d Date) At(h int) Instant {
	return Instant{Year: d.Year, Month: d.Month, Day: d.Day}.AddHours(h)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return d.At(0).AddHours(24 * n).Date()
}

// Instant is an immutable calendar instant with hour resolution and no zone.
type Instant struct {
	Year  int
	Month time.Month
	Day   int
	Hour  int
}

// InstantOf truncates t, seen in loc, to the hour.
func InstantOf(t time.Time, loc *time.Location) Instant {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return Instant{Year: y, Month: m, Day: d, Hour: t.Hour()}
}

// civil maps the instant onto UTC purely for arithmetic; UTC has no DST gaps.
func (i Instant) civil() time.Time {
	return time.Date(i.Year, i.Month, i.Day, i.Hour, 0, 0, 0, time.UTC)
}

// AddHours returns i shifted by n hours, normalising day, month and year.
func (i Instant) AddHours(n int) Instant {
	return InstantOf(i.civil().Add(time.Duration(n)*time.Hour), nil)
}

// Compare returns -1, 0 or +1.
func (i Instant) Compare(o Instant) int {
	a, b := i.civil(), o.civil()
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func (i Instant) Before(o Instant) bool { return i.Compare(o) < 0 }

// SameDay reports whether both instants fall on the same calendar date.
func (i Instant) SameDay(o Instant) bool {
	return i.Date() == o.Date()
}

func (i Instant) Date() Date {
	return Date{Year: i.Year, Month: i.Month, Day: i.Day}
}

// Midnight returns hour 0 of the instant's date.
func (i Instant) Midnight() Instant {
	return Instant{Year: i.Year, Month: i.Month, Day: i.Day}
}

// HoursUntil returns the signed number of hours from i to o.
func (i Instant) HoursUntil(o Instant) int {
	return int(o.civil().Sub(i.civil()) / time.Hour)
}

// In places the instant on the wall clock of loc.
func (i Instant) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(i.Year, i.Month, i.Day, i.Hour, 0, 0, 0, loc)
}

func (i Instant) String() string {
	return fmt.Sprintf("%s %s", i.Date(), FormatHour(i.Hour))
}

// FormatHour renders an hour count as HH:00, wrapping past midnight for display.
func FormatHour(h int) string {
	return fmt.Sprintf("%02d:00", ((h%24)+24)%24)
}
