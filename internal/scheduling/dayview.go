package scheduling

import (
	"strings"

	"github.com/noah-isme/facility-admin-api/internal/models"
)

// TypeAll is the pseudo type that disables type filtering.
const TypeAll = "all"

// VisibleOn returns, in input order, the bookings shown on date: those that
// start on it and those spilling into it from an earlier day.
func VisibleOn(bookings []models.Booking, date Date, typeFilter string) []models.Booking {
	out := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if !MatchesType(b, typeFilter) {
			continue
		}
		if IsVisibleOn(b, date) {
			out = append(out, b)
		}
	}
	return out
}

// IsVisibleOn reports whether b starts on date or covers date's midnight.
func IsVisibleOn(b models.Booking, date Date) bool {
	slot, err := SlotOf(b)
	if err != nil {
		return false
	}
	if slot.Date == date {
		return true
	}
	return slot.Interval().Contains(date.At(0))
}

// MatchesType applies the case-insensitive type filter; "" and "all" match everything.
func MatchesType(b models.Booking, typeFilter string) bool {
	f := strings.TrimSpace(typeFilter)
	if f == "" || strings.EqualFold(f, TypeAll) {
		return true
	}
	return strings.EqualFold(string(b.Type), f)
}

// RoomColumn is one room's bookings in the schedule grid.
type RoomColumn struct {
	Room     string           `json:"room"`
	Bookings []models.Booking `json:"bookings"`
}

// GroupByRoom buckets bookings by location following the order of rooms.
// Bookings for rooms not listed are appended in first-seen order.
func GroupByRoom(bookings []models.Booking, rooms []string) []RoomColumn {
	index := make(map[string]int, len(rooms))
	columns := make([]RoomColumn, 0, len(rooms))
	for _, room := range rooms {
		if _, ok := index[room]; ok {
			continue
		}
		index[room] = len(columns)
		columns = append(columns, RoomColumn{Room: room, Bookings: []models.Booking{}})
	}
	for _, b := range bookings {
		i, ok := index[b.Location]
		if !ok {
			i = len(columns)
			index[b.Location] = i
			columns = append(columns, RoomColumn{Room: b.Location, Bookings: []models.Booking{}})
		}
		columns[i].Bookings = append(columns[i].Bookings, b)
	}
	return columns
}

// Entry is a booking as drawn in the schedule table of one date.
type Entry struct {
	models.Booking
	StartLabel string `json:"startLabel"`
	EndLabel   string `json:"endLabel"`
	// CarriedOver marks a booking that started on an earlier date.
	CarriedOver bool `json:"carriedOver"`
}

// EntryOn labels b for the table of date.
func EntryOn(b models.Booking, date Date) Entry {
	e := Entry{
		Booking:    b,
		StartLabel: FormatHour(b.StartTime),
		EndLabel:   FormatHour(b.StartTime + b.Duration),
	}
	slot, err := SlotOf(b)
	if err != nil {
		return e
	}
	e.EndLabel = slot.EndLabel()
	e.CarriedOver = !slot.Interval().Start.SameDay(date.At(0))
	return e
}

// EntriesOn labels every booking for the table of date.
func EntriesOn(bookings []models.Booking, date Date) []Entry {
	out := make([]Entry, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, EntryOn(b, date))
	}
	return out
}
