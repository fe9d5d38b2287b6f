package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/facility-admin-api/internal/dto"
	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/internal/repository"
	"github.com/noah-isme/facility-admin-api/internal/scheduling"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
)

// fakeBookingStore mimics the guarded repository, including its SQL overlap
// re-check, so the storage path can be exercised without the detector.
type fakeBookingStore struct {
	rows       map[string]models.BookingRecord
	seq        int
	skipGuard  bool
	listErr    error
	lastFilter models.BookingFilter
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{rows: map[string]models.BookingRecord{}}
}

func (f *fakeBookingStore) List(_ context.Context, filter models.BookingFilter) ([]models.BookingRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.lastFilter = filter
	var out []models.BookingRecord
	for _, rec := range f.rows {
		if filter.RoomID != "" && rec.RoomID != filter.RoomID {
			continue
		}
		if filter.To != nil && !rec.StartTime.Before(*filter.To) {
			continue
		}
		if filter.From != nil && !rec.EndTime.After(*filter.From) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (f *fakeBookingStore) FindByID(_ context.Context, id string) (*models.BookingRecord, error) {
	rec, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &rec, nil
}

func (f *fakeBookingStore) overlapping(b *models.BookingRecord) *models.BookingRecord {
	if f.skipGuard {
		return nil
	}
	for _, rec := range f.rows {
		if rec.ID != b.ID && rec.RoomID == b.RoomID && rec.StartTime.Before(b.EndTime) && rec.EndTime.After(b.StartTime) {
			found := rec
			return &found
		}
	}
	return nil
}

func (f *fakeBookingStore) CreateGuarded(_ context.Context, b *models.BookingRecord) error {
	if existing := f.overlapping(b); existing != nil {
		return &repository.BookingOverlapError{Existing: existing}
	}
	f.seq++
	b.ID = fmt.Sprintf("b%d", f.seq)
	f.rows[b.ID] = *b
	return nil
}

func (f *fakeBookingStore) UpdateGuarded(_ context.Context, b *models.BookingRecord) error {
	if _, ok := f.rows[b.ID]; !ok {
		return sql.ErrNoRows
	}
	if existing := f.overlapping(b); existing != nil {
		return &repository.BookingOverlapError{Existing: existing}
	}
	f.rows[b.ID] = *b
	return nil
}

func (f *fakeBookingStore) Delete(_ context.Context, id string) error {
	if _, ok := f.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.rows, id)
	return nil
}

type fakeRooms struct {
	rooms []models.Room
}

func (f *fakeRooms) List(context.Context) ([]models.Room, error) { return f.rooms, nil }

func (f *fakeRooms) FindByName(_ context.Context, name string) (*models.Room, error) {
	for _, r := range f.rooms {
		if r.Name == name {
			room := r
			return &room, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeAudit struct {
	entries []models.AuditLog
}

func (f *fakeAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.entries = append(f.entries, *log)
	return nil
}

func newBookingFixture() (*BookingService, *fakeBookingStore, *fakeAudit) {
	store := newFakeBookingStore()
	rooms := &fakeRooms{rooms: []models.Room{
		{ID: "r-aud", Name: "Auditorium"},
		{ID: "r-success", Name: "Success Meeting Room"},
	}}
	audit := &fakeAudit{}
	svc := NewBookingService(store, rooms, audit, nil, NewMetricsService(), nil, BookingServiceConfig{Location: time.UTC})
	return svc, store, audit
}

func bookingReq(title, date string, start, duration int, location string) dto.BookingRequest {
	return dto.BookingRequest{
		Title:     title,
		Date:      date,
		StartTime: &start,
		Duration:  duration,
		Type:      models.EventMeeting,
		Location:  location,
	}
}

func requireAppCode(t *testing.T, err error, code string) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *appErrors.Error, got %T", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestBookingServiceCreateAdmitsAndReturnsList(t *testing.T) {
	svc, store, audit := newBookingFixture()
	ctx := context.Background()

	res, err := svc.Create(ctx, "admin-1", bookingReq("Standup", "2024-05-01", 9, 2, "Auditorium"))
	require.NoError(t, err)
	require.NotNil(t, res.Booking)
	assert.Equal(t, "Standup", res.Booking.Title)
	assert.Equal(t, "2024-05-01", res.Booking.Date)
	assert.Equal(t, 9, res.Booking.StartTime)
	assert.Equal(t, 2, res.Booking.Duration)
	assert.Equal(t, "Auditorium", res.Booking.Location)
	require.Len(t, res.Bookings, 1)
	assert.Len(t, store.rows, 1)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionBookingCreate, audit.entries[0].Action)

	stored := store.rows[res.Booking.ID]
	assert.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), stored.EndTime)
	assert.Equal(t, "admin-1", *stored.AdminID)
}

func TestBookingServiceCreateRejectsOverlap(t *testing.T) {
	svc, store, _ := newBookingFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, "", bookingReq("Board", "2024-05-01", 10, 2, "Auditorium"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, "", bookingReq("Sync", "2024-05-01", 11, 1, "Auditorium"))
	appErr := requireAppCode(t, err, appErrors.ErrBookingConflict.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, `Room "Auditorium" is already booked for "Board" from 10:00 to 12:00`, appErr.Message)

	var conflict *scheduling.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "Board", conflict.Conflict.Booking.Title)
	assert.Len(t, store.rows, 1)
}

func TestBookingServiceCreateAdjacentAndOtherRoom(t *testing.T) {
	svc, store, _ := newBookingFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, "", bookingReq("Board", "2024-05-01", 10, 2, "Auditorium"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "", bookingReq("After", "2024-05-01", 12, 1, "Auditorium"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "", bookingReq("Parallel", "2024-05-01", 10, 2, "Success Meeting Room"))
	require.NoError(t, err)
	assert.Len(t, store.rows, 3)
}

func TestBookingServiceCreateCatchesOvernightOverlap(t *testing.T) {
	svc, _, _ := newBookingFixture()
	ctx := context.Background()

	res, err := svc.Create(ctx, "", bookingReq("Night shift", "2024-05-01", 22, 4, "Auditorium"))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Booking.Duration)

	_, err = svc.Create(ctx, "", bookingReq("Early", "2024-05-02", 1, 1, "Auditorium"))
	appErr := requireAppCode(t, err, appErrors.ErrBookingConflict.Code)
	assert.Contains(t, appErr.Message, "from 22:00 to 02:00")
}

func TestBookingServiceStorageGuardReportsConflict(t *testing.T) {
	store := newFakeBookingStore()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	racing := &racingStore{
		fakeBookingStore: store,
		late:             models.BookingRecord{ID: "x1", Title: "Racing write", StartTime: start, EndTime: start.Add(3 * time.Hour), EventType: "task", RoomID: "r-aud", RoomName: "Auditorium"},
	}
	rooms := &fakeRooms{rooms: []models.Room{{ID: "r-aud", Name: "Auditorium"}}}
	metrics := NewMetricsService()
	svc := NewBookingService(racing, rooms, nil, nil, metrics, nil, BookingServiceConfig{Location: time.UTC})

	_, err := svc.Create(context.Background(), "", bookingReq("Mine", "2024-05-01", 10, 1, "Auditorium"))
	appErr := requireAppCode(t, err, appErrors.ErrBookingConflict.Code)
	assert.Equal(t, `Room "Auditorium" is already booked for "Racing write" from 09:00 to 12:00`, appErr.Message)
	assert.EqualValues(t, 1, metrics.Snapshot().BookingConflicts)
	assert.Len(t, store.rows, 1)
}

// racingStore makes a row appear between the detector's read and the write.
type racingStore struct {
	*fakeBookingStore
	late models.BookingRecord
}

func (r *racingStore) CreateGuarded(ctx context.Context, b *models.BookingRecord) error {
	r.rows[r.late.ID] = r.late
	return r.fakeBookingStore.CreateGuarded(ctx, b)
}

func TestBookingServiceValidation(t *testing.T) {
	svc, store, _ := newBookingFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		req  dto.BookingRequest
		code string
	}{
		{"start too late", bookingReq("X", "2024-05-01", 24, 1, "Auditorium"), appErrors.ErrValidation.Code},
		{"negative start", bookingReq("X", "2024-05-01", -1, 1, "Auditorium"), appErrors.ErrValidation.Code},
		{"zero duration", bookingReq("X", "2024-05-01", 9, 0, "Auditorium"), appErrors.ErrValidation.Code},
		{"bad date", bookingReq("X", "01/05/2024", 9, 1, "Auditorium"), appErrors.ErrValidation.Code},
		{"missing title", bookingReq("", "2024-05-01", 9, 1, "Auditorium"), appErrors.ErrValidation.Code},
		{"unknown room", bookingReq("X", "2024-05-01", 9, 1, "Ghost Room"), appErrors.ErrRoomNotFound.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "", tc.req)
			requireAppCode(t, err, tc.code)
		})
	}

	missingStart := bookingReq("X", "2024-05-01", 9, 1, "Auditorium")
	missingStart.StartTime = nil
	_, err := svc.Create(ctx, "", missingStart)
	requireAppCode(t, err, appErrors.ErrValidation.Code)
	assert.Empty(t, store.rows)
}

func TestBookingServiceUpdateExcludesItself(t *testing.T) {
	svc, store, _ := newBookingFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, "admin-1", bookingReq("Board", "2024-05-01", 10, 2, "Auditorium"))
	require.NoError(t, err)
	id := created.Booking.ID

	res, err := svc.Update(ctx, "admin-2", id, bookingReq("Board (moved)", "2024-05-01", 11, 2, "Auditorium"))
	require.NoError(t, err)
	assert.Equal(t, id, res.Booking.ID)
	assert.Equal(t, 11, res.Booking.StartTime)
	assert.Equal(t, "Board (moved)", store.rows[id].Title)
	assert.Equal(t, "admin-1", *store.rows[id].AdminID)
	assert.Len(t, store.rows, 1)
}

func TestBookingServiceUpdateConflictsWithOthers(t *testing.T) {
	svc, store, _ := newBookingFixture()
	ctx := context.Background()

	first, err := svc.Create(ctx, "", bookingReq("A", "2024-05-01", 8, 1, "Auditorium"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "", bookingReq("B", "2024-05-01", 10, 1, "Auditorium"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, "", first.Booking.ID, bookingReq("A", "2024-05-01", 9, 2, "Auditorium"))
	requireAppCode(t, err, appErrors.ErrBookingConflict.Code)
	assert.Equal(t, 8, scheduling.InstantOf(store.rows[first.Booking.ID].StartTime, time.UTC).Hour)
}

func TestBookingServiceUpdateAndDeleteUnknown(t *testing.T) {
	svc, _, _ := newBookingFixture()
	ctx := context.Background()

	_, err := svc.Update(ctx, "", "nope", bookingReq("A", "2024-05-01", 8, 1, "Auditorium"))
	requireAppCode(t, err, appErrors.ErrNotFound.Code)

	_, err = svc.Delete(ctx, "", "nope")
	requireAppCode(t, err, appErrors.ErrNotFound.Code)

	_, err = svc.Delete(ctx, "", "")
	requireAppCode(t, err, appErrors.ErrMissingBookingID.Code)
}

func TestBookingServiceDeleteLeavesOthers(t *testing.T) {
	svc, store, _ := newBookingFixture()
	ctx := context.Background()

	a, err := svc.Create(ctx, "", bookingReq("A", "2024-05-01", 8, 1, "Auditorium"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "", bookingReq("B", "2024-05-01", 9, 1, "Auditorium"))
	require.NoError(t, err)

	res, err := svc.Delete(ctx, "", a.Booking.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Booking)
	require.Len(t, res.Bookings, 1)
	assert.Equal(t, "B", res.Bookings[0].Title)
	assert.Len(t, store.rows, 1)
}

func TestBookingServiceDayViewIncludesSpillover(t *testing.T) {
	svc, store, _ := newBookingFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, "", bookingReq("Overnight", "2024-05-01", 22, 4, "Auditorium"))
	require.NoError(t, err)
	task := bookingReq("Cleanup", "2024-05-02", 9, 1, "Success Meeting Room")
	task.Type = models.EventTask
	_, err = svc.Create(ctx, "", task)
	require.NoError(t, err)

	all, err := svc.DayView(ctx, "2024-05-02", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Overnight", all[0].Title)
	require.NotNil(t, store.lastFilter.From)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), *store.lastFilter.From)

	tasks, err := svc.DayView(ctx, "2024-05-02", "Task")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Cleanup", tasks[0].Title)

	_, err = svc.DayView(ctx, "tomorrow", "")
	requireAppCode(t, err, appErrors.ErrValidation.Code)
}

func TestBookingServiceScheduleGroupsByRoom(t *testing.T) {
	svc, _, _ := newBookingFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, "", bookingReq("Town hall", "2024-05-02", 13, 2, "Auditorium"))
	require.NoError(t, err)

	sched, err := svc.Schedule(ctx, "2024-05-02", "")
	require.NoError(t, err)
	assert.Equal(t, "all", sched.Type)
	require.Len(t, sched.Rooms, 2)
	assert.Equal(t, "Auditorium", sched.Rooms[0].Room)
	require.Len(t, sched.Rooms[0].Events, 1)
	assert.Equal(t, "13:00", sched.Rooms[0].Events[0].StartLabel)
	assert.Equal(t, "15:00", sched.Rooms[0].Events[0].EndLabel)
	assert.Empty(t, sched.Rooms[1].Events)
}

func TestBookingServiceScheduleMarksOvernightBookings(t *testing.T) {
	svc, _, _ := newBookingFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, "", bookingReq("Overnight", "2024-05-01", 22, 4, "Auditorium"))
	require.NoError(t, err)

	first, err := svc.Schedule(ctx, "2024-05-01", "")
	require.NoError(t, err)
	require.Len(t, first.Rooms[0].Events, 1)
	assert.Equal(t, "02:00 (Next day)", first.Rooms[0].Events[0].EndLabel)
	assert.False(t, first.Rooms[0].Events[0].CarriedOver)

	next, err := svc.Schedule(ctx, "2024-05-02", "")
	require.NoError(t, err)
	require.Len(t, next.Rooms[0].Events, 1)
	assert.True(t, next.Rooms[0].Events[0].CarriedOver)
}
