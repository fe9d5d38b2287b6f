package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/pkg/database"
)

const (
	bookingColumns = `b.booking_id, b.title, b.start_time, b.end_time, b.event_type, b.description, b.room_id, r.name AS room_name, b.admin_id, b.created_at, b.updated_at`
	bookingFrom    = `FROM meeting_room_booking b JOIN meeting_room r ON r.room_id = b.room_id`
)

// ErrBookingOverlap is matched by *BookingOverlapError.
var ErrBookingOverlap = errors.New("booking overlaps an existing booking")

// BookingOverlapError is returned by the guarded writes when the room is
// already taken. Existing is nil when only the exclusion constraint caught it.
type BookingOverlapError struct {
	Existing *models.BookingRecord
}

func (e *BookingOverlapError) Error() string {
	if e.Existing == nil {
		return ErrBookingOverlap.Error()
	}
	return fmt.Sprintf("%s: %s", ErrBookingOverlap.Error(), e.Existing.ID)
}

func (e *BookingOverlapError) Is(target error) bool { return target == ErrBookingOverlap }

// BookingRepository persists meeting room bookings. Writes go through a
// transaction that locks the room row and re-checks overlap, so two sessions
// cannot double-book a room between their pre-checks and their inserts.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// List returns bookings whose occupied interval intersects the filter window, ordered by start.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingRecord, error) {
	var conditions []string
	var args []interface{}

	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("b.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("b.start_time < $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("b.end_time > $%d", len(args)+1))
		args = append(args, *filter.From)
	}

	query := "SELECT " + bookingColumns + " " + bookingFrom
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY b.start_time ASC, b.booking_id ASC"

	var bookings []models.BookingRecord
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.BookingRecord, error) {
	query := "SELECT " + bookingColumns + " " + bookingFrom + " WHERE b.booking_id = $1"
	var booking models.BookingRecord
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &booking, nil
}

// CreateGuarded inserts the booking unless it overlaps another booking of the same room.
func (r *BookingRepository) CreateGuarded(ctx context.Context, booking *models.BookingRecord) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	const insert = `INSERT INTO meeting_room_booking (booking_id, title, start_time, end_time, event_type, description, room_id, admin_id, created_at, updated_at) VALUES (:booking_id, :title, :start_time, :end_time, :event_type, :description, :room_id, :admin_id, :created_at, :updated_at)`
	return r.guarded(ctx, booking, "create booking", func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, insert, booking)
		return err
	})
}

// UpdateGuarded replaces the mutable fields of a booking, excluding the booking
// itself from the overlap re-check. sql.ErrNoRows means the id is unknown.
func (r *BookingRepository) UpdateGuarded(ctx context.Context, booking *models.BookingRecord) error {
	booking.UpdatedAt = time.Now().UTC()

	const update = `UPDATE meeting_room_booking SET title = :title, start_time = :start_time, end_time = :end_time, event_type = :event_type, description = :description, room_id = :room_id, updated_at = :updated_at WHERE booking_id = :booking_id`
	return r.guarded(ctx, booking, "update booking", func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, update, booking)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// Delete removes one booking. sql.ErrNoRows means nothing matched.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM meeting_room_booking WHERE booking_id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns the number of stored bookings.
func (r *BookingRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM meeting_room_booking`); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return total, nil
}

func (r *BookingRepository) guarded(ctx context.Context, booking *models.BookingRecord, op string, write func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var roomID string
	if err = tx.GetContext(ctx, &roomID, `SELECT room_id FROM meeting_room WHERE room_id = $1 FOR UPDATE`, booking.RoomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("lock room for %s: %w", op, err)
	}

	overlapQuery := "SELECT " + bookingColumns + " " + bookingFrom +
		" WHERE b.room_id = $1 AND b.start_time < $3 AND b.end_time > $2 AND b.booking_id <> $4 ORDER BY b.start_time ASC LIMIT 1"
	var existing models.BookingRecord
	err = tx.GetContext(ctx, &existing, overlapQuery, booking.RoomID, booking.StartTime, booking.EndTime, booking.ID)
	switch {
	case err == nil:
		err = &BookingOverlapError{Existing: &existing}
		return err
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check overlap for %s: %w", op, err)
	}

	if err = write(tx); err != nil {
		if database.IsCode(err, database.CodeExclusionViolation) {
			err = &BookingOverlapError{}
			return err
		}
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		err = fmt.Errorf("%s: %w", op, err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}
