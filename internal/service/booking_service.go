package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-admin-api/internal/dto"
	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/internal/repository"
	"github.com/noah-isme/facility-admin-api/internal/scheduling"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
)

type bookingStore interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.BookingRecord, error)
	FindByID(ctx context.Context, id string) (*models.BookingRecord, error)
	CreateGuarded(ctx context.Context, booking *models.BookingRecord) error
	UpdateGuarded(ctx context.Context, booking *models.BookingRecord) error
	Delete(ctx context.Context, id string) error
}

type roomLookup interface {
	List(ctx context.Context) ([]models.Room, error)
	FindByName(ctx context.Context, name string) (*models.Room, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// MutationResult is the outcome of an accepted booking write: the written
// booking (nil on delete) and the freshly loaded list of all bookings.
type MutationResult struct {
	Booking  *models.Booking
	Bookings []models.Booking
}

// BookingServiceConfig tunes the booking service.
type BookingServiceConfig struct {
	Location *time.Location
}

// BookingService validates, admits and persists room bookings.
type BookingService struct {
	store     bookingStore
	rooms     roomLookup
	audit     auditRecorder
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	loc       *time.Location
}

func NewBookingService(store bookingStore, rooms roomLookup, audit auditRecorder, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg BookingServiceConfig) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &BookingService{
		store:     store,
		rooms:     rooms,
		audit:     audit,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		loc:       cfg.Location,
	}
}

// List returns every booking ordered by start.
func (s *BookingService) List(ctx context.Context) ([]models.Booking, error) {
	recs, err := s.store.List(ctx, models.BookingFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}
	return scheduling.FromRecords(recs, s.loc), nil
}

// DayView returns the bookings visible on date, narrowed by event type
// ("" or "all" keeps everything).
func (s *BookingService) DayView(ctx context.Context, date, eventType string) ([]models.Booking, error) {
	day, err := scheduling.ParseDate(date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}
	bookings, err := s.window(ctx, "", day.At(0), day.AddDays(1).At(0))
	if err != nil {
		return nil, err
	}
	return scheduling.VisibleOn(bookings, day, eventType), nil
}

// Schedule groups the day view by room, one column per configured room.
func (s *BookingService) Schedule(ctx context.Context, date, eventType string) (*dto.DayScheduleResponse, error) {
	visible, err := s.DayView(ctx, date, eventType)
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	names := make([]string, 0, len(rooms))
	for _, room := range rooms {
		names = append(names, room.Name)
	}

	resp := &dto.DayScheduleResponse{Date: date, Type: eventType}
	if resp.Type == "" {
		resp.Type = scheduling.TypeAll
	}
	day, _ := scheduling.ParseDate(date)
	for _, col := range scheduling.GroupByRoom(visible, names) {
		resp.Rooms = append(resp.Rooms, dto.RoomSchedule{Room: col.Room, Events: scheduling.EntriesOn(col.Bookings, day)})
	}
	return resp, nil
}

// Create admits and stores a new booking.
func (s *BookingService) Create(ctx context.Context, adminID string, req dto.BookingRequest) (*MutationResult, error) {
	candidate, room, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.admit(ctx, candidate, room.ID, ""); err != nil {
		return nil, err
	}

	rec := s.record(req, candidate.Slot, room)
	if adminID != "" {
		rec.AdminID = &adminID
	}
	if err := s.store.CreateGuarded(ctx, rec); err != nil {
		return nil, s.persistError(candidate, err, "failed to create booking")
	}

	s.logger.Info("booking created",
		zap.String("booking_id", rec.ID),
		zap.String("room", room.Name),
		zap.Stringer("start", candidate.Slot.Interval().Start),
		zap.Int("duration", candidate.Slot.Duration),
	)
	s.metrics.RecordBookingWrite("create")
	s.recordAudit(ctx, adminID, models.AuditActionBookingCreate, rec.ID, nil, rec)

	return s.result(ctx, rec)
}

// Update replaces every mutable field of booking id. The booking never
// conflicts with its own previous slot.
func (s *BookingService) Update(ctx context.Context, adminID, id string, req dto.BookingRequest) (*MutationResult, error) {
	if id == "" {
		return nil, appErrors.ErrMissingBookingID
	}
	previous, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	candidate, room, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.admit(ctx, candidate, room.ID, id); err != nil {
		return nil, err
	}

	rec := s.record(req, candidate.Slot, room)
	rec.ID = id
	rec.AdminID = previous.AdminID
	rec.CreatedAt = previous.CreatedAt
	if err := s.store.UpdateGuarded(ctx, rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, s.persistError(candidate, err, "failed to update booking")
	}

	s.logger.Info("booking updated", zap.String("booking_id", id), zap.String("room", room.Name))
	s.metrics.RecordBookingWrite("update")
	s.recordAudit(ctx, adminID, models.AuditActionBookingUpdate, id, previous, rec)

	return s.result(ctx, rec)
}

// Delete removes booking id without any conflict check.
func (s *BookingService) Delete(ctx context.Context, adminID, id string) (*MutationResult, error) {
	if id == "" {
		return nil, appErrors.ErrMissingBookingID
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete booking")
	}

	s.logger.Info("booking deleted", zap.String("booking_id", id))
	s.metrics.RecordBookingWrite("delete")
	s.recordAudit(ctx, adminID, models.AuditActionBookingDelete, id, nil, nil)

	bookings, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return &MutationResult{Bookings: bookings}, nil
}

func (s *BookingService) prepare(ctx context.Context, req dto.BookingRequest) (scheduling.Candidate, *models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return scheduling.Candidate{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	day, err := scheduling.ParseDate(req.Date)
	if err != nil {
		return scheduling.Candidate{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}
	slot := scheduling.Slot{Date: day, StartTime: *req.StartTime, Duration: req.Duration}
	if err := slot.Validate(); err != nil {
		return scheduling.Candidate{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	room, err := s.rooms.FindByName(ctx, req.Location)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scheduling.Candidate{}, nil, appErrors.ErrRoomNotFound
		}
		return scheduling.Candidate{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve room")
	}
	return scheduling.Candidate{Title: req.Title, Location: room.Name, Slot: slot}, room, nil
}

// admit runs the detector over the room's bookings around the candidate.
func (s *BookingService) admit(ctx context.Context, c scheduling.Candidate, roomID, excludeID string) error {
	iv := c.Slot.Interval()
	existing, err := s.window(ctx, roomID, iv.Start.Midnight(), iv.End.AddHours(23).Midnight())
	if err != nil {
		return err
	}
	if err := scheduling.Admit(c, existing, excludeID); err != nil {
		var conflict *scheduling.ConflictError
		if errors.As(err, &conflict) {
			s.logger.Info("booking conflict",
				zap.String("room", c.Location),
				zap.String("blocking_id", conflict.Conflict.Booking.ID),
				zap.String("exclude_id", excludeID),
			)
			s.metrics.RecordBookingConflict("detector")
		}
		return conflictError(err)
	}
	return nil
}

func (s *BookingService) window(ctx context.Context, roomID string, from, to scheduling.Instant) ([]models.Booking, error) {
	start, end := from.In(s.loc), to.In(s.loc)
	recs, err := s.store.List(ctx, models.BookingFilter{RoomID: roomID, From: &start, To: &end})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}
	return scheduling.FromRecords(recs, s.loc), nil
}

func (s *BookingService) record(req dto.BookingRequest, slot scheduling.Slot, room *models.Room) *models.BookingRecord {
	start, end := scheduling.Bounds(slot, s.loc)
	rec := &models.BookingRecord{
		Title:     req.Title,
		StartTime: start,
		EndTime:   end,
		EventType: string(req.Type),
		RoomID:    room.ID,
		RoomName:  room.Name,
	}
	if req.Description != "" {
		desc := req.Description
		rec.Description = &desc
	}
	return rec
}

// persistError maps a guarded write failure. An overlap caught by the
// storage guard is reported exactly like one caught by the detector.
func (s *BookingService) persistError(c scheduling.Candidate, err error, msg string) error {
	var overlap *repository.BookingOverlapError
	if errors.As(err, &overlap) {
		s.metrics.RecordBookingConflict("storage")
		if overlap.Existing == nil {
			return appErrors.Clone(appErrors.ErrBookingConflict, "Room \""+c.Location+"\" is already booked for that time")
		}
		existing := scheduling.FromRecord(*overlap.Existing, s.loc)
		return conflictError(&scheduling.ConflictError{Conflict: scheduling.Conflict{
			Message: scheduling.ConflictMessage(c.Location, existing),
			Booking: existing,
		}})
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrRoomNotFound
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
}

func (s *BookingService) result(ctx context.Context, rec *models.BookingRecord) (*MutationResult, error) {
	written := scheduling.FromRecord(*rec, s.loc)
	bookings, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return &MutationResult{Booking: &written, Bookings: bookings}, nil
}

func (s *BookingService) recordAudit(ctx context.Context, adminID, action, bookingID string, oldValue, newValue interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: "booking", ResourceID: &bookingID}
	if adminID != "" {
		entry.AdminID = &adminID
	}
	if oldValue != nil {
		entry.OldValues, _ = json.Marshal(oldValue)
	}
	if newValue != nil {
		entry.NewValues, _ = json.Marshal(newValue)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record booking audit log", zap.String("booking_id", bookingID), zap.Error(err))
	}
}

// conflictError wraps a detector rejection into the API error while keeping
// the *scheduling.ConflictError reachable through errors.As.
func conflictError(err error) error {
	var conflict *scheduling.ConflictError
	if !errors.As(err, &conflict) {
		return err
	}
	return appErrors.Wrap(conflict, appErrors.ErrBookingConflict.Code, appErrors.ErrBookingConflict.Status, conflict.Conflict.Message)
}
