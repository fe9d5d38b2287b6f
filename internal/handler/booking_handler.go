package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-admin-api/internal/dto"
	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/internal/scheduling"
	"github.com/noah-isme/facility-admin-api/internal/service"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
	"github.com/noah-isme/facility-admin-api/pkg/response"
)

type bookingService interface {
	List(ctx context.Context) ([]models.Booking, error)
	DayView(ctx context.Context, date, eventType string) ([]models.Booking, error)
	Schedule(ctx context.Context, date, eventType string) (*dto.DayScheduleResponse, error)
	Create(ctx context.Context, adminID string, req dto.BookingRequest) (*service.MutationResult, error)
	Update(ctx context.Context, adminID, id string, req dto.BookingRequest) (*service.MutationResult, error)
	Delete(ctx context.Context, adminID, id string) (*service.MutationResult, error)
}

// eventTypeOption is one entry of the type filter.
type eventTypeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// BookingHandler exposes the meeting room scheduler.
type BookingHandler struct {
	service bookingService
}

// NewBookingHandler constructs BookingHandler.
func NewBookingHandler(svc bookingService) *BookingHandler {
	return &BookingHandler{service: svc}
}

// List godoc
// @Summary List bookings
// @Description Without date every booking is returned. With date only bookings visible on that day, optionally narrowed by type.
// @Tags Bookings
// @Produce json
// @Param date query string false "Day (YYYY-MM-DD)"
// @Param type query string false "Event type or all"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	var (
		events []models.Booking
		err    error
	)
	if date := trimmedQuery(c, "date"); date != "" {
		events, err = h.service.DayView(c.Request.Context(), date, trimmedQuery(c, "type"))
	} else {
		events, err = h.service.List(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	if events == nil {
		events = []models.Booking{}
	}
	response.JSON(c, http.StatusOK, dto.BookingEvents{Events: events}, nil)
}

// Schedule godoc
// @Summary Room schedule of a day
// @Tags Bookings
// @Produce json
// @Param date query string true "Day (YYYY-MM-DD)"
// @Param type query string false "Event type or all"
// @Success 200 {object} response.Envelope
// @Router /bookings/schedule [get]
func (h *BookingHandler) Schedule(c *gin.Context) {
	date := trimmedQuery(c, "date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	schedule, err := h.service.Schedule(c.Request.Context(), date, trimmedQuery(c, "type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Types godoc
// @Summary Bookable event types
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bookings/types [get]
func (h *BookingHandler) Types(c *gin.Context) {
	options := make([]eventTypeOption, 0, len(models.EventTypes)+1)
	options = append(options, eventTypeOption{Value: scheduling.TypeAll, Label: "All"})
	for _, t := range models.EventTypes {
		options = append(options, eventTypeOption{Value: string(t), Label: t.Label()})
	}
	response.JSON(c, http.StatusOK, gin.H{"types": options}, nil)
}

// Create godoc
// @Summary Book a room
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.BookingRequest true "Booking payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req dto.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), currentAdminID(c), req)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.BookingEvents{Event: result.Booking, Events: result.Bookings}, nil)
}

// Update godoc
// @Summary Reschedule a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param booking_id query string true "Booking ID"
// @Param payload body dto.BookingRequest true "Booking payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings [put]
func (h *BookingHandler) Update(c *gin.Context) {
	id := trimmedQuery(c, "booking_id")
	if id == "" {
		response.Error(c, appErrors.ErrMissingBookingID)
		return
	}
	var req dto.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	result, err := h.service.Update(c.Request.Context(), currentAdminID(c), id, req)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.BookingEvents{Event: result.Booking, Events: result.Bookings}, nil)
}

// Delete godoc
// @Summary Cancel a booking
// @Tags Bookings
// @Produce json
// @Param booking_id query string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings [delete]
func (h *BookingHandler) Delete(c *gin.Context) {
	id := trimmedQuery(c, "booking_id")
	if id == "" {
		response.Error(c, appErrors.ErrMissingBookingID)
		return
	}
	result, err := h.service.Delete(c.Request.Context(), currentAdminID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.BookingEvents{Events: result.Bookings}, nil)
}

// writeBookingError attaches the colliding booking to conflict responses.
func writeBookingError(c *gin.Context, err error) {
	var conflict *scheduling.ConflictError
	if errors.As(err, &conflict) {
		response.ErrorWithData(c, err, dto.BookingConflictData{Conflict: conflict.Conflict.Booking})
		return
	}
	response.Error(c, err)
}
