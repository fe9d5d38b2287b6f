package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-admin-api/internal/dto"
	"github.com/noah-isme/facility-admin-api/internal/middleware"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
	"github.com/noah-isme/facility-admin-api/pkg/response"
)

type dashboardService interface {
	Stats(ctx context.Context) (*dto.DashboardStats, bool, error)
	Range(ctx context.Context, start, end string) (*dto.DashboardRange, bool, error)
	Monthly(ctx context.Context, year int) (*dto.DashboardMonthly, bool, error)
	Overview(ctx context.Context) (*dto.DashboardOverview, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Stats godoc
// @Summary Dashboard stat cards
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, cacheHit, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ResponseMeta(c))
}

// Range godoc
// @Summary Work order charts for a date range
// @Tags Dashboard
// @Produce json
// @Param start query string false "First day (YYYY-MM-DD)"
// @Param end query string false "Last day, inclusive (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /dashboard/range [get]
func (h *DashboardHandler) Range(c *gin.Context) {
	out, cacheHit, err := h.service.Range(c.Request.Context(), trimmedQuery(c, "start"), trimmedQuery(c, "end"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, out, nil, middleware.ResponseMeta(c))
}

// Monthly godoc
// @Summary Work orders per month
// @Tags Dashboard
// @Produce json
// @Param year query int false "Year. Defaults to the current year"
// @Success 200 {object} response.Envelope
// @Router /dashboard/monthly [get]
func (h *DashboardHandler) Monthly(c *gin.Context) {
	year := 0
	if raw := trimmedQuery(c, "year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "year must be a number"))
			return
		}
		year = parsed
	}
	out, cacheHit, err := h.service.Monthly(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, out, nil, middleware.ResponseMeta(c))
}

// Overview godoc
// @Summary Dashboard stats with filter reference lists
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	out, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, out, nil, middleware.ResponseMeta(c))
}
