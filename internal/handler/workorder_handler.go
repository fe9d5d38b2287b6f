package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/internal/service"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
	"github.com/noah-isme/facility-admin-api/pkg/response"
)

const (
	streamBuffer           = 32
	defaultStreamHeartbeat = 25 * time.Second
)

type workOrderService interface {
	List(ctx context.Context, filter models.WorkOrderFilter) ([]models.WorkOrder, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.WorkOrder, error)
	Create(ctx context.Context, adminID string, req service.WorkOrderRequest) (*models.WorkOrder, error)
	Update(ctx context.Context, adminID, id string, req service.WorkOrderRequest) (*models.WorkOrder, error)
	UpdateStatus(ctx context.Context, adminID, id string, req service.WorkOrderStatusRequest) (*models.WorkOrder, error)
	Delete(ctx context.Context, adminID, id string) error
}

// ChangeFeed delivers work order changes to stream subscribers.
type ChangeFeed interface {
	Subscribe(fn func(models.WorkOrderChange)) func()
}

// WorkOrderHandlerConfig tunes the work order endpoints.
type WorkOrderHandlerConfig struct {
	// Heartbeat is the idle interval between stream pings.
	Heartbeat time.Duration
	// Location interprets the from/to date filters.
	Location *time.Location
}

// WorkOrderHandler exposes work order CRUD and the live change stream.
type WorkOrderHandler struct {
	service   workOrderService
	feed      ChangeFeed
	heartbeat time.Duration
	loc       *time.Location
}

// NewWorkOrderHandler constructs the handler. feed may be nil when the
// listener is disabled; the stream endpoint then answers 503.
func NewWorkOrderHandler(svc workOrderService, feed ChangeFeed, cfg WorkOrderHandlerConfig) *WorkOrderHandler {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultStreamHeartbeat
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &WorkOrderHandler{service: svc, feed: feed, heartbeat: cfg.Heartbeat, loc: cfg.Location}
}

// List godoc
// @Summary List work orders
// @Tags WorkOrders
// @Produce json
// @Param search query string false "Search title or description"
// @Param status query string false "Status"
// @Param technician_id query string false "Technician"
// @Param category_id query string false "Category"
// @Param from query string false "Created from (YYYY-MM-DD)"
// @Param to query string false "Created to, inclusive (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /work-orders [get]
func (h *WorkOrderHandler) List(c *gin.Context) {
	filter := models.WorkOrderFilter{
		Search:       trimmedQuery(c, "search"),
		TechnicianID: trimmedQuery(c, "technician_id"),
		CategoryID:   trimmedQuery(c, "category_id"),
		SortBy:       c.Query("sort"),
		SortOrder:    c.Query("order"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	if raw := trimmedQuery(c, "status"); raw != "" {
		status, err := models.ParseWorkOrderStatus(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unknown status filter"))
			return
		}
		filter.Status = status
	}
	if raw := trimmedQuery(c, "from"); raw != "" {
		from, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
			return
		}
		filter.CreatedFrom = &from
	}
	if raw := trimmedQuery(c, "to"); raw != "" {
		to, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
			return
		}
		to = to.AddDate(0, 0, 1)
		filter.CreatedTo = &to
	}

	orders, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orders, pagination)
}

// Statuses godoc
// @Summary Work order statuses with display labels
// @Tags WorkOrders
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /work-orders/statuses [get]
func (h *WorkOrderHandler) Statuses(c *gin.Context) {
	out := make([]gin.H, 0, len(models.WorkOrderStatuses))
	for _, s := range models.WorkOrderStatuses {
		out = append(out, gin.H{"value": s, "label": s.Label()})
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// Get godoc
// @Summary Get work order
// @Tags WorkOrders
// @Produce json
// @Param id path string true "Work order ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /work-orders/{id} [get]
func (h *WorkOrderHandler) Get(c *gin.Context) {
	order, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// Create godoc
// @Summary Create work order
// @Tags WorkOrders
// @Accept json
// @Produce json
// @Param payload body service.WorkOrderRequest true "Work order payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /work-orders [post]
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.WorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid work order payload"))
		return
	}
	order, err := h.service.Create(c.Request.Context(), currentAdminID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, order)
}

// Update godoc
// @Summary Update work order
// @Tags WorkOrders
// @Accept json
// @Produce json
// @Param id path string true "Work order ID"
// @Param payload body service.WorkOrderRequest true "Work order payload"
// @Success 200 {object} response.Envelope
// @Router /work-orders/{id} [put]
func (h *WorkOrderHandler) Update(c *gin.Context) {
	var req service.WorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid work order payload"))
		return
	}
	order, err := h.service.Update(c.Request.Context(), currentAdminID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// UpdateStatus godoc
// @Summary Change work order status
// @Tags WorkOrders
// @Accept json
// @Produce json
// @Param id path string true "Work order ID"
// @Param payload body service.WorkOrderStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /work-orders/{id}/status [patch]
func (h *WorkOrderHandler) UpdateStatus(c *gin.Context) {
	var req service.WorkOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	order, err := h.service.UpdateStatus(c.Request.Context(), currentAdminID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// Delete godoc
// @Summary Delete work order
// @Tags WorkOrders
// @Param id path string true "Work order ID"
// @Success 204
// @Router /work-orders/{id} [delete]
func (h *WorkOrderHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), currentAdminID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stream godoc
// @Summary Live work order changes
// @Description Server-sent events. Each "workorder" event carries {op, id}. An op of "resync" means changes may have been missed and the list should be reloaded.
// @Tags WorkOrders
// @Produce text/event-stream
// @Param access_token query string false "Access token for clients that cannot send headers"
// @Success 200
// @Router /work-orders/stream [get]
func (h *WorkOrderHandler) Stream(c *gin.Context) {
	if h.feed == nil {
		response.Error(c, appErrors.New("FEED_UNAVAILABLE", http.StatusServiceUnavailable, "change feed is not running"))
		return
	}

	changes := make(chan models.WorkOrderChange, streamBuffer)
	unsubscribe := h.feed.Subscribe(func(change models.WorkOrderChange) {
		select {
		case changes <- change:
		default:
			// slow reader; it can resync from the list endpoint
		}
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"heartbeat_seconds": int(h.heartbeat.Seconds())})
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case change := <-changes:
			c.SSEvent("workorder", change)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().UTC().Unix()})
			return true
		}
	})
}
