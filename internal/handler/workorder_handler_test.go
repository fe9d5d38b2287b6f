package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/internal/service"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
)

type workOrderServiceFake struct {
	filter    models.WorkOrderFilter
	order     *models.WorkOrder
	err       error
	adminID   string
	id        string
	statusReq service.WorkOrderStatusRequest
}

func (f *workOrderServiceFake) List(ctx context.Context, filter models.WorkOrderFilter) ([]models.WorkOrder, *models.Pagination, error) {
	f.filter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return []models.WorkOrder{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (f *workOrderServiceFake) Get(ctx context.Context, id string) (*models.WorkOrder, error) {
	f.id = id
	return f.order, f.err
}

func (f *workOrderServiceFake) Create(ctx context.Context, adminID string, req service.WorkOrderRequest) (*models.WorkOrder, error) {
	f.adminID = adminID
	return f.order, f.err
}

func (f *workOrderServiceFake) Update(ctx context.Context, adminID, id string, req service.WorkOrderRequest) (*models.WorkOrder, error) {
	f.adminID, f.id = adminID, id
	return f.order, f.err
}

func (f *workOrderServiceFake) UpdateStatus(ctx context.Context, adminID, id string, req service.WorkOrderStatusRequest) (*models.WorkOrder, error) {
	f.adminID, f.id, f.statusReq = adminID, id, req
	return f.order, f.err
}

func (f *workOrderServiceFake) Delete(ctx context.Context, adminID, id string) error {
	f.adminID, f.id = adminID, id
	return f.err
}

type feedFake struct {
	mu   sync.Mutex
	subs map[int]func(models.WorkOrderChange)
	next int
}

func newFeedFake() *feedFake {
	return &feedFake{subs: map[int]func(models.WorkOrderChange){}}
}

func (f *feedFake) Subscribe(fn func(models.WorkOrderChange)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *feedFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *feedFake) publish(change models.WorkOrderChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fn := range f.subs {
		fn(change)
	}
}

func TestWorkOrderHandlerListParsesFilters(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	fake := &workOrderServiceFake{}
	h := NewWorkOrderHandler(fake, nil, WorkOrderHandlerConfig{Location: jakarta})
	c, w := newGinContext(http.MethodGet, "/api/work-orders?status=Sedang%20Dikerjakan&technician_id=t-1&from=2024-05-01&to=2024-05-31&page=2&limit=5", nil)

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusDalamPengerjaan, fake.filter.Status)
	assert.Equal(t, "t-1", fake.filter.TechnicianID)
	assert.Equal(t, 2, fake.filter.Page)
	assert.Equal(t, 5, fake.filter.PageSize)
	require.NotNil(t, fake.filter.CreatedFrom)
	require.NotNil(t, fake.filter.CreatedTo)
	assert.True(t, fake.filter.CreatedFrom.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, jakarta)))
	assert.True(t, fake.filter.CreatedTo.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, jakarta)))
	assert.NotNil(t, decodeEnvelope(t, w).Pagination)
}

func TestWorkOrderHandlerListRejectsBadFilters(t *testing.T) {
	h := NewWorkOrderHandler(&workOrderServiceFake{}, nil, WorkOrderHandlerConfig{})
	for _, query := range []string{"status=lost", "from=01-05-2024", "to=tomorrow"} {
		c, w := newGinContext(http.MethodGet, "/api/work-orders?"+query, nil)
		h.List(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestWorkOrderHandlerStatuses(t *testing.T) {
	c, w := newGinContext(http.MethodGet, "/api/work-orders/statuses", nil)

	NewWorkOrderHandler(&workOrderServiceFake{}, nil, WorkOrderHandlerConfig{}).Statuses(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]string
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &body))
	require.Len(t, body, 4)
	assert.Equal(t, map[string]string{"value": "belum_mulai", "label": "Belum Mulai"}, body[0])
	assert.Equal(t, "Selesai", body[3]["label"])
}

func TestWorkOrderHandlerUpdateStatusAcceptsLegacySpelling(t *testing.T) {
	fake := &workOrderServiceFake{order: &models.WorkOrder{ID: "wo-1", Status: models.StatusSelesai, StatusLabel: "Selesai"}}
	c, w := newGinContext(http.MethodPatch, "/api/work-orders/wo-1/status", []byte(`{"status":"finish"}`))
	c.Params = gin.Params{{Key: "id", Value: "wo-1"}}
	asAdmin(c, "admin-1")

	NewWorkOrderHandler(fake, nil, WorkOrderHandlerConfig{}).UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusSelesai, fake.statusReq.Status)
	assert.Equal(t, "wo-1", fake.id)
	assert.Equal(t, "admin-1", fake.adminID)
}

func TestWorkOrderHandlerCreateAndDelete(t *testing.T) {
	fake := &workOrderServiceFake{order: &models.WorkOrder{ID: "wo-2", Title: "Fix lamp"}}
	h := NewWorkOrderHandler(fake, nil, WorkOrderHandlerConfig{})

	c, w := newGinContext(http.MethodPost, "/api/work-orders", []byte(`{"title":"Fix lamp"}`))
	asAdmin(c, "admin-1")
	h.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", fake.adminID)

	c, w = newGinContext(http.MethodDelete, "/api/work-orders/wo-2", nil)
	c.Params = gin.Params{{Key: "id", Value: "wo-2"}}
	h.Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "wo-2", fake.id)
}

func TestWorkOrderHandlerGetNotFound(t *testing.T) {
	fake := &workOrderServiceFake{err: appErrors.Clone(appErrors.ErrNotFound, "work order not found")}
	c, w := newGinContext(http.MethodGet, "/api/work-orders/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	NewWorkOrderHandler(fake, nil, WorkOrderHandlerConfig{}).Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkOrderHandlerStreamWithoutFeed(t *testing.T) {
	c, w := newGinContext(http.MethodGet, "/api/work-orders/stream", nil)

	NewWorkOrderHandler(&workOrderServiceFake{}, nil, WorkOrderHandlerConfig{}).Stream(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWorkOrderHandlerStreamDeliversChanges(t *testing.T) {
	gin.SetMode(gin.TestMode)
	feed := newFeedFake()
	h := NewWorkOrderHandler(&workOrderServiceFake{}, feed, WorkOrderHandlerConfig{Heartbeat: time.Minute})
	r := gin.New()
	r.GET("/stream", h.Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				data = strings.TrimPrefix(line, "data:")
			case line == "" && event != "":
				return event, data
			}
		}
	}

	event, _ := readEvent()
	assert.Equal(t, "ready", event)
	require.Eventually(t, func() bool { return feed.count() == 1 }, time.Second, 10*time.Millisecond)

	feed.publish(models.WorkOrderChange{Op: "update", ID: "wo-7"})
	event, data := readEvent()
	assert.Equal(t, "workorder", event)
	var change models.WorkOrderChange
	require.NoError(t, json.Unmarshal([]byte(data), &change))
	assert.Equal(t, "wo-7", change.ID)
	assert.Equal(t, "update", change.Op)

	cancel()
	require.Eventually(t, func() bool { return feed.count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
