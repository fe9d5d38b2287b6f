package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
)

func TestErrorWithDataKeepsPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorWithData(c, appErrors.Clone(appErrors.ErrBookingConflict, "taken"), gin.H{"id": "b1"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Data  map[string]string `json:"data"`
		Error appErrors.Error   `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "b1", body.Data["id"])
	assert.Equal(t, "BOOKING_CONFLICT", body.Error.Code)
	assert.Equal(t, "taken", body.Error.Message)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorWrapsPlainErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestNoContentFlushesStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	NoContent(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
