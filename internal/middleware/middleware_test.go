package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/facility-admin-api/internal/models"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
)

type stubValidator struct {
	claims map[string]*models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if c, ok := s.claims[token]; ok {
		return c, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func newProtectedRouter(roles ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator := stubValidator{claims: map[string]*models.JWTClaims{
		"admin-token": {AdminID: "admin-1", Role: models.RoleAdmin},
		"tech-token":  {AdminID: "tech-1", Role: models.RoleTechnician},
	}}
	r := gin.New()
	r.GET("/secure", JWT(validator), RBAC(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).AdminID)
	})
	return r
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTAndRBAC(t *testing.T) {
	r := newProtectedRouter(models.RoleAdmin)
	cases := []struct {
		name   string
		target string
		header string
		status int
		code   string
	}{
		{"missing token", "/secure", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"malformed header", "/secure", "Token abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown token", "/secure", "Bearer nope", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"technician", "/secure", "Bearer tech-token", http.StatusForbidden, "FORBIDDEN"},
		{"admin", "/secure", "Bearer admin-token", http.StatusOK, ""},
		{"query token", "/secure?access_token=admin-token", "", http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, errorCode(t, w))
			} else {
				assert.Equal(t, "admin-1", w.Body.String())
			}
		})
	}
}

func TestAdminOnlyRejectsMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", AdminOnly(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuditRecordsSuccessfulRequestsOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &recordingAudit{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextClaimsKey, &models.JWTClaims{AdminID: "admin-1", Role: models.RoleAdmin})
		c.Next()
	})
	r.GET("/ok", Audit(rec, nil, "REPORT_EXPORT", "report"), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", Audit(rec, nil, "REPORT_EXPORT", "report"), func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok?format=csv", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))

	require.Len(t, rec.logs, 1)
	assert.Equal(t, "REPORT_EXPORT", rec.logs[0].Action)
	require.NotNil(t, rec.logs[0].AdminID)
	assert.Equal(t, "admin-1", *rec.logs[0].AdminID)
	assert.Contains(t, string(rec.logs[0].NewValues), "format=csv")
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/meta", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ResponseMeta(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/meta", nil))
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}
