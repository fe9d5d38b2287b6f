package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-admin-api/internal/middleware"
)

// currentAdminID returns the authenticated admin, or "" on unauthenticated routes.
func currentAdminID(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil {
		return claims.AdminID
	}
	return ""
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}

func trimmedQuery(c *gin.Context, key string) string {
	return strings.TrimSpace(c.Query(key))
}
