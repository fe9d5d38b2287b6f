package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	responseStart   = "response_meta_start"
	cacheHitKey     = "cache_hit"
)

// WithResponseMeta initialises per-request response metadata.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Set(responseStart, time.Now())
		c.Next()
	}
}

// SetCacheHit records whether the response was served from the dashboard cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// ResponseMeta returns the metadata collected so far with the elapsed processing time.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	meta := ensureMeta(c)
	if started, ok := c.Get(responseStart); ok {
		if t, ok := started.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
