package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sidang-scheduler-api/pkg/middleware/requestid"
)

const (
	responseMetaKey  = "response_meta"
	responseStartKey = "response_start"
)

// WithResponseMeta gives each request a meta map for the response envelope,
// seeded with the request id.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta["request_id"] = id
		}
		c.Set(responseStartKey, time.Now())
		c.Set(responseMetaKey, meta)
		c.Next()
	}
}

// SetCacheHit marks whether the schedule was served from the cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if meta := ExtractMeta(c); meta != nil {
		meta["cache_hit"] = hit
	}
}

// ExtractMeta returns the request's meta map with processing_time_ms set to
// the time elapsed so far, or nil outside WithResponseMeta.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	value, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	meta, _ := value.(map[string]interface{})
	if start, ok := c.Get(responseStartKey); ok && meta != nil {
		meta["processing_time_ms"] = time.Since(start.(time.Time)).Milliseconds()
	}
	return meta
}
