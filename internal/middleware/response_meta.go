package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(responseMetaKey, map[string]interface{}{"started_at": start.UTC()})
		c.Next()
	}
}

// SetMeta records one metadata value for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	ensureMeta(c)[key] = value
}

// ExtractMeta returns the metadata map stored on the context, stamping the
// processing time so far.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		if k == "started_at" {
			if started, ok := v.(time.Time); ok {
				out["processing_time_ms"] = time.Since(started).Milliseconds()
			}
			continue
		}
		out[k] = v
	}
	return out
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if value, exists := c.Get(responseMetaKey); exists {
		if typed, ok := value.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
