package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newRouter(seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		*seen = Value(c)
		c.Status(http.StatusOK)
	})
	return r
}

func TestMiddlewareReusesClientID(t *testing.T) {
	var seen string
	r := newRouter(&seen)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestMiddlewareReplacesOversizedID(t *testing.T) {
	var seen string
	r := newRouter(&seen)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 500))
	r.ServeHTTP(httptest.NewRecorder(), req)

	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
}
