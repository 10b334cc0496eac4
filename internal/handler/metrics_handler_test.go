package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/accrediflow-api/internal/service"
)

type pingerStub struct {
	err   error
	calls int
}

func (p *pingerStub) PingContext(ctx context.Context) error {
	p.calls++
	return p.err
}

func TestMetricsHandlerHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMetricsHandler(nil, nil)

	c, w := newGinContext(http.MethodGet, "/health", nil)
	handler.Health(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := &pingerStub{}
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, db).Ready(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
	assert.Equal(t, 1, db.calls)

	down := &pingerStub{err: errors.New("connection refused")}
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, down).Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.RecordDecision("Approved", "applied")

	c, w := newGinContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(metrics, nil).Prometheus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "workflow_decisions_total")

	c, w = newGinContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(nil, nil).Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, c.Writer.Status())
}
