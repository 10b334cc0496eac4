package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceExposesWorkflowCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordDecision("Approved", "applied")
	m.RecordDecision("Approved", "conflict")
	m.ObserveReportBuild("pdf", 2, time.Second)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.Decisions)
	assert.EqualValues(t, 2, snap.SkippedFiles)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `workflow_decisions_total{decision="Approved",outcome="conflict"} 1`))
	assert.True(t, strings.Contains(body, "report_files_skipped_total 2"))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordDecision("Approved", "applied")
	m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
