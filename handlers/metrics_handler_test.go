package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/student-success/backend/internal/observability"
	"go.uber.org/zap"
)

func newTestSource(t *testing.T) *observability.Collector {
	t.Helper()
	c, err := observability.NewCollector(observability.DefaultOptions(), zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestHandleSummary(t *testing.T) {
	logger := zap.NewNop()

	t.Run("empty window", func(t *testing.T) {
		handler := NewMetricsHandler(newTestSource(t), logger)

		w := httptest.NewRecorder()
		handler.HandleSummary(w, httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{
			"p95ResponseTime": 0,
			"avgResponseTime": 0,
			"totalRequests": 0,
			"slowRequests": 0,
			"errorRate": 0
		}`, w.Body.String())
	})

	t.Run("populated window", func(t *testing.T) {
		source := newTestSource(t)
		source.Record("/api/essays", http.MethodPost, 2500, http.StatusOK, "student-1")
		source.Record("/api/essays", http.MethodGet, 100, http.StatusNotFound, "")
		source.Record("/api/essays", http.MethodGet, 100, http.StatusInternalServerError, "")
		source.Record("/api/essays", http.MethodGet, 300, http.StatusOK, "")
		handler := NewMetricsHandler(source, logger)

		w := httptest.NewRecorder()
		handler.HandleSummary(w, httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var summary observability.PerformanceSummary
		require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
		assert.Equal(t, observability.PerformanceSummary{
			P95ResponseTime: 2500,
			AvgResponseTime: 750,
			TotalRequests:   4,
			SlowRequests:    1,
			ErrorRate:       50,
		}, summary)
	})
}

func TestHandleAPIHealth(t *testing.T) {
	source := newTestSource(t)
	source.Record("/api/persona", http.MethodGet, 120, http.StatusOK, "")
	handler := NewMetricsHandler(source, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleAPIHealth(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var response APIHealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "healthy", response.Status)
	_, err := time.Parse(time.RFC3339, response.Timestamp)
	assert.NoError(t, err)
	assert.Equal(t, 1, response.Performance.TotalRequests)
	assert.Equal(t, int64(120), response.Performance.AvgResponseTime)
}

func TestHandleSlowRequests(t *testing.T) {
	logger := zap.NewNop()
	source := newTestSource(t)
	for i := 0; i < 60; i++ {
		source.Record("/api/scholarships/match", http.MethodPost, int64(2001+i), http.StatusOK, "")
	}
	source.Record("/api/scholarships", http.MethodGet, 15, http.StatusOK, "")
	handler := NewMetricsHandler(source, logger)

	decode := func(t *testing.T, w *httptest.ResponseRecorder) []observability.MetricSample {
		t.Helper()
		var response struct {
			Data []observability.MetricSample `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		return response.Data
	}

	t.Run("default limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleSlowRequests(w, httptest.NewRequest(http.MethodGet, "/api/admin/metrics/slow", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		samples := decode(t, w)
		require.Len(t, samples, defaultSlowRequestLimit)
		assert.Equal(t, int64(2060), samples[0].DurationMs)
	})

	t.Run("explicit limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleSlowRequests(w, httptest.NewRequest(http.MethodGet, "/api/admin/metrics/slow?limit=3", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		samples := decode(t, w)
		require.Len(t, samples, 3)
		assert.Equal(t, "/api/scholarships/match", samples[0].Endpoint)
	})

	t.Run("non-integer limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleSlowRequests(w, httptest.NewRequest(http.MethodGet, "/api/admin/metrics/slow?limit=ten", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("limit out of range", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleSlowRequests(w, httptest.NewRequest(http.MethodGet, "/api/admin/metrics/slow?limit=0", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "bad_request", response["error"])
		assert.Contains(t, response["details"], "Limit")
	})

	t.Run("empty list when nothing is slow", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewMetricsHandler(newTestSource(t), logger).HandleSlowRequests(w, httptest.NewRequest(http.MethodGet, "/api/admin/metrics/slow", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[]}`, w.Body.String())
	})
}
