package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/upb/student-success/backend/internal/observability"
	"github.com/upb/student-success/backend/utils"
	"go.uber.org/zap"
)

const defaultSlowRequestLimit = 50

// PerformanceSource serves window statistics to the dashboard
type PerformanceSource interface {
	Summary() observability.PerformanceSummary
	SlowSamples(limit int) []observability.MetricSample
}

// APIHealthResponse is the body of GET /api/health
type APIHealthResponse struct {
	Status      string                           `json:"status"`
	Timestamp   string                           `json:"timestamp"`
	Performance observability.PerformanceSummary `json:"performance"`
}

// SlowRequestsResponse is the body of GET /api/admin/metrics/slow.
// Data is always present, even when no request was slow.
type SlowRequestsResponse struct {
	Data []observability.MetricSample `json:"data"`
}

// slowRequestsQuery holds the parsed query of GET /api/admin/metrics/slow
type slowRequestsQuery struct {
	Limit int `validate:"gte=1,lte=1000"`
}

// MetricsHandler serves request performance statistics
type MetricsHandler struct {
	source PerformanceSource
	logger *zap.Logger
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(source PerformanceSource, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{
		source: source,
		logger: logger,
	}
}

// HandleAPIHealth handles GET /api/health
func (h *MetricsHandler) HandleAPIHealth(w http.ResponseWriter, r *http.Request) {
	response := APIHealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Performance: h.source.Summary(),
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write health response", zap.Error(err))
	}
}

// HandleSummary handles GET /api/admin/metrics
// Returns the bare PerformanceSummary object
func (h *MetricsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteJSON(w, http.StatusOK, h.source.Summary()); err != nil {
		h.logger.Error("failed to write metrics summary", zap.Error(err))
	}
}

// HandleSlowRequests handles GET /api/admin/metrics/slow?limit=N
// Returns the most recent slow samples, newest first
func (h *MetricsHandler) HandleSlowRequests(w http.ResponseWriter, r *http.Request) {
	query := slowRequestsQuery{Limit: defaultSlowRequestLimit}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "limit must be an integer", map[string]interface{}{
				"limit": raw,
			})
			return
		}
		query.Limit = limit
	}

	if err := utils.ValidateStruct(&query); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid query parameters", utils.ValidationDetails(err))
		return
	}

	samples := h.source.SlowSamples(query.Limit)
	if samples == nil {
		samples = []observability.MetricSample{}
	}

	if err := utils.WriteJSON(w, http.StatusOK, SlowRequestsResponse{Data: samples}); err != nil {
		h.logger.Error("failed to write slow requests", zap.Error(err))
	}
}
