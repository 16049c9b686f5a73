package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/upb/student-success/backend/models"
	"github.com/upb/student-success/backend/services"
	"github.com/upb/student-success/backend/utils"
	"go.uber.org/zap"
)

const (
	defaultHistoryWindow = time.Hour
	defaultHistoryLimit  = 60
)

// HistorySource lists persisted performance snapshots
type HistorySource interface {
	History(ctx context.Context, window time.Duration, limit int) ([]*models.PerformanceSnapshot, error)
}

type historyQuery struct {
	Window time.Duration `validate:"gt=0"`
	Limit  int           `validate:"gte=1,lte=1440"`
}

// HistoryHandler serves persisted window snapshots
type HistoryHandler struct {
	source HistorySource
	logger *zap.Logger
}

// NewHistoryHandler creates a new HistoryHandler. source is nil when no
// database is configured.
func NewHistoryHandler(source HistorySource, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		source: source,
		logger: logger,
	}
}

// HandleHistory handles GET /api/admin/metrics/history?window=1h&limit=60
func (h *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		HandleServiceError(w, services.ErrHistoryUnavailable, h.logger)
		return
	}

	query := historyQuery{Window: defaultHistoryWindow, Limit: defaultHistoryLimit}
	params := r.URL.Query()

	if raw := params.Get("window"); raw != "" {
		window, err := time.ParseDuration(raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "window must be a duration such as 30m or 6h", map[string]interface{}{
				"window": raw,
			})
			return
		}
		query.Window = window
	}
	if raw := params.Get("limit"); raw != "" {
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

	snapshots, err := h.source.History(r.Context(), query.Window, query.Limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": snapshots}); err != nil {
		h.logger.Error("failed to write performance history", zap.Error(err))
	}
}
