package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Recorder receives one sample per completed request
type Recorder interface {
	Record(endpoint, method string, durationMs int64, statusCode int, userID string)
}

// MetricsMiddleware feeds request timings into a Recorder
type MetricsMiddleware struct {
	recorder Recorder
	logger   *zap.Logger
}

// NewMetricsMiddleware creates a new MetricsMiddleware
func NewMetricsMiddleware(recorder Recorder, logger *zap.Logger) *MetricsMiddleware {
	return &MetricsMiddleware{
		recorder: recorder,
		logger:   logger,
	}
}

// Track measures each request and records it once the handler returns.
// A panicking handler is recorded as a 500 and the panic is re-raised for
// the recoverer further out. Place it after OptionalAuth so samples carry
// the caller's user ID.
func (m *MetricsMiddleware) Track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			rec := recover()

			status := ww.Status()
			if rec != nil {
				status = http.StatusInternalServerError
			} else if status == 0 {
				status = http.StatusOK
			}
			m.record(r, status, time.Since(start))

			if rec != nil {
				panic(rec)
			}
		}()

		next.ServeHTTP(ww, r)
	})
}

func (m *MetricsMiddleware) record(r *http.Request, status int, elapsed time.Duration) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("metrics recorder panicked",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.Any("panic", rec))
		}
	}()

	m.recorder.Record(
		endpointFor(r),
		r.Method,
		elapsed.Milliseconds(),
		status,
		GetUserIDFromContext(r.Context()),
	)
}

// endpointFor returns the matched chi route pattern so that /users/42 and
// /users/43 share one endpoint. Unmatched requests, including those that
// only hit a subrouter mount point, fall back to the raw path.
func endpointFor(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || len(rctx.RoutePatterns) == 0 {
		return r.URL.Path
	}
	if last := rctx.RoutePatterns[len(rctx.RoutePatterns)-1]; strings.HasSuffix(last, "/*") {
		return r.URL.Path
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}
