package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/student-success/backend/services"
	"github.com/upb/student-success/backend/utils"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "validation error",
			err:            services.NewDomainError(services.ErrorTypeValidation, "invalid history range", nil).WithDetail("window", "720h"),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
		},
		{
			name:           "conflict error",
			err:            services.ErrSnapshotsAlreadyStarted,
			expectedStatus: http.StatusConflict,
			expectedError:  "conflict",
		},
		{
			name:           "unavailable error",
			err:            services.ErrHistoryUnavailable,
			expectedStatus: http.StatusServiceUnavailable,
			expectedError:  "service_unavailable",
		},
		{
			name:           "internal error",
			err:            services.WrapInternal("failed to load performance history", errors.New("timeout")),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "internal_error",
		},
		{
			name:           "plain error",
			err:            errors.New("something broke"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
		})
	}

	t.Run("internal details are hidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleServiceError(w, services.WrapInternal("query failed", errors.New("password authentication failed")), logger)

		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleServiceError(w, nil, logger)

		assert.Equal(t, 0, w.Body.Len())
	})
}
