package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.NewValidationError("price", "must not be negative"), http.StatusBadRequest, "validation_failed"},
		{"wrapped validation", fmt.Errorf("x: %w", domain.ErrValidation), http.StatusBadRequest, "validation_failed"},
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"forbidden", fmt.Errorf("%w: admin role required", domain.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"not found", fmt.Errorf("order: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{"conflict", domain.ErrConflict, http.StatusConflict, "conflict"},
		{"illegal transition", fmt.Errorf("%w: Delivered -> Processing", domain.ErrIllegalTransition), http.StatusConflict, "illegal_transition"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest("GET", "/", nil)

			handleError(recorder, request, discardLogger(), tt.err)

			assert.Equal(t, tt.status, recorder.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestHandleError_ValidationDetails(t *testing.T) {
	recorder := httptest.NewRecorder()
	handleError(recorder, httptest.NewRequest("GET", "/", nil), discardLogger(),
		fmt.Errorf("create: %w", domain.NewValidationError("price", "must not be negative")))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "must not be negative", resp.Error)
	assert.Equal(t, "price", resp.Details)
}

func TestHandleError_InternalHidesMessage(t *testing.T) {
	recorder := httptest.NewRecorder()
	handleError(recorder, httptest.NewRequest("GET", "/", nil), discardLogger(), errors.New("pq: password authentication failed"))

	assert.NotContains(t, recorder.Body.String(), "pq:")
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/", strings.NewReader(`{"status":"Shipped","extra":1}`))

	var dst UpdateStatusRequestDTO
	err := decodeJSON(recorder, request, &dst)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
