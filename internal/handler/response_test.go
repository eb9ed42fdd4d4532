package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/clothconnect/internal/apperror"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", apperror.ValidationFailed("quantity", "Quantity must be a positive number"), http.StatusBadRequest, "Quantity must be a positive number"},
		{"unauthorized", apperror.Unauthorized("Invalid credentials"), http.StatusUnauthorized, "Invalid credentials"},
		{"forbidden", apperror.Forbidden("Not your pickup"), http.StatusForbidden, "Not your pickup"},
		{"not found", apperror.NotFound("Donation", "abc"), http.StatusNotFound, "Donation not found with id abc"},
		{"conflict", apperror.Conflict("Donation is no longer pending"), http.StatusConflict, "Donation is no longer pending"},
		{"rate limited", apperror.RateLimited("Slow down"), http.StatusTooManyRequests, "Slow down"},
		{"wrapped", fmt.Errorf("service: %w", apperror.InsufficientStock(6)), http.StatusBadRequest, "Not enough items available. Available: 6"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, http.StatusText(tt.wantStatus), body.Error)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestWriteError_InternalTextNeverLeaks(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: password authentication failed"))

	assert.NotContains(t, rec.Body.String(), "password authentication")
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Status string `json:"status"`
	}

	r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"Picked","extra":1}`))
	require.NoError(t, decodeJSON(httptest.NewRecorder(), r, &v))
	assert.Equal(t, "Picked", v.Status)

	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":`))
	err := decodeJSON(httptest.NewRecorder(), r, &v)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "Invalid request body", err.(*apperror.AppError).Message)

	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(""))
	err = decodeJSON(httptest.NewRecorder(), r, &v)
	assert.Equal(t, "Request body is required", err.(*apperror.AppError).Message)
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	var v map[string]string
	huge := `{"a":"` + strings.Repeat("x", maxBodyBytes) + `"}`

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	err := decodeJSON(httptest.NewRecorder(), r, &v)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
