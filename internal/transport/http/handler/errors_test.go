package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-anon-inbox/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidContent, http.StatusBadRequest},
		{domain.ErrExpiredCode, http.StatusBadRequest},
		{domain.ErrCodeMismatch, http.StatusBadRequest},
		{domain.ErrNotVerified, http.StatusUnauthorized},
		{domain.ErrBadCredentials, http.StatusUnauthorized},
		{domain.ErrInvalidSession, http.StatusUnauthorized},
		{domain.ErrUnauthorized, http.StatusForbidden},
		{domain.ErrMessagesClosed, http.StatusForbidden},
		{domain.ErrAccountNotFound, http.StatusNotFound},
		{domain.ErrRecipientNotFound, http.StatusNotFound},
		{domain.ErrMessageNotFound, http.StatusNotFound},
		{domain.ErrDuplicateHandle, http.StatusConflict},
		{domain.ErrDuplicateEmail, http.StatusConflict},
		{domain.ErrSignupConflict, http.StatusConflict},
		{domain.ErrSuggestionUnavailable, http.StatusServiceUnavailable},
		{domain.ErrExportUnavailable, http.StatusServiceUnavailable},
		{domain.ErrDeliveryFailed, http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", domain.ErrMessagesClosed), http.StatusForbidden},
		{domain.ErrCredentialCorrupt, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), "error: %v", tc.err)
	}
}

func TestWriteDomainError_CodedError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	writeDomainError(w, r, fmt.Errorf("send: %w", domain.ErrMessagesClosed))

	assert.Equal(t, http.StatusForbidden, w.Code)
	var body MessageEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "MessagesClosed", body.Code)
	assert.Equal(t, domain.ErrMessagesClosed.Msg, body.Error)
}

func TestWriteDomainError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	writeDomainError(w, r, errors.New("dynamodb: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "dynamodb")
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestWarningFrom(t *testing.T) {
	assert.Nil(t, warningFrom(nil))

	w := warningFrom(fmt.Errorf("smtp: %w", domain.ErrDeliveryFailed))
	require.NotNil(t, w)
	assert.Equal(t, "DeliveryFailed", w.Code)

	w = warningFrom(errors.New("raw"))
	require.NotNil(t, w)
	assert.Equal(t, "DeliveryFailed", w.Code)
}

func TestDecodeJSON_RejectsGarbage(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Body = http.NoBody
	var v struct{}
	assert.False(t, decodeJSON(w, r, &v))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "InvalidInput")
}
