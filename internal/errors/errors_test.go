package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Render(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/panel", nil)

	require.NoError(t, render.Render(w, r, ErrValidation("from", "must be a year")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	assert.Equal(t, float64(http.StatusBadRequest), body["status_code"])
	assert.Equal(t, map[string]any{"field": "from", "message": "must be a year"}, body["details"])
}

func TestConstructorsMatchPredefined(t *testing.T) {
	notFound := NotFoundError("run")
	assert.ErrorIs(t, notFound, ErrNotFound)
	assert.NotSame(t, ErrNotFound, notFound)
	assert.Equal(t, "Resource not found", ErrNotFound.Message, "predefined value is not mutated")

	invalid := InvalidRequestWithError(errors.New("bad json"))
	assert.ErrorIs(t, invalid, ErrInvalidRequest)
	assert.Equal(t, "bad json", invalid.Details)
	assert.Nil(t, ErrInvalidRequest.Details)

	assert.NotErrorIs(t, invalid, ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("lookup: %w", ErrRunNotFound), ErrRunNotFound)
	assert.NotErrorIs(t, ErrRunNotFound, ErrNotFound)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		status int
		code   string
	}{
		{"invalid request", InvalidRequestWithError(errors.New("bad json")), http.StatusBadRequest, "INVALID_REQUEST"},
		{"not found", NotFoundError("run"), http.StatusNotFound, "NOT_FOUND"},
		{"run execution", ErrRunExecution(errors.New("boom")), http.StatusInternalServerError, "RUN_FAILED"},
		{"filesystem", FileSystemError("export", errors.New("disk full")), http.StatusInternalServerError, "FILESYSTEM_ERROR"},
		{"panic", ErrPanic("oops"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{"multi validation", NewValidationErrors([]ValidationError{{Field: "a", Message: "b"}}), http.StatusBadRequest, "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.Equal(t, tt.code, tt.err.ErrorCode)
			assert.Equal(t, tt.err.Message, tt.err.Error())
			assert.NotNil(t, tt.err.Details)
		})
	}

	assert.Equal(t, "run not found", NotFoundError("run").Message)
}

func TestAppError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewFetchError("indicator request failed", cause).WithContext("code", "NY.GDP.PCAP.KD")

	assert.Equal(t, "[FETCH] indicator request failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NY.GDP.PCAP.KD", err.Context["code"])
	assert.True(t, IsType(err, ErrTypeFetch))
	assert.False(t, IsType(err, ErrTypeStorage))
	assert.False(t, IsType(cause, ErrTypeFetch))

	assert.Equal(t, "[NOT_FOUND] panel not found", NewNotFoundError("panel").Error())
	assert.Equal(t, ErrTypeConfig, NewConfigError("bad", nil).Type)
	assert.Equal(t, ErrTypeParsing, NewParsingError("bad", nil).Type)
	assert.Equal(t, ErrTypeStorage, NewStorageError("bad", nil).Type)
	assert.Equal(t, ErrTypeValidation, NewAppValidationError("bad").Type)
}
