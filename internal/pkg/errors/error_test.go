package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCode(t *testing.T) {
	tests := []struct {
		code       int
		wantStatus int
	}{
		{Success, http.StatusOK},
		{ErrInvalidParams, http.StatusBadRequest},
		{ErrSearchFailed, http.StatusBadGateway},
		{ErrSearchTimeout, http.StatusGatewayTimeout},
		{ErrCacheUnavailable, http.StatusServiceUnavailable},
		{ErrCacheDisabled, http.StatusNotFound},
		{99999, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.wantStatus, GetHTTPStatus(tt.code), "code %d", tt.code)
	}

	assert.True(t, IsClientError(ErrInvalidParams))
	assert.True(t, IsServerError(ErrSearchFailed))
	assert.True(t, IsSuccess(Success))
}

func TestWrap(t *testing.T) {
	base := errors.New("redis down")

	err := Wrap(base, ErrCacheUnavailable)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, ErrCacheUnavailable, ExtractCode(err))
	assert.Equal(t, "redis down", GetDetails(err))
	assert.True(t, Is(err, ErrCacheUnavailable))
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus())

	// 已经是 AppError 时保留原错误码
	rewrapped := Wrap(err, ErrInternalServer, "while listing history")
	assert.Equal(t, ErrCacheUnavailable, rewrapped.Code)
	assert.Equal(t, "while listing history", GetDetails(rewrapped))

	assert.Nil(t, Wrap(nil, ErrInternalServer))
	assert.Equal(t, ErrInternalServer, ExtractCode(base))
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "Invalid parameters", FormatError(ErrInvalidParams))
	assert.Equal(t, "Invalid parameters: q is required", FormatError(ErrInvalidParams, "q is required"))
	assert.Equal(t, "[1001] Invalid parameters: q is required", New(ErrInvalidParams, "q is required").Error())
}
