package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/metasearch/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, handler gin.HandlerFunc) (int, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestSuccess(t *testing.T) {
	status, resp := record(t, func(c *gin.Context) { Success(c, map[string]int{"total": 3}) })
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, apperrors.Success, resp.Code)
	assert.Empty(t, resp.Message)
	assert.Equal(t, map[string]interface{}{"total": float64(3)}, resp.Data)

	_, resp = record(t, func(c *gin.Context) { Success(c, nil) })
	assert.Equal(t, map[string]interface{}{}, resp.Data)
}

func TestHandleError(t *testing.T) {
	status, resp := record(t, func(c *gin.Context) {
		HandleError(c, apperrors.Wrap(errors.New("dial tcp: refused"), apperrors.ErrCacheUnavailable))
	})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, apperrors.ErrCacheUnavailable, resp.Code)
	assert.Equal(t, "Query cache unavailable: dial tcp: refused", resp.Message)

	status, resp = record(t, func(c *gin.Context) { HandleError(c, errors.New("boom")) })
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, apperrors.ErrInternalServer, resp.Code)
}

func TestErrorWithCode(t *testing.T) {
	status, resp := record(t, func(c *gin.Context) {
		ErrorWithCode(c, apperrors.ErrInvalidParams, "q is required")
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid parameters: q is required", resp.Message)
}
