package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sidang-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/sidang-scheduler-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestJSONWithPaginationAndMeta(t *testing.T) {
	c, w := newContext()
	JSON(c, http.StatusOK, []string{"run-1"}, &models.Pagination{Offset: 0, Limit: 20, TotalCount: 1}, map[string]interface{}{"cache": "HIT"})

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["pagination"].(map[string]interface{})["total_count"])
	assert.Equal(t, "HIT", body["meta"].(map[string]interface{})["cache"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorNormalisesUnknownErrors(t *testing.T) {
	c, w := newContext()
	Error(c, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrInternal.Code)

	c, w = newContext()
	Error(c, appErrors.Clone(appErrors.ErrMalformedInput, "duplicate session id"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate session id")
}

func TestAttachment(t *testing.T) {
	c, w := newContext()
	Attachment(c, "schedule-run-1.csv", "text/csv", []byte("a,b\n"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="schedule-run-1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "a,b\n", w.Body.String())
}
