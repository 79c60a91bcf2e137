package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sidang-scheduler-api/internal/models"
)

func TestAuditLogsSuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "coord-1", Role: models.RoleCoordinator})
		c.Next()
	})
	router.DELETE("/schedules/:id", Audit(zap.New(core), models.AuditActionScheduleDelete), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.DELETE("/broken/:id", Audit(zap.New(core), models.AuditActionScheduleDelete), func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/schedules/run-1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/broken/run-2", nil))

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "SCHEDULE_DELETE", fields["action"])
	assert.Equal(t, "run-1", fields["resource_id"])
	assert.Equal(t, "coord-1", fields["user_id"])
	assert.Equal(t, "COORDINATOR", fields["role"])
}
