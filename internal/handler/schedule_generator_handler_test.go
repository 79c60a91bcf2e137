package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sidang-scheduler-api/internal/dto"
	internalmiddleware "github.com/noah-isme/sidang-scheduler-api/internal/middleware"
	"github.com/noah-isme/sidang-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/sidang-scheduler-api/pkg/errors"
)

type scheduleGeneratorMock struct {
	captured      dto.GenerateScheduleRequest
	uploadDelim   rune
	uploadBodies  [2]string
	uploadStrat   string
	capturedQuery dto.ScheduleRunQuery
	cached        bool
	err           error
}

func (m *scheduleGeneratorMock) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	m.captured = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.GenerateScheduleResponse{ID: "run-1", Strategy: "capacity"}, nil
}

func (m *scheduleGeneratorMock) Upload(ctx context.Context, sessions, expertise io.Reader, delim rune, strategy string) (*dto.GenerateScheduleResponse, error) {
	s, _ := io.ReadAll(sessions)
	e, _ := io.ReadAll(expertise)
	m.uploadBodies = [2]string{string(s), string(e)}
	m.uploadDelim = delim
	m.uploadStrat = strategy
	return &dto.GenerateScheduleResponse{ID: "run-2", Strategy: strategy}, nil
}

func (m *scheduleGeneratorMock) Get(ctx context.Context, id string) (*dto.GenerateScheduleResponse, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	return &dto.GenerateScheduleResponse{ID: id}, m.cached, nil
}

func (m *scheduleGeneratorMock) List(ctx context.Context, query dto.ScheduleRunQuery) ([]dto.ScheduleRunSummary, *models.Pagination, error) {
	m.capturedQuery = query
	return []dto.ScheduleRunSummary{{ID: "run-1"}}, &models.Pagination{Offset: query.Offset, Limit: query.Limit, TotalCount: 1}, nil
}

func (m *scheduleGeneratorMock) Delete(ctx context.Context, id string) error {
	return m.err
}

func (m *scheduleGeneratorMock) Export(ctx context.Context, id, format string) (*dto.ScheduleExport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ScheduleExport{Filename: "schedule-" + id + "." + format, ContentType: "text/csv", Body: []byte("session_id\nS1\n")}, nil
}

func newScheduleRouter(mockSvc *scheduleGeneratorMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleGeneratorHandler{service: mockSvc, maxUploadBytes: defaultMaxUploadBytes}
	router := gin.New()
	router.Use(internalmiddleware.WithResponseMeta())
	router.POST("/schedules/generate", handler.Generate)
	router.POST("/schedules/upload", handler.Upload)
	router.GET("/schedules", handler.List)
	router.GET("/schedules/:id", handler.Get)
	router.GET("/schedules/:id/export", handler.Export)
	router.DELETE("/schedules/:id", handler.Delete)
	return router
}

func TestScheduleGeneratorGenerateSuccess(t *testing.T) {
	mockSvc := &scheduleGeneratorMock{}
	handler := &ScheduleGeneratorHandler{service: mockSvc}
	req, _ := http.NewRequest(http.MethodPost, "/schedules/generate", bytes.NewReader(validGeneratorPayload()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "rollout", mockSvc.captured.Strategy)
	require.Len(t, mockSvc.captured.Sessions, 1)
	require.Equal(t, []string{"NLP"}, mockSvc.captured.Lecturers[0].Expertise)
}

func TestScheduleGeneratorGenerateBadJSON(t *testing.T) {
	router := newScheduleRouter(&scheduleGeneratorMock{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/schedules/generate", bytes.NewReader([]byte(`{"sessions":`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleGeneratorGenerateServiceError(t *testing.T) {
	router := newScheduleRouter(&scheduleGeneratorMock{err: appErrors.Clone(appErrors.ErrMalformedInput, "duplicate session id")})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/schedules/generate", bytes.NewReader(validGeneratorPayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "MALFORMED_INPUT", body["error"]["code"])
}

func TestScheduleGeneratorUpload(t *testing.T) {
	mockSvc := &scheduleGeneratorMock{}
	router := newScheduleRouter(mockSvc)

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("sessions", "sessions.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("id;date\n"))
	part, err = writer.CreateFormFile("expertise", "expertise.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("id;expertise\n"))
	require.NoError(t, writer.WriteField("strategy", "scored"))
	require.NoError(t, writer.WriteField("delimiter", ";"))
	require.NoError(t, writer.Close())

	req, _ := http.NewRequest(http.MethodPost, "/schedules/upload", buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, ';', mockSvc.uploadDelim)
	assert.Equal(t, "scored", mockSvc.uploadStrat)
	assert.Equal(t, "id;date\n", mockSvc.uploadBodies[0])
}

func TestScheduleGeneratorUploadMissingFile(t *testing.T) {
	router := newScheduleRouter(&scheduleGeneratorMock{})

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	require.NoError(t, writer.WriteField("strategy", "capacity"))
	require.NoError(t, writer.Close())

	req, _ := http.NewRequest(http.MethodPost, "/schedules/upload", buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleGeneratorListAndGet(t *testing.T) {
	mockSvc := &scheduleGeneratorMock{cached: true}
	router := newScheduleRouter(mockSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/schedules?offset=10&limit=5&strategy=rollout", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ScheduleRunQuery{Strategy: "rollout", Offset: 10, Limit: 5}, mockSvc.capturedQuery)
	assert.Contains(t, w.Body.String(), `"total_count":1`)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/schedules?limit=abc", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/schedules/run-9", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cache_hit":true`)
	assert.Contains(t, w.Body.String(), `"id":"run-9"`)
}

func TestScheduleGeneratorExportAndDelete(t *testing.T) {
	router := newScheduleRouter(&scheduleGeneratorMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/schedules/run-1/export", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "schedule-run-1.csv")

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodDelete, "/schedules/run-1", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	missing := newScheduleRouter(&scheduleGeneratorMock{err: appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")})
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodDelete, "/schedules/run-1", nil)
	missing.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleGeneratorForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleGeneratorHandler{service: &scheduleGeneratorMock{}}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "lecturer-1", Role: models.RoleLecturer})
		c.Next()
	})
	router.POST("/schedules/generate", internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator), handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/schedules/generate", bytes.NewReader(validGeneratorPayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func validGeneratorPayload() []byte {
	return []byte(`{"strategy":"rollout","sessions":[{"id":"S1","date":"2024-06-03","time":"09:00","room":"R1","studentId":"2201","title":"T","field":"NLP"}],"lecturers":[{"id":"L1","expertise":["NLP"]}]}`)
}
