package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sidang-scheduler-api/internal/dto"
	"github.com/noah-isme/sidang-scheduler-api/internal/middleware"
	"github.com/noah-isme/sidang-scheduler-api/internal/models"
	"github.com/noah-isme/sidang-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/sidang-scheduler-api/pkg/errors"
	"github.com/noah-isme/sidang-scheduler-api/pkg/response"
)

const defaultMaxUploadBytes = 5 << 20

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	Upload(ctx context.Context, sessions, expertise io.Reader, delim rune, strategy string) (*dto.GenerateScheduleResponse, error)
	Get(ctx context.Context, id string) (*dto.GenerateScheduleResponse, bool, error)
	List(ctx context.Context, query dto.ScheduleRunQuery) ([]dto.ScheduleRunSummary, *models.Pagination, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, id, format string) (*dto.ScheduleExport, error)
}

// ScheduleGeneratorHandler exposes panel scheduling endpoints.
type ScheduleGeneratorHandler struct {
	service        scheduleGenerator
	maxUploadBytes int64
}

// NewScheduleGeneratorHandler constructs the handler.
func NewScheduleGeneratorHandler(svc *service.ScheduleGeneratorService, maxUploadBytes int64) *ScheduleGeneratorHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &ScheduleGeneratorHandler{service: svc, maxUploadBytes: maxUploadBytes}
}

// Generate godoc
// @Summary Assign defense panels
// @Description Runs the selected strategy over the posted sessions and lecturers and returns the schedule with its analysis.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Sessions, lecturers and tuning"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Upload godoc
// @Summary Assign defense panels from CSV sheets
// @Tags Schedules
// @Accept multipart/form-data
// @Produce json
// @Param sessions formData file true "Sessions CSV (id,date,time,room,student_id,title,field)"
// @Param expertise formData file true "Expertise CSV (id,expertise)"
// @Param strategy formData string false "capacity, scored or rollout"
// @Param delimiter formData string false "Single character field delimiter"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/upload [post]
func (h *ScheduleGeneratorHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	delim := ','
	if raw := c.PostForm("delimiter"); raw != "" {
		r, size := utf8.DecodeRuneInString(raw)
		if size != len(raw) || r == utf8.RuneError {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "delimiter must be a single character"))
			return
		}
		delim = r
	}

	sessions, err := openFormFile(c, "sessions")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer sessions.Close()

	expertise, err := openFormFile(c, "expertise")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer expertise.Close()

	result, err := h.service.Upload(c.Request.Context(), sessions, expertise, delim, c.PostForm("strategy"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List generated schedule runs
// @Tags Schedules
// @Produce json
// @Param strategy query string false "Filter by strategy"
// @Param offset query int false "Offset"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleGeneratorHandler) List(c *gin.Context) {
	var query dto.ScheduleRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a generated schedule run
// @Tags Schedules
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleGeneratorHandler) Get(c *gin.Context) {
	result, cached, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download a schedule run
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Run ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id}/export [get]
func (h *ScheduleGeneratorHandler) Export(c *gin.Context) {
	result, err := h.service.Export(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// Delete godoc
// @Summary Delete a schedule run
// @Tags Schedules
// @Param id path string true "Run ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [delete]
func (h *ScheduleGeneratorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func openFormFile(c *gin.Context, field string) (multipart.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("upload exceeds %d bytes", maxErr.Limit))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, fmt.Sprintf("missing %s file", field))
	}
	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to read %s file", field))
	}
	return file, nil
}
