package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sidang-scheduler-api/internal/csvio"
	"github.com/noah-isme/sidang-scheduler-api/internal/dto"
	"github.com/noah-isme/sidang-scheduler-api/internal/models"
	"github.com/noah-isme/sidang-scheduler-api/internal/scheduler"
	"github.com/noah-isme/sidang-scheduler-api/pkg/config"
	appErrors "github.com/noah-isme/sidang-scheduler-api/pkg/errors"
	"github.com/noah-isme/sidang-scheduler-api/pkg/export"
)

const scheduleCachePrefix = "schedule_run:"

// ScheduleRunStore persists generated runs.
type ScheduleRunStore interface {
	Create(ctx context.Context, run *models.ScheduleRun) error
	FindByID(ctx context.Context, id string) (*models.ScheduleRun, error)
	List(ctx context.Context, filter models.ScheduleRunFilter) ([]models.ScheduleRun, error)
	Count(ctx context.Context, filter models.ScheduleRunFilter) (int, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ScheduleCache caches generate responses by run id.
type ScheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Evict(ctx context.Context, key string) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	Scheduler config.SchedulerConfig
	CacheTTL  time.Duration
	// RunTTL bounds how long runs are kept in memory when no repository is wired.
	RunTTL time.Duration
}

// ScheduleGeneratorService runs the panel engine and keeps the resulting runs.
type ScheduleGeneratorService struct {
	runs      ScheduleRunStore
	cache     ScheduleCache
	metrics   *MetricsService
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleGeneratorConfig
	store     *runStore
}

// NewScheduleGeneratorService wires scheduler dependencies. runs, cache and
// metrics may be nil.
func NewScheduleGeneratorService(
	runs ScheduleRunStore,
	cache ScheduleCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 24 * time.Hour
	}
	return &ScheduleGeneratorService{
		runs:      runs,
		cache:     cache,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		store:     newRunStore(cfg.RunTTL),
	}
}

// Generate validates the payload, runs the requested strategy and stores the result.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}
	if limit := s.cfg.Scheduler.MaxSessions; limit > 0 && len(req.Sessions) > limit {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d sessions can be scheduled per run", limit))
	}

	strategyName := req.Strategy
	if strategyName == "" {
		strategyName = s.cfg.Scheduler.DefaultStrategy
	}
	strategy, err := scheduler.ParseStrategy(strategyName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	opts, err := s.options(req.Options)
	if err != nil {
		return nil, malformed(err)
	}

	roster, err := scheduler.NewRoster(req.Sessions, req.Lecturers, s.validator)
	if err != nil {
		return nil, malformed(err)
	}

	engine, err := scheduler.New(roster, opts, s.logger)
	if err != nil {
		return nil, malformed(err)
	}

	start := time.Now()
	schedule, err := engine.Run(ctx, strategy)
	if err != nil {
		if ctx.Err() != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCanceled.Code, appErrors.ErrCanceled.Status, "schedule generation canceled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate schedule")
	}
	elapsed := time.Since(start)

	report := scheduler.Analyze(schedule, roster)
	s.metrics.ObserveScheduleRun(schedule, report.Valid, elapsed)

	resp := &dto.GenerateScheduleResponse{
		ID:         uuid.NewString(),
		Strategy:   string(schedule.Strategy),
		Schedule:   schedule,
		Report:     report,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}

	persist := req.Persist == nil || *req.Persist
	if persist {
		if err := s.save(ctx, resp, roster); err != nil {
			return nil, err
		}
	}

	if !report.Valid {
		s.logger.Warn("generated schedule failed verification",
			zap.String("run_id", resp.ID),
			zap.Int("expertise_violations", report.ExpertiseViolations),
			zap.Int("time_conflicts", report.TimeConflicts),
		)
	}
	return resp, nil
}

// Upload parses the sessions and expertise sheets and generates a schedule from them.
func (s *ScheduleGeneratorService) Upload(ctx context.Context, sessionsCSV, expertiseCSV io.Reader, delim rune, strategy string) (*dto.GenerateScheduleResponse, error) {
	sessions, err := csvio.LoadSessions(sessionsCSV, delim)
	if err != nil {
		return nil, malformed(err)
	}
	lecturers, err := csvio.LoadExpertise(expertiseCSV, delim)
	if err != nil {
		return nil, malformed(err)
	}
	return s.Generate(ctx, dto.GenerateScheduleRequest{
		Strategy:  strings.ToLower(strings.TrimSpace(strategy)),
		Sessions:  sessions,
		Lecturers: lecturers,
	})
}

// Get returns a stored run. The boolean reports whether the cache served it.
func (s *ScheduleGeneratorService) Get(ctx context.Context, id string) (*dto.GenerateScheduleResponse, bool, error) {
	var cached dto.GenerateScheduleResponse
	if s.cache != nil {
		if hit, _ := s.cache.Get(ctx, cacheKey(id), &cached); hit {
			return &cached, true, nil
		}
	}

	if s.runs == nil {
		resp, ok := s.store.Get(id)
		if !ok {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
		}
		return &resp, false, nil
	}

	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule run")
	}

	var resp dto.GenerateScheduleResponse
	if err := json.Unmarshal(run.Payload, &resp); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored schedule run is corrupt")
	}
	resp.Persisted = true
	s.cacheResponse(ctx, &resp)
	return &resp, false, nil
}

// List pages through stored runs, newest first.
func (s *ScheduleGeneratorService) List(ctx context.Context, query dto.ScheduleRunQuery) ([]dto.ScheduleRunSummary, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule run query")
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	filter := models.ScheduleRunFilter{Strategy: query.Strategy, Offset: query.Offset, Limit: query.Limit}

	if s.runs == nil {
		items, total := s.store.List(filter)
		return items, &models.Pagination{Offset: query.Offset, Limit: query.Limit, TotalCount: total}, nil
	}

	runs, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule runs")
	}
	total, err := s.runs.Count(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count schedule runs")
	}

	items := make([]dto.ScheduleRunSummary, 0, len(runs))
	for _, run := range runs {
		items = append(items, dto.ScheduleRunSummary{
			ID:             run.ID,
			Strategy:       run.Strategy,
			TotalSessions:  run.TotalSessions,
			TotalLecturers: run.TotalLecturers,
			AvgWorkload:    run.AvgWorkload,
			BestReward:     run.BestReward,
			Valid:          run.Valid,
			CreatedAt:      run.CreatedAt,
		})
	}
	return items, &models.Pagination{Offset: query.Offset, Limit: query.Limit, TotalCount: total}, nil
}

// Delete removes a run and its cache entry.
func (s *ScheduleGeneratorService) Delete(ctx context.Context, id string) error {
	var found bool
	if s.runs != nil {
		deleted, err := s.runs.Delete(ctx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule run")
		}
		found = deleted
	} else {
		found = s.store.Delete(id)
	}
	if s.cache != nil {
		_ = s.cache.Evict(ctx, cacheKey(id))
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
	}
	return nil
}

// Export renders a stored run as CSV or PDF.
func (s *ScheduleGeneratorService) Export(ctx context.Context, id, format string) (*dto.ScheduleExport, error) {
	f, err := export.ParseFormat(strings.ToLower(format))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	resp, _, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp.Schedule == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "stored schedule run has no schedule")
	}

	data := export.ScheduleDataset(resp.Schedule)
	data.Notes = export.ReportNotes(resp.Report)
	var body []byte
	switch f {
	case export.FormatPDF:
		body, err = s.pdf.Render(data, fmt.Sprintf("Panel schedule %s (%s)", resp.ID, resp.Strategy))
	default:
		body, err = s.csv.Render(data)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &dto.ScheduleExport{
		Filename:    fmt.Sprintf("schedule-%s.%s", resp.ID, f),
		ContentType: f.ContentType(),
		Body:        body,
	}, nil
}

func (s *ScheduleGeneratorService) save(ctx context.Context, resp *dto.GenerateScheduleResponse, roster *scheduler.Roster) error {
	if s.runs == nil {
		s.store.Save(*resp)
		s.cacheResponse(ctx, resp)
		return nil
	}

	resp.Persisted = true
	payload, err := json.Marshal(resp)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule run")
	}
	run := &models.ScheduleRun{
		ID:             resp.ID,
		Strategy:       resp.Strategy,
		TotalSessions:  roster.SessionCount(),
		TotalLecturers: roster.LecturerCount(),
		AvgWorkload:    resp.Report.Summary.AverageLoad,
		BestReward:     resp.Schedule.BestReward,
		Valid:          resp.Report.Valid,
		Payload:        types.JSONText(payload),
		CreatedAt:      resp.CreatedAt,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		resp.Persisted = false
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule run")
	}
	s.cacheResponse(ctx, resp)
	return nil
}

func (s *ScheduleGeneratorService) cacheResponse(ctx context.Context, resp *dto.GenerateScheduleResponse) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, cacheKey(resp.ID), resp, s.cfg.CacheTTL)
}

// options applies request overrides on top of the configured tuning.
func (s *ScheduleGeneratorService) options(in *dto.ScheduleOptionsInput) (scheduler.Options, error) {
	opts, err := s.cfg.Scheduler.EngineOptions()
	if err != nil {
		return opts, err
	}
	if in == nil {
		return opts, nil
	}
	if in.DailyCap != nil {
		opts.DailyCap = *in.DailyCap
	}
	if in.CapPolicy != "" {
		policy, err := scheduler.ParseCapPolicy(in.CapPolicy)
		if err != nil {
			return opts, err
		}
		opts.CapPolicy = policy
	}
	if in.Epsilon != nil {
		opts.Epsilon = *in.Epsilon
	}
	if in.MaxIterations != nil {
		opts.MaxIterations = *in.MaxIterations
	}
	if in.Seed != nil {
		opts.Seed = *in.Seed
	}
	if len(in.Roles) > 0 {
		roles, err := scheduler.ParseRoles(strings.Join(in.Roles, ","))
		if err != nil {
			return opts, err
		}
		opts.Roles = roles
	}
	if in.SlotConflicts != nil {
		opts.SlotConflicts = *in.SlotConflicts
	}
	if in.TimeBudgetMs != nil {
		opts.TimeBudget = time.Duration(*in.TimeBudgetMs) * time.Millisecond
	}
	return opts, opts.Validate()
}

func malformed(err error) error {
	return appErrors.Wrap(err, appErrors.ErrMalformedInput.Code, appErrors.ErrMalformedInput.Status, err.Error())
}

func cacheKey(id string) string {
	return scheduleCachePrefix + id
}

// runStore keeps runs in memory when persistence is disabled.
type runStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]dto.GenerateScheduleResponse
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{
		ttl:   ttl,
		items: make(map[string]dto.GenerateScheduleResponse),
	}
}

func (s *runStore) Save(resp dto.GenerateScheduleResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[resp.ID] = resp
}

func (s *runStore) Get(id string) (dto.GenerateScheduleResponse, bool) {
	s.mu.RLock()
	resp, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return dto.GenerateScheduleResponse{}, false
	}
	if time.Since(resp.CreatedAt) > s.ttl {
		s.Delete(id)
		return dto.GenerateScheduleResponse{}, false
	}
	return resp, true
}

func (s *runStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	delete(s.items, id)
	return ok
}

// List returns live runs matching the filter, newest first, with the total match count.
func (s *runStore) List(filter models.ScheduleRunFilter) ([]dto.ScheduleRunSummary, int) {
	s.mu.Lock()
	matches := make([]dto.GenerateScheduleResponse, 0, len(s.items))
	for id, resp := range s.items {
		if time.Since(resp.CreatedAt) > s.ttl {
			delete(s.items, id)
			continue
		}
		if filter.Strategy != "" && resp.Strategy != filter.Strategy {
			continue
		}
		matches = append(matches, resp)
	}
	s.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := len(matches)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)

	items := make([]dto.ScheduleRunSummary, 0, end-start)
	for _, resp := range matches[start:end] {
		summary := dto.ScheduleRunSummary{
			ID:          resp.ID,
			Strategy:    resp.Strategy,
			AvgWorkload: resp.Report.Summary.AverageLoad,
			Valid:       resp.Report.Valid,
			CreatedAt:   resp.CreatedAt,
		}
		if resp.Schedule != nil {
			summary.TotalSessions = len(resp.Schedule.Entries)
			summary.BestReward = resp.Schedule.BestReward
		}
		summary.TotalLecturers = len(resp.Report.Workload)
		items = append(items, summary)
	}
	return items, total
}
