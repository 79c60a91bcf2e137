package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sidang-scheduler-api/internal/models"
)

const scheduleRunColumns = "id, strategy, total_sessions, total_lecturers, avg_workload, best_reward, valid, payload, created_at, updated_at"

// ScheduleRunRepository provides persistence for generated schedule runs.
type ScheduleRunRepository struct {
	db *sqlx.DB
}

// NewScheduleRunRepository creates a new schedule run repository.
func NewScheduleRunRepository(db *sqlx.DB) *ScheduleRunRepository {
	return &ScheduleRunRepository{db: db}
}

const scheduleRunSchema = `CREATE TABLE IF NOT EXISTS schedule_runs (
	id TEXT PRIMARY KEY,
	strategy TEXT NOT NULL,
	total_sessions INTEGER NOT NULL,
	total_lecturers INTEGER NOT NULL,
	avg_workload DOUBLE PRECISION NOT NULL,
	best_reward DOUBLE PRECISION,
	valid BOOLEAN NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS schedule_runs_strategy_created_idx ON schedule_runs (strategy, created_at DESC)`

// EnsureSchema creates the schedule_runs table and its index when missing.
func (r *ScheduleRunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, scheduleRunSchema); err != nil {
		return fmt.Errorf("ensure schedule_runs schema: %w", err)
	}
	return nil
}

// Create stores a run, assigning an id and timestamps when missing.
func (r *ScheduleRunRepository) Create(ctx context.Context, run *models.ScheduleRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	const query = `INSERT INTO schedule_runs (id, strategy, total_sessions, total_lecturers, avg_workload, best_reward, valid, payload, created_at, updated_at) VALUES (:id, :strategy, :total_sessions, :total_lecturers, :avg_workload, :best_reward, :valid, :payload, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create schedule run: %w", err)
	}
	return nil
}

// FindByID loads a run by id. sql.ErrNoRows is returned unwrapped.
func (r *ScheduleRunRepository) FindByID(ctx context.Context, id string) (*models.ScheduleRun, error) {
	query := "SELECT " + scheduleRunColumns + " FROM schedule_runs WHERE id = $1"
	var run models.ScheduleRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns runs ordered by creation time, newest first.
func (r *ScheduleRunRepository) List(ctx context.Context, filter models.ScheduleRunFilter) ([]models.ScheduleRun, error) {
	where, args := runWhere(filter)

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("SELECT %s FROM schedule_runs%s ORDER BY created_at DESC LIMIT %d OFFSET %d", scheduleRunColumns, where, limit, offset)
	var runs []models.ScheduleRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule runs: %w", err)
	}
	return runs, nil
}

// Count returns how many runs match the filter.
func (r *ScheduleRunRepository) Count(ctx context.Context, filter models.ScheduleRunFilter) (int, error) {
	where, args := runWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM schedule_runs"+where, args...); err != nil {
		return 0, fmt.Errorf("count schedule runs: %w", err)
	}
	return total, nil
}

// Delete removes a run by id and reports whether a row existed.
func (r *ScheduleRunRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedule_runs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete schedule run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete schedule run: %w", err)
	}
	return affected > 0, nil
}

func runWhere(filter models.ScheduleRunFilter) (string, []interface{}) {
	if filter.Strategy == "" {
		return "", nil
	}
	return " WHERE strategy = $1", []interface{}{filter.Strategy}
}
