package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sidang-scheduler-api/pkg/jobs"
)

// Engine runs assignment strategies over one roster. It performs no I/O and
// holds no state between runs, so a single Engine may serve concurrent calls.
type Engine struct {
	roster *Roster
	opts   Options
	logger *zap.Logger
	pool   *jobs.Pool
}

// New validates the options and binds them to the roster.
func New(roster *Roster, opts Options, logger *zap.Logger) (*Engine, error) {
	if roster == nil {
		return nil, fmt.Errorf("%w: roster is nil", ErrMalformedInput)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Engine{
		roster: roster,
		opts:   opts,
		logger: logger,
		pool:   jobs.NewPool("rollout", jobs.PoolConfig{Workers: opts.Workers, Logger: logger}),
	}, nil
}

// Roster returns the roster the engine schedules.
func (e *Engine) Roster() *Roster { return e.roster }

// Options returns the effective options after defaults were applied.
func (e *Engine) Options() Options { return e.opts }

// Run executes the named strategy.
func (e *Engine) Run(ctx context.Context, strategy StrategyName) (*Schedule, error) {
	start := time.Now()
	var (
		schedule *Schedule
		err      error
	)
	switch strategy {
	case StrategyCapacity, "":
		schedule = e.Capacity()
	case StrategyScored:
		schedule = e.Scored()
	case StrategyRollout:
		schedule, err = e.Rollout(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("strategy", string(schedule.Strategy)),
		zap.Int("sessions", len(schedule.Entries)),
		zap.Int("unassigned", schedule.Unassigned()),
		zap.Duration("elapsed", time.Since(start)),
	}
	if schedule.BestReward != nil {
		fields = append(fields, zap.Float64("best_reward", *schedule.BestReward), zap.Int("trials", schedule.Trials))
	}
	e.logger.Info("schedule generated", fields...)
	return schedule, nil
}

// panelRun is the mutable state of a single panel strategy pass.
type panelRun struct {
	roster    *Roster
	opts      Options
	workload  *WorkloadState
	occupancy *SlotOccupancy
	target    float64
	totalCap  int
}

func (e *Engine) newPanelRun(strategy StrategyName) *panelRun {
	sessions, lecturers := e.roster.SessionCount(), e.roster.LecturerCount()
	return &panelRun{
		roster:    e.roster,
		opts:      e.opts,
		workload:  NewWorkloadState(),
		occupancy: NewSlotOccupancy(),
		target:    TargetWorkload(sessions, lecturers, e.opts.PanelSize),
		totalCap:  e.opts.capPolicyFor(strategy).TotalCap(sessions, lecturers, e.opts.PanelSize),
	}
}

func (r *panelRun) usable(lecturerID string, session DefenseSession, panel PanelAssignment) bool {
	if !IsAvailable(lecturerID, session.Date, panel.assigned(), r.workload, r.opts.DailyCap, r.totalCap) {
		return false
	}
	return !r.opts.SlotConflicts || !HasSlotConflict(lecturerID, session.Date, session.Time, r.occupancy)
}

func (r *panelRun) assign(panel PanelAssignment, lecturer Lecturer, role Role, session DefenseSession) {
	panel.Members[role] = lecturer.ID
	panel.Scores[role] = Score(lecturer, session.Field, r.workload.Total(lecturer.ID), r.target)
	r.workload.Record(lecturer.ID, role, session.Date)
	r.occupancy.Book(session.Slot(), lecturer.ID)
}

func (r *panelRun) diagnose(session DefenseSession, role Role, eligible []Lecturer) Diagnostic {
	kind := classify(session, eligible, r.roster, r.workload, r.opts.DailyCap, r.totalCap)
	var msg string
	switch kind {
	case DiagnosticUnknownField:
		msg = fmt.Sprintf("no lecturer lists field %q", session.Field)
	case DiagnosticCapacityExhausted:
		msg = fmt.Sprintf("all %d qualified lecturers reached a workload cap", len(eligible))
	default:
		msg = fmt.Sprintf("no qualified lecturer free for %s", session.Slot())
	}
	return Diagnostic{Kind: kind, SessionID: session.ID, Role: role, Message: msg}
}

func (e *Engine) logUnfilled(d Diagnostic) {
	e.logger.Debug("role left unassigned",
		zap.String("session_id", d.SessionID),
		zap.String("role", string(d.Role)),
		zap.String("reason", string(d.Kind)),
	)
}
