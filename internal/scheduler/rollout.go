package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
)

const rolloutProgressEvery = 100

// trialResult is the outcome of one independent rollout.
type trialResult struct {
	index       int
	entries     []ScheduleEntry
	diagnostics []Diagnostic
	reward      float64
}

func (t *trialResult) beats(other *trialResult) bool {
	if other == nil {
		return true
	}
	if t.reward != other.reward {
		return t.reward > other.reward
	}
	return t.index < other.index
}

// newTrialRNG seeds trial i independently of scheduling order.
//
//nolint:gosec
func newTrialRNG(seed uint64, trial int) *rand.Rand {
	s1 := seed
	s2 := uint64(trial) ^ 0x9e3779b97f4a7c15
	return rand.New(rand.NewPCG(s1, s2))
}

// Rollout runs MaxIterations independent epsilon-greedy trials, each assigning
// one lecturer per session in input order, and keeps the trial with the
// highest accumulated reward. Equal rewards keep the lowest trial index, so
// for a fixed seed the kept reward never decreases as MaxIterations grows.
//
// Trials run on the engine's worker pool. Cancelling ctx stops dispatching new
// trials and returns an error; an exhausted TimeBudget returns the best trial
// found so far. The first trial always runs.
func (e *Engine) Rollout(ctx context.Context) (*Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rollout canceled: %w", err)
	}

	var (
		mu   sync.Mutex
		best *trialResult
	)
	keep := func(result *trialResult) {
		mu.Lock()
		defer mu.Unlock()
		if result.beats(best) {
			best = result
		}
	}

	keep(e.trial(0))
	completed := 1

	if e.opts.MaxIterations > 1 {
		runCtx := ctx
		if e.opts.TimeBudget > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, e.opts.TimeBudget)
			defer cancel()
		}
		done, err := e.pool.Run(runCtx, e.opts.MaxIterations-1, func(_ context.Context, i int) error {
			keep(e.trial(i + 1))
			if n := i + 2; n%rolloutProgressEvery == 0 {
				e.logger.Debug("rollout progress", zap.Int("trial", n), zap.Int("of", e.opts.MaxIterations))
			}
			return nil
		})
		completed += done
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("rollout canceled after %d trials: %w", completed, ctxErr)
		}
		if err != nil && runCtx.Err() == nil {
			return nil, fmt.Errorf("rollout: %w", err)
		}
		if completed < e.opts.MaxIterations {
			e.logger.Info("rollout time budget exhausted",
				zap.Int("trials", completed),
				zap.Duration("budget", e.opts.TimeBudget),
			)
		}
	}

	reward := best.reward
	return &Schedule{
		Strategy:    StrategyRollout,
		Roles:       []Role{e.rolloutRole()},
		Entries:     best.entries,
		Diagnostics: best.diagnostics,
		BestReward:  &reward,
		Trials:      completed,
	}, nil
}

func (e *Engine) rolloutRole() Role {
	return e.opts.Roles[0]
}

// trial performs one rollout with fresh workload and occupancy state. When a
// session has no conflict-free qualified lecturer the trial stops there and
// the remaining sessions stay unassigned.
func (e *Engine) trial(index int) *trialResult {
	rng := newTrialRNG(e.opts.Seed, index)
	workload := NewWorkloadState()
	occupancy := NewSlotOccupancy()
	target := TargetWorkload(e.roster.SessionCount(), e.roster.LecturerCount(), e.opts.PanelSize)
	role := e.rolloutRole()

	result := &trialResult{index: index}
	sessions := e.roster.Sessions()
	stopped := false
	for _, session := range sessions {
		panel := newPanel()
		if stopped {
			result.entries = append(result.entries, ScheduleEntry{Session: session, Panel: panel})
			continue
		}

		eligible := e.roster.Eligible(session)
		candidates := eligible[:0:0]
		for _, l := range eligible {
			if !HasSlotConflict(l.ID, session.Date, session.Time, occupancy) {
				candidates = append(candidates, l)
			}
		}
		if len(candidates) == 0 {
			kind := DiagnosticNoEligibleLecturer
			msg := fmt.Sprintf("all qualified lecturers busy at %s, trial stopped", session.Slot())
			if len(eligible) == 0 {
				kind = DiagnosticUnknownField
				msg = fmt.Sprintf("no lecturer lists field %q, trial stopped", session.Field)
			}
			result.diagnostics = append(result.diagnostics, Diagnostic{Kind: kind, SessionID: session.ID, Role: role, Message: msg})
			result.entries = append(result.entries, ScheduleEntry{Session: session, Panel: panel})
			stopped = true
			continue
		}

		var pick Lecturer
		var reward float64
		if rng.Float64() < e.opts.Epsilon {
			pick = candidates[rng.IntN(len(candidates))]
			reward = Reward(pick, session, workload.Total(pick.ID), target, occupancy)
		} else {
			for i, l := range candidates {
				r := Reward(l, session, workload.Total(l.ID), target, occupancy)
				if i == 0 || r > reward {
					pick, reward = l, r
				}
			}
		}

		panel.Members[role] = pick.ID
		panel.Scores[role] = reward
		workload.Record(pick.ID, role, session.Date)
		occupancy.Book(session.Slot(), pick.ID)
		result.reward += reward
		result.entries = append(result.entries, ScheduleEntry{Session: session, Panel: panel})
	}
	return result
}
