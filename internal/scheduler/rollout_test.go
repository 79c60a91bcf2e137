package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolloutGreedyPickMaximisesReward(t *testing.T) {
	roster := mustRoster(t,
		[]DefenseSession{newSession("s1", "2024-06-01", "09:00", "NLP")},
		[]Lecturer{
			{ID: "G", Expertise: []string{"NLP", "Vision"}},
			{ID: "S", Expertise: []string{"NLP"}},
		},
	)
	engine := newTestEngine(t, roster, func(o *Options) {
		o.Epsilon = 0
		o.MaxIterations = 3
	})

	schedule, err := engine.Rollout(context.Background())
	require.NoError(t, err)

	require.NotNil(t, schedule.BestReward)
	// target = 1*4/2 = 2; S scores 3/1 + 2/3
	assert.InDelta(t, 3.0+2.0/3.0, *schedule.BestReward, 1e-9)
	assert.Equal(t, "S", schedule.Entries[0].Panel.Members[RoleExaminer1])
	assert.Equal(t, []Role{RoleExaminer1}, schedule.Roles)
	assert.Equal(t, 3, schedule.Trials)
}

func TestRolloutKeepsInputOrderAndStopsOnDeadEnd(t *testing.T) {
	roster := mustRoster(t,
		[]DefenseSession{
			newSession("s2", "2024-06-02", "09:00", "NLP"),
			newSession("s1", "2024-06-01", "09:00", "Quantum"),
			newSession("s3", "2024-06-03", "09:00", "NLP"),
		},
		[]Lecturer{{ID: "A", Expertise: []string{"NLP"}}},
	)
	engine := newTestEngine(t, roster, func(o *Options) { o.MaxIterations = 5 })

	schedule, err := engine.Run(context.Background(), StrategyRollout)
	require.NoError(t, err)

	require.Len(t, schedule.Entries, 3)
	assert.Equal(t, "s2", schedule.Entries[0].Session.ID)
	assert.Equal(t, "A", schedule.Entries[0].Panel.Members[RoleExaminer1])
	assert.Empty(t, schedule.Entries[1].Panel.Members)
	assert.Empty(t, schedule.Entries[2].Panel.Members, "sessions after a dead end stay unassigned")
	require.Len(t, schedule.Diagnostics, 1)
	assert.Equal(t, DiagnosticUnknownField, schedule.Diagnostics[0].Kind)
}

func TestRolloutIsReproducibleAcrossWorkerCounts(t *testing.T) {
	roster := generatedRoster(t, 30, 8, 5)

	single := newTestEngine(t, roster, func(o *Options) { o.Workers = 1; o.MaxIterations = 40; o.Seed = 42 })
	parallel := newTestEngine(t, roster, func(o *Options) { o.Workers = 4; o.MaxIterations = 40; o.Seed = 42 })

	a, err := single.Rollout(context.Background())
	require.NoError(t, err)
	b, err := parallel.Rollout(context.Background())
	require.NoError(t, err)

	assert.Equal(t, *a.BestReward, *b.BestReward)
	assert.Equal(t, a.Entries, b.Entries)
}

func TestRolloutBestRewardMonotonicInIterations(t *testing.T) {
	roster := generatedRoster(t, 25, 6, 2)

	previous := -1e18
	for _, iterations := range []int{1, 2, 8, 32, 64} {
		engine := newTestEngine(t, roster, func(o *Options) {
			o.MaxIterations = iterations
			o.Epsilon = 0.3
			o.Seed = 7
		})
		schedule, err := engine.Rollout(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, *schedule.BestReward, previous, "iterations=%d", iterations)
		previous = *schedule.BestReward
	}
}

func TestRolloutNoDoubleBooking(t *testing.T) {
	roster := generatedRoster(t, 40, 10, 3)
	engine := newTestEngine(t, roster, func(o *Options) { o.MaxIterations = 20 })

	schedule, err := engine.Rollout(context.Background())
	require.NoError(t, err)

	report := Analyze(schedule, roster)
	assert.Zero(t, report.TimeConflicts)
	assert.True(t, report.Valid)
	assert.Equal(t, 1.0, report.ExpertiseRatio)
}

func TestRolloutCanceled(t *testing.T) {
	roster := generatedRoster(t, 10, 4, 1)
	engine := newTestEngine(t, roster, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx, StrategyRollout)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRolloutTimeBudgetReturnsBestSoFar(t *testing.T) {
	roster := generatedRoster(t, 10, 4, 1)
	engine := newTestEngine(t, roster, func(o *Options) {
		o.MaxIterations = 1_000_000
		o.TimeBudget = 20 * time.Millisecond
	})

	schedule, err := engine.Rollout(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, schedule.Trials, 1)
	assert.Less(t, schedule.Trials, 1_000_000)
	require.NotNil(t, schedule.BestReward)
}

func TestRunUnknownStrategy(t *testing.T) {
	roster := generatedRoster(t, 3, 2, 1)
	_, err := newTestEngine(t, roster, nil).Run(context.Background(), "annealing")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	roster := generatedRoster(t, 3, 2, 1)
	opts := DefaultOptions()
	opts.Epsilon = 1.5
	_, err := New(roster, opts, nil)
	assert.ErrorIs(t, err, ErrMalformedInput)

	opts = DefaultOptions()
	opts.Roles = []Role{RoleExaminer1, RoleExaminer1}
	_, err = New(roster, opts, nil)
	assert.ErrorIs(t, err, ErrMalformedInput)
}
