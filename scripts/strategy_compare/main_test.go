package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sidang-scheduler-api/internal/scheduler"
)

func TestCompareStrategies(t *testing.T) {
	roster, err := scheduler.NewRoster(
		[]scheduler.DefenseSession{
			{ID: "S1", Date: "2024-06-03", Time: "09:00", Room: "R1", StudentID: "1", Title: "A", Field: "NLP"},
			{ID: "S2", Date: "2024-06-03", Time: "10:00", Room: "R1", StudentID: "2", Title: "B", Field: "NLP"},
		},
		[]scheduler.Lecturer{
			{ID: "L1", Expertise: []string{"NLP"}},
			{ID: "L2", Expertise: []string{"NLP"}},
			{ID: "L3", Expertise: []string{"NLP"}},
		},
		validator.New(),
	)
	require.NoError(t, err)

	opts := scheduler.DefaultOptions()
	opts.MaxIterations = 10
	results, err := compareStrategies(context.Background(), roster, opts)
	require.NoError(t, err)
	require.Len(t, results, len(scheduler.Strategies))
	for _, res := range results {
		require.NoError(t, res.Error)
		assert.True(t, res.Report.Valid, res.Strategy)
	}

	var buf bytes.Buffer
	printReport(&buf, results)
	assert.Contains(t, buf.String(), "[OK] capacity")
	assert.Contains(t, buf.String(), "[OK] rollout")
	assert.Contains(t, buf.String(), "Best reward")
}

func TestCompareStrategiesCanceled(t *testing.T) {
	roster, err := scheduler.NewRoster(
		[]scheduler.DefenseSession{{ID: "S1", Date: "2024-06-03", Time: "09:00", Room: "R1", StudentID: "1", Title: "A", Field: "NLP"}},
		[]scheduler.Lecturer{{ID: "L1", Expertise: []string{"NLP"}}},
		validator.New(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := compareStrategies(ctx, roster, scheduler.DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	printReport(&buf, results)
	assert.Contains(t, buf.String(), "[ERROR] rollout")
}
