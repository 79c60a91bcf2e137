package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sidang-scheduler-api/pkg/errors"
)

type cacheRepoStub struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *cacheRepoStub) Get(_ context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *cacheRepoStub) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.entries[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *cacheRepoStub) Delete(_ context.Context, key string) error {
	delete(r.entries, key)
	return nil
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	repo := newCacheRepoStub()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, zap.NewNop())
	ctx := context.Background()

	var dest map[string]int
	hit, err := svc.Get(ctx, "schedule_run:1", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "schedule_run:1", map[string]int{"n": 3}, 0))
	assert.Equal(t, time.Minute, repo.ttls["schedule_run:1"])

	hit, err = svc.Get(ctx, "schedule_run:1", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, dest["n"])
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))

	require.NoError(t, svc.Evict(ctx, "schedule_run:1"))
	hit, err = svc.Get(ctx, "schedule_run:1", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := newCacheRepoStub()
	repo.getErr = errors.New("connection refused")
	svc := NewCacheService(repo, nil, 0, nil)

	var dest map[string]int
	hit, err := svc.Get(context.Background(), "k", &dest)
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(nil, nil, 0, nil)
	assert.False(t, svc.Enabled())

	var dest map[string]int
	hit, err := svc.Get(context.Background(), "k", &dest)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Set(context.Background(), "k", 1, 0))
	assert.NoError(t, svc.Evict(context.Background(), "k"))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}
