package jobs

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Task processes the item at index. Tasks run concurrently and must not share
// mutable state without synchronisation.
type Task func(ctx context.Context, index int) error

// PoolConfig configures worker pool behaviour.
type PoolConfig struct {
	Workers int
	Logger  *zap.Logger
}

// Pool fans a fixed number of independent tasks out to a bounded set of goroutines.
type Pool struct {
	name    string
	workers int
	logger  *zap.Logger
}

// NewPool builds a pool. Workers defaults to the number of CPUs.
func NewPool(name string, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool{name: name, workers: cfg.Workers, logger: cfg.Logger}
}

// Workers returns the configured concurrency.
func (p *Pool) Workers() int { return p.workers }

// Run executes task for every index in [0, n) and blocks until the dispatched
// tasks finish. Dispatch stops at the first task error or once ctx is done;
// tasks already running are not interrupted. It returns the number of tasks
// that completed without error, and the first task error or ctx.Err().
func (p *Pool) Run(ctx context.Context, n int, task Task) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := min(p.workers, n)
	indexes := make(chan int)
	var (
		wg        sync.WaitGroup
		completed atomic.Int64
		once      sync.Once
		firstErr  error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range indexes {
				if runCtx.Err() != nil {
					continue
				}
				if err := task(runCtx, i); err != nil {
					p.logger.Sugar().Warnw("task failed", "pool", p.name, "worker", workerID, "index", i, "error", err)
					once.Do(func() {
						firstErr = fmt.Errorf("pool %s task %d: %w", p.name, i, err)
						cancel()
					})
					continue
				}
				completed.Add(1)
			}
		}(w + 1)
	}

dispatch:
	for i := 0; i < n; i++ {
		if runCtx.Err() != nil {
			break
		}
		select {
		case <-runCtx.Done():
			break dispatch
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	done := int(completed.Load())
	if firstErr != nil {
		return done, firstErr
	}
	if err := ctx.Err(); err != nil {
		p.logger.Sugar().Infow("pool stopped early", "pool", p.name, "completed", done, "total", n, "error", err)
		return done, err
	}
	return done, nil
}
