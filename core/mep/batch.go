package mep

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is one named configuration of a batch
type Job struct {
	Name   string
	Config *Config
}

// Outcome is the result of one job. Err holds configuration errors; a
// non-converged solve still has a Result.
type Outcome struct {
	Name     string
	Result   *Result
	Err      error
	Duration time.Duration
}

// BatchStats summarizes a batch run
type BatchStats struct {
	Total           int64
	Completed       int64
	Failed          int64
	MaxConcurrency  int
	StartTime       time.Time
	EndTime         time.Time
	AverageDuration time.Duration
}

// BatchSolver solves independent configurations in parallel with a bounded
// number of workers
type BatchSolver struct {
	solver     *Solver
	maxWorkers int
	stats      BatchStats
}

// NewBatchSolver creates a batch solver around s
func NewBatchSolver(s *Solver, maxWorkers int) *BatchSolver {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	return &BatchSolver{solver: s, maxWorkers: maxWorkers}
}

// SolveAll solves every job and returns outcomes in job order. Per-job
// errors are recorded on the outcome; only cancellation of ctx fails the
// whole batch.
func (b *BatchSolver) SolveAll(ctx context.Context, jobs []Job) ([]Outcome, error) {
	outcomes := make([]Outcome, len(jobs))
	b.stats = BatchStats{Total: int64(len(jobs)), StartTime: time.Now()}
	b.stats.MaxConcurrency = min(b.maxWorkers, len(jobs))

	var completed, failed int64
	var total int64 // nanoseconds

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxWorkers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := b.solver.Solve(gctx, job.Config)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			d := time.Since(start)
			atomic.AddInt64(&total, int64(d))

			outcomes[i] = Outcome{Name: job.Name, Result: res, Err: err, Duration: d}
			if err != nil {
				atomic.AddInt64(&failed, 1)
				b.solver.logger.Warn("batch job failed", zap.String("job", job.Name), zap.Error(err))
			} else {
				atomic.AddInt64(&completed, 1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.stats.EndTime = time.Now()
	b.stats.Completed = completed
	b.stats.Failed = failed
	if n := completed + failed; n > 0 {
		b.stats.AverageDuration = time.Duration(total / n)
	}
	return outcomes, nil
}

// Stats returns statistics of the last SolveAll
func (b *BatchSolver) Stats() BatchStats {
	return b.stats
}
