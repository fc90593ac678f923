// Package batch runs independent jobs on a fixed worker pool and returns
// their results in input order.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// ErrJobPanicked is recorded in a job's slot when its function panics.
var ErrJobPanicked = errors.New("batch job panicked")

// sequentialCutoff is the job count at or below which the pool is skipped.
const sequentialCutoff = 1

// Result is the outcome of one job. Exactly one of Value and Err is meaningful.
type Result[R any] struct {
	Value R
	Err   error
}

// OK reports whether the job succeeded.
func (r Result[R]) OK() bool { return r.Err == nil }

// Options configures a run.
type Options struct {
	// Workers is the pool size. Zero or negative means runtime.NumCPU().
	Workers int
	// OnResult, when set, is called once per job from the goroutine that ran it.
	OnResult func(index int, err error, elapsed time.Duration)
}

// workers returns the effective pool size for n jobs.
func (o Options) workers(n int) int {
	w := o.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}

	return max(1, min(w, n))
}

// Run calls fn for every job and returns one Result per job, index aligned
// with jobs. Each worker writes only to the slot of the job it took, so the
// output does not depend on scheduling. A failing or panicking job never
// affects other slots. Run has no cancellation; ctx is only passed through.
func Run[J, R any](ctx context.Context, jobs []J, fn func(context.Context, J) (R, error), opts Options) []Result[R] {
	results := make([]Result[R], len(jobs))
	if len(jobs) == 0 {
		return results
	}

	workers := opts.workers(len(jobs))

	if len(jobs) <= sequentialCutoff || workers == 1 {
		for i := range jobs {
			results[i] = runOne(ctx, i, jobs[i], fn, opts.OnResult)
		}

		return results
	}

	indexes := make(chan int, len(jobs))
	for i := range jobs {
		indexes <- i
	}

	close(indexes)

	wg := sync.WaitGroup{}
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()

			for i := range indexes {
				results[i] = runOne(ctx, i, jobs[i], fn, opts.OnResult)
			}
		}()
	}

	wg.Wait()

	return results
}

func runOne[J, R any](
	ctx context.Context, index int, job J,
	fn func(context.Context, J) (R, error),
	onResult func(int, error, time.Duration),
) (res Result[R]) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = Result[R]{Err: fmt.Errorf("%w: job %d: %v", ErrJobPanicked, index, r)}
		}

		if onResult != nil {
			onResult(index, res.Err, time.Since(start))
		}
	}()

	value, err := fn(ctx, job)
	if err != nil {
		return Result[R]{Err: err}
	}

	return Result[R]{Value: value}
}
