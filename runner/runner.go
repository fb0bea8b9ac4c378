// Package runner executes runs in the background with bounded concurrency
// and a cancellation registry, for callers driving several threads at once.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/threadrun/internal/util"
	"github.com/hupe1980/threadrun/logging"
	"github.com/hupe1980/threadrun/run"
)

// Options configure a Runner.
type Options struct {
	// MaxConcurrentRuns bounds the number of runs executing at once.
	MaxConcurrentRuns int
	// Logger receives runner lifecycle logs.
	Logger logging.Logger
}

// Runner executes runs asynchronously. Each submission gets a local ID that
// can be used to cancel the run's context while it is in flight.
type Runner struct {
	opts Options
	sem  chan struct{}

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// New creates a Runner.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentRuns: 4,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxConcurrentRuns < 1 {
		opts.MaxConcurrentRuns = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Runner{
		opts:   opts,
		sem:    make(chan struct{}, opts.MaxConcurrentRuns),
		active: map[string]context.CancelFunc{},
	}
}

// Submit schedules r for execution. It returns the submission ID and a
// channel that delivers the run's result exactly once.
func (rn *Runner) Submit(ctx context.Context, r *run.Run) (string, <-chan error, error) {
	if r == nil {
		return "", nil, fmt.Errorf("nil run")
	}

	id := util.NewID()
	runCtx, cancel := context.WithCancel(ctx)

	rn.mu.Lock()
	rn.active[id] = cancel
	rn.mu.Unlock()

	done := make(chan error, 1)

	go func() {
		defer func() {
			cancel()
			rn.mu.Lock()
			delete(rn.active, id)
			rn.mu.Unlock()
		}()

		select {
		case rn.sem <- struct{}{}:
			defer func() { <-rn.sem }()
		case <-runCtx.Done():
			done <- runCtx.Err()
			return
		}

		rn.opts.Logger.Debug("runner.run.start", "submission_id", id, "thread_id", r.ThreadID())
		err := r.Execute(runCtx)
		if err != nil {
			rn.opts.Logger.Error("runner.run.error", "submission_id", id, "error", err.Error())
		} else {
			rn.opts.Logger.Debug("runner.run.done", "submission_id", id)
		}
		done <- err
	}()

	return id, done, nil
}

// RunSync submits r and blocks until it finishes or ctx is cancelled.
func (rn *Runner) RunSync(ctx context.Context, r *run.Run) error {
	id, done, err := rn.Submit(ctx, r)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		rn.Cancel(id)
		return ctx.Err()
	}
}

// Cancel cancels the context of an in-flight submission. It reports whether
// the submission was still active.
func (rn *Runner) Cancel(id string) bool {
	rn.mu.Lock()
	cancel, ok := rn.active[id]
	rn.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Active returns the number of in-flight submissions.
func (rn *Runner) Active() int {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return len(rn.active)
}
