package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/strand-cli/strand/internal/config"
	"github.com/strand-cli/strand/internal/util"
	"github.com/strand-cli/strand/pkg/confined"
	"github.com/strand-cli/strand/pkg/dispatch"
)

// Job describes one unit of confined work
type Job struct {
	// Name identifies the job in logs and output
	Name string

	// Steps is how many loop timer ticks the job performs
	Steps int

	// StepDelay is the timer interval between steps
	StepDelay time.Duration

	// FailAt makes the job fail at the given step; 0 means never
	FailAt int
}

// FromConfig converts configured jobs into harness jobs
func FromConfig(jobs []config.JobConfig) []Job {
	out := make([]Job, len(jobs))
	for i, j := range jobs {
		out[i] = Job{
			Name:      j.Name,
			Steps:     j.Steps,
			StepDelay: j.StepDelay,
			FailAt:    j.FailAt,
		}
	}
	return out
}

// ProgressFunc is called on the home loop thread after each completed step
type ProgressFunc func(job string, step, total int)

// Harness runs jobs on confined worker threads against a home dispatch loop
type Harness struct {
	jobs   []Job
	logger *slog.Logger
}

// New creates a harness for the given jobs
func New(jobs []Job, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harness{
		jobs:   jobs,
		logger: logger,
	}
}

// Run executes all jobs and blocks until every worker thread has exited and
// the home loop has drained.
func (h *Harness) Run(ctx context.Context) ([]Result, error) {
	return h.RunWithProgress(ctx, nil)
}

// RunWithProgress runs all jobs with progress reporting. The progressFn
// callback executes on the home loop thread, so it may touch home-confined
// state without further synchronization.
//
// Cancelling ctx shuts the home loop down early; the confined jobs themselves
// are not cancellable and run to completion, with their remaining progress
// updates dropped on the expected shutdown path.
func (h *Harness) RunWithProgress(ctx context.Context, progressFn ProgressFunc) ([]Result, error) {
	if len(h.jobs) == 0 {
		h.logger.Debug("no jobs to run")
		return []Result{}, nil
	}

	home := dispatch.New()
	homeDone := make(chan error, 1)
	go func() { homeDone <- home.Run() }()

	stop := context.AfterFunc(ctx, func() {
		h.logger.Info("run cancelled, shutting down home loop")
		_ = home.RequestShutdown(dispatch.PriorityHigh)
	})
	defer stop()

	h.logger.Info("starting jobs", "jobs", len(h.jobs))
	start := time.Now()

	results := make([]Result, len(h.jobs))
	g := new(errgroup.Group)
	for i, job := range h.jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = h.runJob(home, job, progressFn)
			if results[i].Err != nil {
				return util.WrapWorkerError(results[i].Worker, results[i].Err)
			}
			return nil
		})
	}
	err := g.Wait()

	// All workers have joined; an idle-priority shutdown lets progress
	// updates still queued on the home loop flush before it terminates
	_ = home.RequestShutdown(dispatch.PriorityIdle)
	<-homeDone

	h.logger.Info("jobs finished",
		"total", len(results),
		"successful", CountSuccessful(results),
		"failed", CountFailed(results),
		"duration", time.Since(start))

	return results, err
}

// runJob executes one job on its own confined worker thread. The job creates
// the thread-affine loop, schedules its step timer on it and pumps the loop
// itself; the executor's drain pass is a safety net for whatever is left.
func (h *Harness) runJob(home confined.HomeLoop, job Job, progressFn ProgressFunc) Result {
	res := Result{
		ID:  uuid.NewString(),
		Job: job.Name,
	}
	start := time.Now()

	res.Err = confined.Run(func(t *confined.Thread) error {
		res.Worker = t.Name()
		if job.Steps <= 0 {
			return nil
		}

		loop := t.Loop()
		var failErr error
		var tick func()
		tick = func() {
			res.Steps++
			h.publishProgress(home, job, res.Steps, progressFn)

			if job.FailAt > 0 && res.Steps >= job.FailAt {
				failErr = fmt.Errorf("job %q failed at step %d", job.Name, res.Steps)
				_ = loop.RequestShutdown(dispatch.PriorityIdle)
				return
			}
			if res.Steps >= job.Steps {
				_ = loop.RequestShutdown(dispatch.PriorityIdle)
				return
			}
			_ = loop.After(job.StepDelay, tick)
		}

		if err := loop.After(job.StepDelay, tick); err != nil {
			return err
		}
		if err := loop.Run(); err != nil {
			return err
		}
		return failErr
	})
	res.Duration = time.Since(start)

	if res.Err != nil {
		h.logger.Warn("job failed",
			"job", job.Name,
			"worker", res.Worker,
			"steps", res.Steps,
			"error", res.Err,
			"duration", res.Duration)
	} else {
		h.logger.Debug("job succeeded",
			"job", job.Name,
			"worker", res.Worker,
			"steps", res.Steps,
			"duration", res.Duration)
	}

	return res
}

// publishProgress marshals a progress update onto the home loop and waits
// for it. ErrLoopShutdown is the expected outcome while the home loop is
// tearing down and must never escalate beyond a log line.
func (h *Harness) publishProgress(home confined.HomeLoop, job Job, step int, progressFn ProgressFunc) {
	err := home.Invoke(func() {
		h.logger.Debug("progress", "job", job.Name, "step", step, "total", job.Steps)
		if progressFn != nil {
			progressFn(job.Name, step, job.Steps)
		}
	})
	if err == nil {
		return
	}
	if errors.Is(err, dispatch.ErrLoopShutdown) {
		h.logger.Debug("home loop shutting down, progress update dropped",
			"job", job.Name, "step", step)
		return
	}
	h.logger.Warn("progress update failed", "job", job.Name, "step", step, "error", err)
}
