package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/commtamo10-tech/skatebaypublisher/internal/domain"
	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
)

const defaultPollInterval = 2 * time.Second

// Worker claims queued jobs and executes them one at a time on this node.
type Worker struct {
	jobs     domain.JobRepository
	runner   *Runner
	interval time.Duration
	logger   infra.Logger
}

// NewWorker builds a worker polling at the given interval.
func NewWorker(jobs domain.JobRepository, runner *Runner, interval time.Duration, logger infra.Logger) *Worker {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Worker{jobs: jobs, runner: runner, interval: interval, logger: logger}
}

// Run polls for queued jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := w.jobs.ClaimNext(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				w.logger.Error().Err(err).Msg("worker: failed to claim job")
			}
			if sleepErr := sleep(ctx, w.interval); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		w.runner.Execute(ctx, job)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
