package stream

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	uuid "github.com/satori/go.uuid"

	"github.com/streamql/streamql/checkpoint"
)

// RunFunc is the shape every executor built by sql/rowexec satisfies;
// stream doesn't import rowexec (that would cycle back through
// checkpoint/stream), so Job is written against this structurally
// identical, unnamed-at-the-call-site function type instead.
type RunFunc func(ctx context.Context) <-chan Result

// Job supervises one running streaming query: it drains the executor's
// result channel, logs lifecycle events the way the teacher's server
// package logs connection lifecycle, and on Stop cancels the run and
// waits for both the executor goroutine and (if any) the checkpoint
// ticker goroutine to exit, merging their errors.
type Job struct {
	ID     uuid.UUID
	cancel context.CancelFunc
	// done is closed once both goroutines have exited; err is set before
	// that, so every Stop and Wait caller observes the same outcome.
	done chan struct{}
	err  error
	log  *logrus.Entry
}

// Run starts run in the background. If svc is non-nil, a goroutine
// also ticks a new barrier every interval until the job's context is
// cancelled — the continuous-checkpoint behavior a streaming query
// needs; a nil svc runs the executor with no checkpoint ticker.
func Run(ctx context.Context, run RunFunc, svc *checkpoint.BarrierService, interval time.Duration) *Job {
	id := uuid.NewV4()
	runCtx, cancel := context.WithCancel(ctx)
	log := logrus.WithField("job_id", id.String())

	execErr := make(chan error, 1)
	go func() {
		log.Info("job started")
		var runErr error
		for res := range run(runCtx) {
			if res.Err != nil {
				runErr = res.Err
				break
			}
		}
		execErr <- runErr
	}()

	var tickErr chan error
	if svc != nil {
		tickErr = make(chan error, 1)
		go func() {
			// Emit an initial barrier immediately, then alternate
			// collect -> sleep(interval) -> emit, so two epochs are
			// never in flight at once.
			epoch := svc.SendBarrier()
			for {
				// CollectBarrier returning a context error means Stop()
				// cancelled mid-fan-out (an operator bailed on ctx.Done()
				// before forwarding the barrier downstream, so the epoch
				// never drains) — an expected shutdown path, not a job
				// failure.
				if err := svc.CollectBarrier(runCtx, epoch); err != nil {
					tickErr <- nil
					return
				}
				select {
				case <-runCtx.Done():
					tickErr <- nil
					return
				case <-time.After(interval):
				}
				epoch = svc.SendBarrier()
			}
		}()
	}

	job := &Job{ID: id, cancel: cancel, done: make(chan struct{}), log: log}
	go func() {
		defer close(job.done)
		var merr *multierror.Error
		if err := <-execErr; err != nil {
			merr = multierror.Append(merr, err)
		}
		if tickErr != nil {
			if err := <-tickErr; err != nil {
				merr = multierror.Append(merr, err)
			}
		}
		if merr != nil {
			log.WithError(merr).Warn("job stopped with error")
			job.err = merr.ErrorOrNil()
			return
		}
		log.Info("job finished")
	}()

	return job
}

// Stop cancels the job's context and waits for it to fully unwind,
// returning any aggregated execution/checkpoint error.
func (j *Job) Stop() error {
	j.log.Info("job stop requested")
	j.cancel()
	<-j.done
	return j.err
}

// Wait blocks until the job's goroutines have exited and returns the
// aggregated error. Without a barrier service that happens when the
// executor stream ends; with one, the checkpoint ticker keeps running
// until the job's context is cancelled (Stop, or the parent ctx).
func (j *Job) Wait() error {
	<-j.done
	return j.err
}
