package worker

import (
	"context"
	"runtime/debug"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/pkg/errors"
)

// handle runs one dequeued job and settles it on the queue. A panic inside
// the pipeline is turned into a job failure.
func (w *Worker) handle(ctx context.Context, job *models.EncodeJob) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("worker panic: %v", r)
			w.logger.Errorf("video_id=%s %v\n%s", job.VideoID, err, debug.Stack())
			w.orchestrator.MarkFailed(ctx, job, err)
			w.settle(ctx, job, err)
		}
	}()
	w.settle(ctx, job, w.orchestrator.Run(ctx, job))
}

func (w *Worker) settle(ctx context.Context, job *models.EncodeJob, runErr error) {
	if runErr == nil || errors.Is(runErr, ErrInvalidJob) || errors.Is(runErr, ErrNoVariants) {
		switch {
		case errors.Is(runErr, ErrInvalidJob):
			w.logger.Errorf("dropping job_id=%s: %v", job.JobID, runErr)
		case runErr != nil:
			w.logger.Errorf("video_id=%s failed without retry: %v", job.VideoID, runErr)
		}
		if err := w.queue.Ack(ctx, job); err != nil {
			w.logger.Errorf("ack job_id=%s: %v", job.JobID, err)
		}
		return
	}

	retried, err := w.queue.Retry(ctx, job)
	switch {
	case err != nil:
		w.logger.Errorf("schedule retry for job_id=%s: %v", job.JobID, err)
	case retried:
		w.logger.Warnf("video_id=%s attempt %d failed, retry scheduled", job.VideoID, job.Attempt+1)
	default:
		w.logger.Errorf("video_id=%s giving up after %d attempts: %v", job.VideoID, job.Attempt+1, runErr)
	}
}
