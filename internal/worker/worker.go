package worker

import (
	"context"
	"time"

	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// Worker pulls encode jobs off the queue with a fixed number of goroutines,
// one job per goroutine at a time.
type Worker struct {
	cfg          *config.Config
	logger       logger.Logger
	queue        videofiles.JobQueue
	orchestrator *Orchestrator
	cpuBelow     func(ctx context.Context, maxUsage float64) (bool, float64, error)
}

func NewWorker(cfg *config.Config, logger logger.Logger, queue videofiles.JobQueue, orchestrator *Orchestrator) *Worker {
	return &Worker{
		cfg:          cfg,
		logger:       logger,
		queue:        queue,
		orchestrator: orchestrator,
		cpuBelow:     utils.CPUBelow,
	}
}

func (w *Worker) pollInterval() time.Duration {
	if w.cfg.Worker.PollInterval > 0 {
		return w.cfg.Worker.PollInterval
	}
	return 5 * time.Second
}

// Run blocks until ctx is cancelled and every in-flight job has finished.
// Jobs left in the processing list by a previous crash are requeued first.
func (w *Worker) Run(ctx context.Context) error {
	recovered, err := w.queue.Recover(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		w.logger.Infof("requeued %d jobs left over from a previous run", recovered)
	}

	count := w.cfg.Worker.WorkerCount
	if count < 1 {
		count = 1
	}
	w.logger.Infof("starting %d workers", count)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.promote(gctx)
		return nil
	})
	for i := 0; i < count; i++ {
		id := i
		g.Go(func() error {
			w.loop(gctx, id)
			return nil
		})
	}
	err = g.Wait()
	w.logger.Info("workers stopped")
	return err
}

// promote moves delayed retries back onto the queue once their backoff ends.
func (w *Worker) promote(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval())
	defer ticker.Stop()
	for {
		moved, err := w.queue.PromoteDue(ctx)
		if err != nil && ctx.Err() == nil {
			w.logger.Warnf("promote delayed jobs: %v", err)
		}
		if moved > 0 {
			w.logger.Infof("promoted %d delayed jobs", moved)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) loop(ctx context.Context, id int) {
	for ctx.Err() == nil {
		ok, usage, err := w.cpuBelow(ctx, w.cfg.Worker.MaxCPUUsage)
		if err != nil {
			w.logger.Warnf("worker %d cpu check: %v", id, err)
		} else if !ok {
			w.logger.Infof("worker %d pausing, cpu usage %.1f%%", id, usage)
			w.wait(ctx)
			continue
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Errorf("worker %d dequeue: %v", id, err)
			w.wait(ctx)
			continue
		}
		if job == nil {
			continue
		}
		// a started job runs to the end even during shutdown
		w.handle(context.WithoutCancel(ctx), job)
	}
}

func (w *Worker) wait(ctx context.Context) {
	t := time.NewTimer(w.pollInterval())
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
