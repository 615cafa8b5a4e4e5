package videofiles

import (
	"context"
	"errors"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
)

var ErrJobInFlight = errors.New("a transcode job is already in flight for this video")

// JobQueue is the Redis-backed transcode queue. Delivery is at least once:
// a dequeued job stays in the processing list until it is acked or retried.
type JobQueue interface {
	Enqueue(ctx context.Context, job *models.EncodeJob) error
	Dequeue(ctx context.Context) (*models.EncodeJob, error)
	Ack(ctx context.Context, job *models.EncodeJob) error
	Retry(ctx context.Context, job *models.EncodeJob) (bool, error)
	Release(ctx context.Context, videoID string) error
	InFlight(ctx context.Context, videoID string) (bool, error)
	PromoteDue(ctx context.Context) (int, error)
	Recover(ctx context.Context) (int, error)

	SetProgress(ctx context.Context, videoID string, progress int, status models.JobStatus) error
	GetProgress(ctx context.Context, videoID string) (int, bool, error)
}
