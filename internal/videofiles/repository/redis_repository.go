package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const (
	defaultQueueKey   = "transcode:jobs"
	delayedKey        = "transcode:delayed"
	activeKeyPrefix   = "transcode:active:"
	progressKeyPrefix = "transcode:progress:"
	activeTTL         = 6 * time.Hour
	progressTTL       = 24 * time.Hour
)

type QueueOptions struct {
	Key          string
	MaxAttempts  int
	RetryDelay   time.Duration
	BlockTimeout time.Duration
}

type jobQueue struct {
	redisClient *redis.Client
	opts        QueueOptions
	now         func() time.Time
}

func NewJobQueue(redisClient *redis.Client, opts QueueOptions) videofiles.JobQueue {
	if opts.Key == "" {
		opts.Key = defaultQueueKey
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Minute
	}
	if opts.BlockTimeout <= 0 {
		opts.BlockTimeout = 5 * time.Second
	}
	return &jobQueue{
		redisClient: redisClient,
		opts:        opts,
		now:         time.Now,
	}
}

func (q *jobQueue) processingKey() string {
	return q.opts.Key + ":processing"
}

func activeKey(videoID string) string {
	return activeKeyPrefix + videoID
}

func progressKey(videoID string) string {
	return progressKeyPrefix + videoID
}

// Enqueue pushes the job unless one is already active for the same video.
func (q *jobQueue) Enqueue(ctx context.Context, job *models.EncodeJob) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = q.now().UTC()
	}
	ok, err := q.redisClient.SetNX(ctx, activeKey(job.VideoID), job.JobID, activeTTL).Result()
	if err != nil {
		return errors.Wrap(err, "jobQueue.Enqueue.setnx")
	}
	if !ok {
		return videofiles.ErrJobInFlight
	}
	if err = q.redisClient.LPush(ctx, q.opts.Key, job).Err(); err != nil {
		q.redisClient.Del(ctx, activeKey(job.VideoID))
		return errors.Wrap(err, "jobQueue.Enqueue.lpush")
	}
	return nil
}

// Dequeue blocks up to BlockTimeout and returns nil when nothing arrived.
func (q *jobQueue) Dequeue(ctx context.Context) (*models.EncodeJob, error) {
	raw, err := q.redisClient.BRPopLPush(ctx, q.opts.Key, q.processingKey(), q.opts.BlockTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "jobQueue.Dequeue")
	}
	job := &models.EncodeJob{}
	if err = job.UnmarshalBinary([]byte(raw)); err != nil {
		q.redisClient.LRem(ctx, q.processingKey(), 1, raw)
		return nil, errors.Wrap(err, "jobQueue.Dequeue.decode")
	}
	return job, nil
}

// Ack drops the job from the processing list and frees the video for new
// submissions.
func (q *jobQueue) Ack(ctx context.Context, job *models.EncodeJob) error {
	_, err := q.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey(), 1, job)
		pipe.Del(ctx, activeKey(job.VideoID))
		return nil
	})
	return errors.Wrap(err, "jobQueue.Ack")
}

// Retry schedules another attempt with linear backoff. It returns false once
// the job has used all its attempts; the job is then released.
func (q *jobQueue) Retry(ctx context.Context, job *models.EncodeJob) (bool, error) {
	if job.Attempt+1 >= q.opts.MaxAttempts {
		return false, q.Ack(ctx, job)
	}

	next := *job
	next.Attempt++
	payload, err := next.MarshalBinary()
	if err != nil {
		return false, errors.Wrap(err, "jobQueue.Retry.encode")
	}
	due := q.now().Add(time.Duration(next.Attempt) * q.opts.RetryDelay)

	_, err = q.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey(), 1, job)
		pipe.ZAdd(ctx, delayedKey, &redis.Z{Score: float64(due.Unix()), Member: string(payload)})
		return nil
	})
	if err != nil {
		return false, errors.Wrap(err, "jobQueue.Retry")
	}
	return true, nil
}

func (q *jobQueue) Release(ctx context.Context, videoID string) error {
	return errors.Wrap(q.redisClient.Del(ctx, activeKey(videoID)).Err(), "jobQueue.Release")
}

// InFlight reports whether videoID still holds the active lock. Delayed
// retries keep it.
func (q *jobQueue) InFlight(ctx context.Context, videoID string) (bool, error) {
	n, err := q.redisClient.Exists(ctx, activeKey(videoID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "jobQueue.InFlight")
	}
	return n > 0, nil
}

// PromoteDue moves delayed jobs whose backoff has passed onto the main list.
func (q *jobQueue) PromoteDue(ctx context.Context) (int, error) {
	due, err := q.redisClient.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().Unix(), 10),
	}).Result()
	if err != nil {
		return 0, errors.Wrap(err, "jobQueue.PromoteDue.range")
	}
	moved := 0
	for _, member := range due {
		removed, err := q.redisClient.ZRem(ctx, delayedKey, member).Result()
		if err != nil {
			return moved, errors.Wrap(err, "jobQueue.PromoteDue.zrem")
		}
		// another promoter won the race
		if removed == 0 {
			continue
		}
		if err = q.redisClient.LPush(ctx, q.opts.Key, member).Err(); err != nil {
			return moved, errors.Wrap(err, "jobQueue.PromoteDue.lpush")
		}
		moved++
	}
	return moved, nil
}

// Recover puts jobs left in the processing list by a dead worker back on the
// queue. Only safe before any worker of the deployment starts dequeuing.
func (q *jobQueue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.redisClient.RPopLPush(ctx, q.processingKey(), q.opts.Key).Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, errors.Wrap(err, "jobQueue.Recover")
		}
		moved++
	}
}

func (q *jobQueue) SetProgress(ctx context.Context, videoID string, progress int, status models.JobStatus) error {
	key := progressKey(videoID)
	_, err := q.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "progress", progress, "status", string(status))
		pipe.Expire(ctx, key, progressTTL)
		return nil
	})
	return errors.Wrap(err, "jobQueue.SetProgress")
}

func (q *jobQueue) GetProgress(ctx context.Context, videoID string) (int, bool, error) {
	val, err := q.redisClient.HGet(ctx, progressKey(videoID), "progress").Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "jobQueue.GetProgress")
	}
	p, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, errors.Wrap(err, "jobQueue.GetProgress.parse")
	}
	return p, true, nil
}
