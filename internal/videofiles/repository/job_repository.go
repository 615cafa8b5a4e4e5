package repository

import (
	"context"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var ErrNoVariants = errors.New("video has no variants")

type jobRepo struct {
	db *sqlx.DB
}

func NewJobRepo(db *sqlx.DB) videofiles.JobRepository {
	return &jobRepo{db: db}
}

func (j *jobRepo) GetJob(ctx context.Context, videoID uuid.UUID) (*models.TranscodeJob, error) {
	job := &models.TranscodeJob{}
	if err := j.db.GetContext(ctx, job, getJobQuery, videoID); err != nil {
		return nil, errors.Wrap(err, "jobRepo.GetJob")
	}
	return job, nil
}

// ClaimJob moves the job and its video to processing and bumps attempts.
func (j *jobRepo) ClaimJob(ctx context.Context, videoID uuid.UUID) (*models.TranscodeJob, error) {
	job := &models.TranscodeJob{}
	err := withTx(ctx, j.db, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, claimJobQuery, videoID).StructScan(job); err != nil {
			return errors.Wrap(err, "jobRepo.ClaimJob.job")
		}
		res, err := tx.ExecContext(ctx, setVideoStatusQuery, models.VideoStatusProcessing, videoID)
		if err != nil {
			return errors.Wrap(err, "jobRepo.ClaimJob.video")
		}
		return errors.Wrap(rowsAffected(res), "jobRepo.ClaimJob.video")
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateProgress never moves progress backwards.
func (j *jobRepo) UpdateProgress(ctx context.Context, videoID uuid.UUID, progress int) error {
	if _, err := j.db.ExecContext(ctx, updateProgressQuery, progress, videoID); err != nil {
		return errors.Wrap(err, "jobRepo.UpdateProgress")
	}
	return nil
}

// CompleteJob marks the job completed and the video ready. It refuses when
// no variant row exists.
func (j *jobRepo) CompleteJob(ctx context.Context, videoID uuid.UUID) error {
	return withTx(ctx, j.db, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, countVariantsQuery, videoID); err != nil {
			return errors.Wrap(err, "jobRepo.CompleteJob.count")
		}
		if count == 0 {
			return ErrNoVariants
		}
		if _, err := tx.ExecContext(ctx, completeJobQuery, videoID); err != nil {
			return errors.Wrap(err, "jobRepo.CompleteJob.job")
		}
		if _, err := tx.ExecContext(ctx, setVideoStatusQuery, models.VideoStatusReady, videoID); err != nil {
			return errors.Wrap(err, "jobRepo.CompleteJob.video")
		}
		return nil
	})
}

// FailJob marks both records failed and drops any partial variants.
func (j *jobRepo) FailJob(ctx context.Context, videoID uuid.UUID, message string) error {
	return withTx(ctx, j.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, failJobQuery, models.TruncateError(message), videoID); err != nil {
			return errors.Wrap(err, "jobRepo.FailJob.job")
		}
		if _, err := tx.ExecContext(ctx, setVideoStatusQuery, models.VideoStatusFailed, videoID); err != nil {
			return errors.Wrap(err, "jobRepo.FailJob.video")
		}
		if _, err := tx.ExecContext(ctx, deleteVariantsQuery, videoID); err != nil {
			return errors.Wrap(err, "jobRepo.FailJob.variants")
		}
		return nil
	})
}

// RequeueJob resets the job to queued and the video to pending.
func (j *jobRepo) RequeueJob(ctx context.Context, videoID uuid.UUID) (*models.TranscodeJob, error) {
	job := &models.TranscodeJob{}
	err := withTx(ctx, j.db, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, requeueJobQuery, videoID).StructScan(job); err != nil {
			return errors.Wrap(err, "jobRepo.RequeueJob.job")
		}
		if _, err := tx.ExecContext(ctx, setVideoStatusQuery, models.VideoStatusPending, videoID); err != nil {
			return errors.Wrap(err, "jobRepo.RequeueJob.video")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}
