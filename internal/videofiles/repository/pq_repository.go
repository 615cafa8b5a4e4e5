package repository

import (
	"context"
	"database/sql"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type videoRepo struct {
	db *sqlx.DB
}

func NewVideoRepo(db *sqlx.DB) videofiles.Repository {
	return &videoRepo{
		db: db,
	}
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit tx")
}

func rowsAffected(res sql.Result) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateVideo inserts the video and its queued job together.
func (v *videoRepo) CreateVideo(ctx context.Context, video *models.Video) (*models.Video, *models.TranscodeJob, error) {
	created := &models.Video{}
	job := &models.TranscodeJob{}
	err := withTx(ctx, v.db, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(
			ctx,
			createVideoQuery,
			video.ID,
			video.Title,
			video.Description,
			video.OriginalFilename,
			models.VideoStatusPending,
			video.Visibility,
			video.PageID,
		).StructScan(created); err != nil {
			return errors.Wrap(err, "videoRepo.CreateVideo.insertVideo")
		}
		if err := tx.QueryRowxContext(ctx, createJobQuery, created.ID).StructScan(job); err != nil {
			return errors.Wrap(err, "videoRepo.CreateVideo.insertJob")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return created, job, nil
}

func (v *videoRepo) GetVideos(ctx context.Context, pq *utils.Pagination) (*models.VideoList, error) {
	var totalCount int
	if err := v.db.GetContext(ctx, &totalCount, getTotalVideosQuery); err != nil {
		return nil, errors.Wrap(err, "videoRepo.GetVideos.count")
	}
	if totalCount == 0 {
		return &models.VideoList{
			Videos:   make([]*models.Video, 0),
			Page:     pq.GetPage(),
			PageSize: pq.GetSize(),
		}, nil
	}

	videos := make([]*models.Video, 0, pq.GetSize())
	if err := v.db.SelectContext(ctx, &videos, getVideosQuery, pq.GetOffset(), pq.GetLimit()); err != nil {
		return nil, errors.Wrap(err, "videoRepo.GetVideos.select")
	}
	return &models.VideoList{
		Videos:     videos,
		TotalCount: totalCount,
		TotalPages: utils.GetTotalPages(totalCount, pq.GetSize()),
		Page:       pq.GetPage(),
		PageSize:   pq.GetSize(),
		HasMore:    utils.GetHasMore(pq.GetPage(), totalCount, pq.GetSize()),
	}, nil
}

func (v *videoRepo) GetVideoByID(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	video := &models.Video{}
	if err := v.db.GetContext(ctx, video, getVideoByIDQuery, videoID); err != nil {
		return nil, errors.Wrap(err, "videoRepo.GetVideoByID")
	}
	return video, nil
}

func (v *videoRepo) UpdateVideo(ctx context.Context, video *models.Video) (*models.Video, error) {
	updated := &models.Video{}
	if err := v.db.QueryRowxContext(
		ctx,
		updateVideoQuery,
		video.Title,
		video.Description,
		video.Visibility,
		video.PageID,
		video.ID,
	).StructScan(updated); err != nil {
		return nil, errors.Wrap(err, "videoRepo.UpdateVideo")
	}
	return updated, nil
}

func (v *videoRepo) SetDuration(ctx context.Context, videoID uuid.UUID, seconds float64) error {
	res, err := v.db.ExecContext(ctx, setDurationQuery, seconds, videoID)
	if err != nil {
		return errors.Wrap(err, "videoRepo.SetDuration")
	}
	return errors.Wrap(rowsAffected(res), "videoRepo.SetDuration")
}

// DeleteVideo removes the row; variants, jobs and subtitles go with it.
func (v *videoRepo) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	res, err := v.db.ExecContext(ctx, deleteVideoQuery, videoID)
	if err != nil {
		return errors.Wrap(err, "videoRepo.DeleteVideo")
	}
	return errors.Wrap(rowsAffected(res), "videoRepo.DeleteVideo")
}

func (v *videoRepo) GetVariants(ctx context.Context, videoID uuid.UUID) ([]*models.Variant, error) {
	variants := make([]*models.Variant, 0)
	if err := v.db.SelectContext(ctx, &variants, getVariantsQuery, videoID); err != nil {
		return nil, errors.Wrap(err, "videoRepo.GetVariants")
	}
	return variants, nil
}

// UpsertVariant replaces the tier row on retry instead of adding a duplicate.
func (v *videoRepo) UpsertVariant(ctx context.Context, variant *models.Variant) (*models.Variant, error) {
	saved := &models.Variant{}
	if err := v.db.QueryRowxContext(
		ctx,
		upsertVariantQuery,
		variant.VideoID,
		variant.Quality,
		variant.Width,
		variant.Height,
		variant.Bitrate,
		variant.FilePath,
		variant.FileSizeBytes,
	).StructScan(saved); err != nil {
		return nil, errors.Wrap(err, "videoRepo.UpsertVariant")
	}
	return saved, nil
}

func (v *videoRepo) DeleteVariants(ctx context.Context, videoID uuid.UUID) error {
	if _, err := v.db.ExecContext(ctx, deleteVariantsQuery, videoID); err != nil {
		return errors.Wrap(err, "videoRepo.DeleteVariants")
	}
	return nil
}
