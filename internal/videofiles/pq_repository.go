package videofiles

import (
	"context"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"github.com/google/uuid"
)

type Repository interface {
	CreateVideo(ctx context.Context, video *models.Video) (*models.Video, *models.TranscodeJob, error)
	GetVideos(ctx context.Context, pq *utils.Pagination) (*models.VideoList, error)
	GetVideoByID(ctx context.Context, videoID uuid.UUID) (*models.Video, error)
	UpdateVideo(ctx context.Context, video *models.Video) (*models.Video, error)
	SetDuration(ctx context.Context, videoID uuid.UUID, seconds float64) error
	DeleteVideo(ctx context.Context, videoID uuid.UUID) error

	GetVariants(ctx context.Context, videoID uuid.UUID) ([]*models.Variant, error)
	UpsertVariant(ctx context.Context, variant *models.Variant) (*models.Variant, error)
	DeleteVariants(ctx context.Context, videoID uuid.UUID) error
}

type JobRepository interface {
	GetJob(ctx context.Context, videoID uuid.UUID) (*models.TranscodeJob, error)
	ClaimJob(ctx context.Context, videoID uuid.UUID) (*models.TranscodeJob, error)
	UpdateProgress(ctx context.Context, videoID uuid.UUID, progress int) error
	CompleteJob(ctx context.Context, videoID uuid.UUID) error
	FailJob(ctx context.Context, videoID uuid.UUID, message string) error
	RequeueJob(ctx context.Context, videoID uuid.UUID) (*models.TranscodeJob, error)
}

type SubtitleRepository interface {
	CreateSubtitle(ctx context.Context, sub *models.Subtitle) (*models.Subtitle, error)
	GetSubtitles(ctx context.Context, videoID uuid.UUID) ([]*models.Subtitle, error)
	GetSubtitle(ctx context.Context, videoID, subID uuid.UUID) (*models.Subtitle, error)
	SetDefaultSubtitle(ctx context.Context, videoID, subID uuid.UUID) error
	DeleteSubtitle(ctx context.Context, videoID, subID uuid.UUID) error
}
