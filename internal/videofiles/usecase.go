package videofiles

import (
	"context"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"github.com/google/uuid"
)

type UseCase interface {
	UploadVideo(ctx context.Context, input *models.VideoUploadInput) (*models.Video, error)
	GetVideo(ctx context.Context, videoID uuid.UUID) (*models.Video, error)
	ListVideos(ctx context.Context, pagination *utils.Pagination) (*models.VideoList, error)
	GetStatus(ctx context.Context, videoID uuid.UUID) (*models.VideoStatusInfo, error)
	UpdateVideo(ctx context.Context, videoID uuid.UUID, input *models.VideoUpdateInput) (*models.Video, error)
	DeleteVideo(ctx context.Context, videoID uuid.UUID) error
	RetryVideo(ctx context.Context, videoID uuid.UUID) (*models.TranscodeJob, error)
	GetOriginalURL(ctx context.Context, videoID uuid.UUID) (*models.DownloadLink, error)

	UploadSubtitle(ctx context.Context, videoID uuid.UUID, input *models.SubtitleUploadInput) (*models.Subtitle, error)
	ListSubtitles(ctx context.Context, videoID uuid.UUID) ([]*models.Subtitle, error)
	SetDefaultSubtitle(ctx context.Context, videoID, subID uuid.UUID) error
	DeleteSubtitle(ctx context.Context, videoID, subID uuid.UUID) error
}
