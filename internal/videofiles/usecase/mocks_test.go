package usecase

import (
	"context"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockVideoRepo struct {
	mock.Mock
}

func (m *mockVideoRepo) CreateVideo(ctx context.Context, video *models.Video) (*models.Video, *models.TranscodeJob, error) {
	args := m.Called(ctx, video)
	var v *models.Video
	switch r := args.Get(0).(type) {
	case func(*models.Video) *models.Video:
		v = r(video)
	case *models.Video:
		v = r
	}
	j, _ := args.Get(1).(*models.TranscodeJob)
	return v, j, args.Error(2)
}

func (m *mockVideoRepo) GetVideos(ctx context.Context, pq *utils.Pagination) (*models.VideoList, error) {
	args := m.Called(ctx, pq)
	l, _ := args.Get(0).(*models.VideoList)
	return l, args.Error(1)
}

func (m *mockVideoRepo) GetVideoByID(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	args := m.Called(ctx, videoID)
	v, _ := args.Get(0).(*models.Video)
	return v, args.Error(1)
}

func (m *mockVideoRepo) UpdateVideo(ctx context.Context, video *models.Video) (*models.Video, error) {
	args := m.Called(ctx, video)
	v, _ := args.Get(0).(*models.Video)
	return v, args.Error(1)
}

func (m *mockVideoRepo) SetDuration(ctx context.Context, videoID uuid.UUID, seconds float64) error {
	return m.Called(ctx, videoID, seconds).Error(0)
}

func (m *mockVideoRepo) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	return m.Called(ctx, videoID).Error(0)
}

func (m *mockVideoRepo) GetVariants(ctx context.Context, videoID uuid.UUID) ([]*models.Variant, error) {
	args := m.Called(ctx, videoID)
	v, _ := args.Get(0).([]*models.Variant)
	return v, args.Error(1)
}

func (m *mockVideoRepo) UpsertVariant(ctx context.Context, variant *models.Variant) (*models.Variant, error) {
	args := m.Called(ctx, variant)
	v, _ := args.Get(0).(*models.Variant)
	return v, args.Error(1)
}

func (m *mockVideoRepo) DeleteVariants(ctx context.Context, videoID uuid.UUID) error {
	return m.Called(ctx, videoID).Error(0)
}

type mockJobRepo struct {
	mock.Mock
}

func (m *mockJobRepo) GetJob(ctx context.Context, videoID uuid.UUID) (*models.TranscodeJob, error) {
	args := m.Called(ctx, videoID)
	j, _ := args.Get(0).(*models.TranscodeJob)
	return j, args.Error(1)
}

func (m *mockJobRepo) ClaimJob(ctx context.Context, videoID uuid.UUID) (*models.TranscodeJob, error) {
	args := m.Called(ctx, videoID)
	j, _ := args.Get(0).(*models.TranscodeJob)
	return j, args.Error(1)
}

func (m *mockJobRepo) UpdateProgress(ctx context.Context, videoID uuid.UUID, progress int) error {
	return m.Called(ctx, videoID, progress).Error(0)
}

func (m *mockJobRepo) CompleteJob(ctx context.Context, videoID uuid.UUID) error {
	return m.Called(ctx, videoID).Error(0)
}

func (m *mockJobRepo) FailJob(ctx context.Context, videoID uuid.UUID, message string) error {
	return m.Called(ctx, videoID, message).Error(0)
}

func (m *mockJobRepo) RequeueJob(ctx context.Context, videoID uuid.UUID) (*models.TranscodeJob, error) {
	args := m.Called(ctx, videoID)
	j, _ := args.Get(0).(*models.TranscodeJob)
	return j, args.Error(1)
}

type mockSubtitleRepo struct {
	mock.Mock
}

func (m *mockSubtitleRepo) CreateSubtitle(ctx context.Context, sub *models.Subtitle) (*models.Subtitle, error) {
	args := m.Called(ctx, sub)
	s, _ := args.Get(0).(*models.Subtitle)
	return s, args.Error(1)
}

func (m *mockSubtitleRepo) GetSubtitles(ctx context.Context, videoID uuid.UUID) ([]*models.Subtitle, error) {
	args := m.Called(ctx, videoID)
	s, _ := args.Get(0).([]*models.Subtitle)
	return s, args.Error(1)
}

func (m *mockSubtitleRepo) GetSubtitle(ctx context.Context, videoID, subID uuid.UUID) (*models.Subtitle, error) {
	args := m.Called(ctx, videoID, subID)
	s, _ := args.Get(0).(*models.Subtitle)
	return s, args.Error(1)
}

func (m *mockSubtitleRepo) SetDefaultSubtitle(ctx context.Context, videoID, subID uuid.UUID) error {
	return m.Called(ctx, videoID, subID).Error(0)
}

func (m *mockSubtitleRepo) DeleteSubtitle(ctx context.Context, videoID, subID uuid.UUID) error {
	return m.Called(ctx, videoID, subID).Error(0)
}
