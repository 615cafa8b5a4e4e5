package usecase

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/storage"
	"github.com/amankumarsingh77/video-gatekeeper/internal/token"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles/repository"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/httpErrors"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	uc     videofiles.UseCase
	videos *mockVideoRepo
	jobs   *mockJobRepo
	subs   *mockSubtitleRepo
	queue  videofiles.JobQueue
	store  storage.Storage
	redis  *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	signer, err := token.NewSigner("files-secret")
	require.NoError(t, err)
	store, err := storage.NewLocalStorage(t.TempDir(), "/files", signer)
	require.NoError(t, err)

	f := &fixture{
		videos: &mockVideoRepo{},
		jobs:   &mockJobRepo{},
		subs:   &mockSubtitleRepo{},
		queue:  repository.NewJobQueue(client, repository.QueueOptions{BlockTimeout: time.Second}),
		store:  store,
		redis:  mr,
	}
	cfg := &config.Config{Transcode: config.TranscodeConfig{MaxUploadMB: 1}}
	f.uc = NewVideoUseCase(cfg, f.videos, f.jobs, f.subs, f.queue, store, logger.NewNop())
	return f
}

func TestUploadVideoStoresEnqueuesAndDefaultsTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobID := uuid.New()

	var saved *models.Video
	f.videos.On("CreateVideo", ctx, mock.AnythingOfType("*models.Video")).
		Return(func(v *models.Video) *models.Video {
			saved = v
			created := *v
			created.Status = models.VideoStatusPending
			return &created
		}, &models.TranscodeJob{ID: jobID}, nil).Once()

	body := "fake video bytes"
	created, err := f.uc.UploadVideo(ctx, &models.VideoUploadInput{
		FileName: "../../holiday clip.mp4",
		FileSize: int64(len(body)),
		File:     strings.NewReader(body),
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "holiday clip", saved.Title)
	assert.Equal(t, "holiday clip.mp4", saved.OriginalFilename)
	assert.Equal(t, models.VisibilityPublic, saved.Visibility)
	assert.Equal(t, "/embed/"+saved.ID.String(), created.EmbedURL)

	ok, err := f.store.Exists(ctx, saved.OriginalKey())
	require.NoError(t, err)
	assert.True(t, ok)

	items, err := f.redis.List("transcode:jobs")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0], jobID.String())
	f.videos.AssertExpectations(t)
}

func TestUploadVideoRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.UploadVideo(ctx, &models.VideoUploadInput{FileName: "notes.txt", FileSize: 1, File: strings.NewReader("x")})
	assert.Equal(t, http.StatusBadRequest, httpErrors.ParseErrors(err).Status())

	_, err = f.uc.UploadVideo(ctx, &models.VideoUploadInput{FileName: "a.mp4", FileSize: 2 << 20, File: strings.NewReader("x")})
	assert.Equal(t, http.StatusRequestEntityTooLarge, httpErrors.ParseErrors(err).Status())

	_, err = f.uc.UploadVideo(ctx, &models.VideoUploadInput{FileName: "a.mp4", FileSize: 1, Visibility: "secret", File: strings.NewReader("x")})
	assert.Equal(t, http.StatusBadRequest, httpErrors.ParseErrors(err).Status())

	f.videos.AssertNotCalled(t, "CreateVideo", mock.Anything, mock.Anything)
}

func TestUploadVideoCleansUpWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var saved *models.Video
	f.videos.On("CreateVideo", ctx, mock.AnythingOfType("*models.Video")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*models.Video) }).
		Return(nil, nil, sql.ErrConnDone).Once()

	_, err := f.uc.UploadVideo(ctx, &models.VideoUploadInput{FileName: "a.mp4", FileSize: 1, File: strings.NewReader("x")})
	assert.ErrorIs(t, err, sql.ErrConnDone)

	ok, err := f.store.Exists(ctx, saved.OriginalKey())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRetryVideoOnlyForFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()

	f.videos.On("GetVideoByID", ctx, id).Return(&models.Video{ID: id, Status: models.VideoStatusReady}, nil).Once()
	_, err := f.uc.RetryVideo(ctx, id)
	assert.Equal(t, http.StatusConflict, httpErrors.ParseErrors(err).Status())

	failed := &models.Video{ID: id, Status: models.VideoStatusFailed, OriginalFilename: "in.mp4"}
	_, err = f.store.Put(ctx, failed.OriginalKey(), strings.NewReader("x"))
	require.NoError(t, err)
	jobID := uuid.New()
	f.videos.On("GetVideoByID", ctx, id).Return(failed, nil).Once()
	f.jobs.On("RequeueJob", ctx, id).Return(&models.TranscodeJob{ID: jobID, VideoID: id, Status: models.JobStatusQueued}, nil).Once()

	job, err := f.uc.RetryVideo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.True(t, f.redis.Exists("transcode:active:"+id.String()))

	f.videos.On("GetVideoByID", ctx, id).Return(failed, nil).Once()
	_, err = f.uc.RetryVideo(ctx, id)
	assert.Equal(t, http.StatusConflict, httpErrors.ParseErrors(err).Status(), "second retry while in flight")
	f.jobs.AssertNumberOfCalls(t, "RequeueJob", 1)
}

func TestUpdateVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()
	page := 4

	f.videos.On("GetVideoByID", ctx, id).Return(&models.Video{ID: id, Title: "old", Visibility: models.VisibilityPublic}, nil)
	f.videos.On("UpdateVideo", ctx, mock.MatchedBy(func(v *models.Video) bool {
		return v.Title == "new" && v.Visibility == models.VisibilityPageProtected && v.PageID != nil && *v.PageID == 4
	})).Return(&models.Video{ID: id, Title: "new"}, nil).Once()

	title, vis := "new", "page_protected"
	updated, err := f.uc.UpdateVideo(ctx, id, &models.VideoUpdateInput{Title: &title, Visibility: &vis, PageID: &page})
	require.NoError(t, err)
	assert.Equal(t, "/embed/"+id.String(), updated.EmbedURL)

	bad := "everyone"
	_, err = f.uc.UpdateVideo(ctx, id, &models.VideoUpdateInput{Visibility: &bad})
	assert.Equal(t, "invalid visibility", httpErrors.ParseErrors(err).(httpErrors.RestError).ErrError)
}

func TestDeleteVideoRemovesFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()
	key := storage.TierPrefix(id.String(), "720p") + "/playlist.m3u8"
	_, err := f.store.Put(ctx, key, strings.NewReader("#EXTM3U"))
	require.NoError(t, err)

	f.videos.On("DeleteVideo", ctx, id).Return(nil).Once()
	require.NoError(t, f.uc.DeleteVideo(ctx, id))

	ok, err := f.store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	f.videos.On("DeleteVideo", ctx, id).Return(sql.ErrNoRows).Once()
	assert.ErrorIs(t, f.uc.DeleteVideo(ctx, id), sql.ErrNoRows)
}

func TestGetStatusUsesLiveProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()

	f.videos.On("GetVideoByID", ctx, id).Return(&models.Video{ID: id, Status: models.VideoStatusProcessing}, nil)
	f.jobs.On("GetJob", ctx, id).Return(&models.TranscodeJob{VideoID: id, Progress: 20}, nil)
	f.videos.On("GetVariants", ctx, id).Return([]*models.Variant{}, nil)
	require.NoError(t, f.queue.SetProgress(ctx, id.String(), 45, models.JobStatusProcessing))

	info, err := f.uc.GetStatus(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, info.LiveProgress)
	assert.Equal(t, 45, *info.LiveProgress)
	assert.Equal(t, 20, info.Job.Progress)
}

func TestUploadSubtitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()

	f.videos.On("GetVideoByID", ctx, id).Return(&models.Video{ID: id}, nil)
	f.subs.On("CreateSubtitle", ctx, mock.MatchedBy(func(s *models.Subtitle) bool {
		return s.Language == "en" && strings.HasPrefix(s.FilePath, id.String()+"/subtitles/en_") && s.IsDefault
	})).Return(&models.Subtitle{ID: uuid.New(), Language: "en"}, nil).Once()

	_, err := f.uc.UploadSubtitle(ctx, id, &models.SubtitleUploadInput{
		Language: "EN", Label: "English", IsDefault: true, FileName: "en.vtt", File: strings.NewReader("WEBVTT\n"),
	})
	require.NoError(t, err)

	_, err = f.uc.UploadSubtitle(ctx, id, &models.SubtitleUploadInput{
		Language: "en", Label: "English", FileName: "en.srt", File: strings.NewReader("1"),
	})
	assert.Equal(t, http.StatusBadRequest, httpErrors.ParseErrors(err).Status())

	_, err = f.uc.UploadSubtitle(ctx, id, &models.SubtitleUploadInput{
		Language: "../x", Label: "bad", FileName: "x.vtt", File: strings.NewReader("WEBVTT"),
	})
	assert.Equal(t, http.StatusBadRequest, httpErrors.ParseErrors(err).Status())
	f.subs.AssertExpectations(t)
}

func TestGetOriginalURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()
	video := &models.Video{ID: id, Status: models.VideoStatusReady, OriginalFilename: "in.mp4"}

	f.videos.On("GetVideoByID", ctx, id).Return(video, nil).Once()
	_, err := f.uc.GetOriginalURL(ctx, id)
	assert.Equal(t, http.StatusNotFound, httpErrors.ParseErrors(err).Status())

	_, err = f.store.Put(ctx, video.OriginalKey(), strings.NewReader("x"))
	require.NoError(t, err)
	f.videos.On("GetVideoByID", ctx, id).Return(video, nil).Once()
	link, err := f.uc.GetOriginalURL(ctx, id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "/files/"+id.String()+"/original/in.mp4?"))
	assert.Contains(t, link.URL, "sig=")
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), link.ExpiresAt, time.Minute)
}
