package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/storage"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/httpErrors"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const originalLinkTTL = 15 * time.Minute

var videoExtensions = map[string]bool{
	".mp4": true, ".m4v": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
}

var languageTag = regexp.MustCompile(`^[A-Za-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)

type videoFileUC struct {
	cfg       *config.Config
	videoRepo videofiles.Repository
	jobRepo   videofiles.JobRepository
	subRepo   videofiles.SubtitleRepository
	queue     videofiles.JobQueue
	store     storage.Storage
	logger    logger.Logger
}

func NewVideoUseCase(
	cfg *config.Config,
	videoRepo videofiles.Repository,
	jobRepo videofiles.JobRepository,
	subRepo videofiles.SubtitleRepository,
	queue videofiles.JobQueue,
	store storage.Storage,
	log logger.Logger,
) videofiles.UseCase {
	return &videoFileUC{
		cfg:       cfg,
		videoRepo: videoRepo,
		jobRepo:   jobRepo,
		subRepo:   subRepo,
		queue:     queue,
		store:     store,
		logger:    log,
	}
}

// cleanFileName keeps the base name of an uploaded file and rejects names
// that cannot be stored as a single key segment.
func cleanFileName(name string, allowed map[string]bool) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", httpErrors.NewBadRequestError("No filename provided")
	}
	if allowed != nil && !allowed[strings.ToLower(path.Ext(base))] {
		return "", httpErrors.NewBadRequestError("unsupported file type " + path.Ext(base))
	}
	return base, nil
}

func (v *videoFileUC) UploadVideo(ctx context.Context, input *models.VideoUploadInput) (*models.Video, error) {
	if input == nil {
		return nil, httpErrors.NewBadRequestError("empty upload")
	}
	fileName, err := cleanFileName(input.FileName, videoExtensions)
	if err != nil {
		return nil, err
	}
	input.FileName = fileName
	if strings.TrimSpace(input.Title) == "" {
		input.Title = strings.TrimSuffix(fileName, path.Ext(fileName))
	}
	if err = utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	if limit := v.cfg.Transcode.MaxUploadMB << 20; limit > 0 && input.FileSize > limit {
		return nil, httpErrors.NewRestError(413, "file exceeds the upload limit", nil)
	}

	visibility := models.VisibilityPublic
	if input.Visibility != "" {
		if visibility, err = models.ParseVisibility(input.Visibility); err != nil {
			return nil, err
		}
	}

	video := &models.Video{
		ID:               uuid.New(),
		Title:            input.Title,
		OriginalFilename: fileName,
		Visibility:       visibility,
		PageID:           input.PageID,
	}
	if input.Description != "" {
		video.Description = &input.Description
	}

	key := video.OriginalKey()
	size, err := v.store.Put(ctx, key, input.File)
	if err != nil {
		return nil, errors.Wrap(err, "videoFileUC.UploadVideo.Put")
	}
	v.logger.Infof("Saved video %s to %s (%d bytes)", video.ID, key, size)

	created, job, err := v.videoRepo.CreateVideo(ctx, video)
	if err != nil {
		if delErr := v.store.DeletePrefix(ctx, storage.VideoPrefix(video.ID.String())); delErr != nil {
			v.logger.Warnf("UploadVideo: cleanup of %s failed: %v", video.ID, delErr)
		}
		return nil, err
	}

	if err = v.enqueue(ctx, created, job); err != nil {
		return nil, err
	}
	return created.WithEmbedURL(), nil
}

func (v *videoFileUC) enqueue(ctx context.Context, video *models.Video, job *models.TranscodeJob) error {
	err := v.queue.Enqueue(ctx, &models.EncodeJob{
		JobID:    job.ID.String(),
		VideoID:  video.ID.String(),
		InputKey: video.OriginalKey(),
	})
	if errors.Is(err, videofiles.ErrJobInFlight) {
		return httpErrors.NewConflictError(err.Error())
	}
	if err != nil {
		v.logger.Errorf("enqueue transcode job for %s: %v", video.ID, err)
		if failErr := v.jobRepo.FailJob(ctx, video.ID, "enqueue failed: "+err.Error()); failErr != nil {
			v.logger.Errorf("mark job failed for %s: %v", video.ID, failErr)
		}
		return errors.Wrap(err, "videoFileUC.enqueue")
	}
	v.logger.Infof("Queued transcode job %s for video %s", job.ID, video.ID)
	return nil
}

func (v *videoFileUC) GetVideo(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	video, err := v.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return video.WithEmbedURL(), nil
}

func (v *videoFileUC) ListVideos(ctx context.Context, pagination *utils.Pagination) (*models.VideoList, error) {
	list, err := v.videoRepo.GetVideos(ctx, pagination)
	if err != nil {
		return nil, err
	}
	for _, video := range list.Videos {
		video.WithEmbedURL()
	}
	return list, nil
}

// GetStatus combines the persisted job with the live progress mirrored in
// Redis, which may be ahead of the last database write.
func (v *videoFileUC) GetStatus(ctx context.Context, videoID uuid.UUID) (*models.VideoStatusInfo, error) {
	video, err := v.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	info := &models.VideoStatusInfo{VideoID: video.ID, Status: video.Status}

	job, err := v.jobRepo.GetJob(ctx, videoID)
	switch {
	case err == nil:
		info.Job = job
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	if video.Status == models.VideoStatusProcessing {
		if p, ok, err := v.queue.GetProgress(ctx, videoID.String()); err != nil {
			v.logger.Warnf("GetStatus: live progress for %s: %v", videoID, err)
		} else if ok {
			info.LiveProgress = &p
		}
	}

	if info.Variants, err = v.videoRepo.GetVariants(ctx, videoID); err != nil {
		return nil, err
	}
	return info, nil
}

func (v *videoFileUC) UpdateVideo(ctx context.Context, videoID uuid.UUID, input *models.VideoUpdateInput) (*models.Video, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	video, err := v.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		video.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		video.Description = input.Description
	}
	if input.Visibility != nil {
		vis, err := models.ParseVisibility(*input.Visibility)
		if err != nil {
			return nil, err
		}
		video.Visibility = vis
	}
	if input.ClearPageID {
		video.PageID = nil
	} else if input.PageID != nil {
		video.PageID = input.PageID
	}

	updated, err := v.videoRepo.UpdateVideo(ctx, video)
	if err != nil {
		return nil, err
	}
	return updated.WithEmbedURL(), nil
}

// DeleteVideo removes the database rows first so readers stop seeing the
// video, then its stored files.
func (v *videoFileUC) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	if err := v.videoRepo.DeleteVideo(ctx, videoID); err != nil {
		return err
	}
	if err := v.store.DeletePrefix(ctx, storage.VideoPrefix(videoID.String())); err != nil {
		v.logger.Errorf("DeleteVideo: removing files of %s: %v", videoID, err)
	}
	if err := v.queue.Release(ctx, videoID.String()); err != nil {
		v.logger.Warnf("DeleteVideo: releasing queue lock of %s: %v", videoID, err)
	}
	v.logger.Infof("Deleted video %s", videoID)
	return nil
}

// RetryVideo requeues a failed video from its original upload.
func (v *videoFileUC) RetryVideo(ctx context.Context, videoID uuid.UUID) (*models.TranscodeJob, error) {
	video, err := v.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.Status != models.VideoStatusFailed {
		return nil, httpErrors.NewConflictError("only failed videos can be retried, status is " + string(video.Status))
	}
	exists, err := v.store.Exists(ctx, video.OriginalKey())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, httpErrors.NewRestError(422, "original upload is missing", nil)
	}
	// a pending delayed retry still owns the video; leave its rows alone
	busy, err := v.queue.InFlight(ctx, videoID.String())
	if err != nil {
		return nil, errors.Wrap(err, "videoFileUC.RetryVideo.InFlight")
	}
	if busy {
		return nil, httpErrors.NewConflictError(videofiles.ErrJobInFlight.Error())
	}

	job, err := v.jobRepo.RequeueJob(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if err = v.enqueue(ctx, video, job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetOriginalURL signs a short lived download link for the uploaded source.
func (v *videoFileUC) GetOriginalURL(ctx context.Context, videoID uuid.UUID) (*models.DownloadLink, error) {
	video, err := v.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	exists, err := v.store.Exists(ctx, video.OriginalKey())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, httpErrors.NewNotFoundError("original upload is missing")
	}
	expiresAt := time.Now().Add(originalLinkTTL).UTC()
	link, err := v.store.SignedURL(ctx, video.OriginalKey(), originalLinkTTL)
	if err != nil {
		return nil, errors.Wrap(err, "videoFileUC.GetOriginalURL.SignedURL")
	}
	return &models.DownloadLink{URL: link, ExpiresAt: expiresAt}, nil
}

func (v *videoFileUC) UploadSubtitle(ctx context.Context, videoID uuid.UUID, input *models.SubtitleUploadInput) (*models.Subtitle, error) {
	if input == nil {
		return nil, httpErrors.NewBadRequestError("empty upload")
	}
	fileName, err := cleanFileName(input.FileName, map[string]bool{".vtt": true})
	if err != nil {
		return nil, err
	}
	input.FileName = fileName
	if err = utils.ValidateStruct(ctx, input); err != nil {
		return nil, err
	}
	if !languageTag.MatchString(input.Language) {
		return nil, httpErrors.NewBadRequestError("invalid language tag " + input.Language)
	}
	if _, err = v.videoRepo.GetVideoByID(ctx, videoID); err != nil {
		return nil, err
	}

	lang := strings.ToLower(input.Language)
	key := storage.SubtitleKey(videoID.String(), fmt.Sprintf("%s_%s.vtt", lang, uuid.NewString()[:8]))
	if _, err = v.store.Put(ctx, key, input.File); err != nil {
		return nil, errors.Wrap(err, "videoFileUC.UploadSubtitle.Put")
	}

	sub, err := v.subRepo.CreateSubtitle(ctx, &models.Subtitle{
		VideoID:   videoID,
		Language:  lang,
		Label:     input.Label,
		FilePath:  key,
		IsDefault: input.IsDefault,
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (v *videoFileUC) ListSubtitles(ctx context.Context, videoID uuid.UUID) ([]*models.Subtitle, error) {
	if _, err := v.videoRepo.GetVideoByID(ctx, videoID); err != nil {
		return nil, err
	}
	return v.subRepo.GetSubtitles(ctx, videoID)
}

func (v *videoFileUC) SetDefaultSubtitle(ctx context.Context, videoID, subID uuid.UUID) error {
	return v.subRepo.SetDefaultSubtitle(ctx, videoID, subID)
}

func (v *videoFileUC) DeleteSubtitle(ctx context.Context, videoID, subID uuid.UUID) error {
	sub, err := v.subRepo.GetSubtitle(ctx, videoID, subID)
	if err != nil {
		return err
	}
	if err = v.subRepo.DeleteSubtitle(ctx, videoID, subID); err != nil {
		return err
	}
	if err = v.store.Delete(ctx, sub.FilePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		v.logger.Warnf("DeleteSubtitle: removing %s: %v", sub.FilePath, err)
	}
	return nil
}
