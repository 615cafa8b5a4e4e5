package worker

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/storage"
	"github.com/amankumarsingh77/video-gatekeeper/internal/transcode"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Orchestrator runs one encode job from claim to completion.
type Orchestrator struct {
	cfg         *config.Config
	videoRepo   videofiles.Repository
	jobRepo     videofiles.JobRepository
	queue       videofiles.JobQueue
	store       storage.Storage
	prober      prober
	encoder     encoder
	thumbnailer thumbnailer
	presets     []transcode.Preset
	onProgress  ProgressFunc
	logger      logger.Logger
}

func NewOrchestrator(
	cfg *config.Config,
	videoRepo videofiles.Repository,
	jobRepo videofiles.JobRepository,
	queue videofiles.JobQueue,
	store storage.Storage,
	runner transcode.Runner,
	log logger.Logger,
) (*Orchestrator, error) {
	presets, err := transcode.ParsePresetList(cfg.Transcode.Presets)
	if err != nil {
		return nil, errors.Wrap(err, "NewOrchestrator.presets")
	}
	return &Orchestrator{
		cfg:         cfg,
		videoRepo:   videoRepo,
		jobRepo:     jobRepo,
		queue:       queue,
		store:       store,
		prober:      transcode.NewProber(runner, cfg.Transcode.FFprobePath),
		encoder:     transcode.NewEncoder(runner, cfg.Transcode.FFmpegPath, cfg.Transcode.SegmentSeconds),
		thumbnailer: transcode.NewThumbnailer(runner, cfg.Transcode.FFmpegPath),
		presets:     presets,
		logger:      log,
	}, nil
}

// OnProgress registers fn to be called after every recorded progress value.
func (o *Orchestrator) OnProgress(fn ProgressFunc) {
	o.onProgress = fn
}

// jobRun carries the state of a single Run call.
type jobRun struct {
	job      *models.EncodeJob
	videoID  uuid.UUID
	workDir  string
	progress int
}

// Run processes job. A nil return means the job is finished, either
// completed or dropped because its video no longer exists. Any other error
// has already been persisted on the job and the video; ErrNoVariants and
// ErrInvalidJob are final, the rest may be retried.
func (o *Orchestrator) Run(ctx context.Context, job *models.EncodeJob) error {
	if err := utils.ValidateStruct(ctx, job); err != nil {
		return errors.Wrap(ErrInvalidJob, err.Error())
	}
	videoID, err := uuid.Parse(job.VideoID)
	if err != nil {
		return errors.Wrap(ErrInvalidJob, "video_id")
	}
	run := &jobRun{job: job, videoID: videoID}

	if gone, err := o.videoGone(ctx, videoID); err != nil || gone {
		if gone {
			o.logger.Infof("video_id=%s no longer exists, dropping job_id=%s", videoID, job.JobID)
		}
		return err
	}
	if _, err = o.jobRepo.ClaimJob(ctx, videoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			o.logger.Infof("video_id=%s deleted before claim, dropping job_id=%s", videoID, job.JobID)
			return nil
		}
		return errors.Wrap(err, "Orchestrator.Run.ClaimJob")
	}
	o.logger.Infof("processing video_id=%s job_id=%s attempt=%d", videoID, job.JobID, job.Attempt+1)
	o.report(ctx, run, 0, models.JobStatusProcessing)

	err = o.process(ctx, run)
	if errors.Is(err, errVideoGone) {
		o.logger.Infof("video_id=%s deleted during processing, discarding output", videoID)
		if derr := o.store.DeletePrefix(ctx, storage.VideoPrefix(videoID.String())); derr != nil {
			o.logger.Warnf("cleanup of deleted video_id=%s failed: %v", videoID, derr)
		}
		return nil
	}
	if err != nil {
		return o.fail(ctx, run, err)
	}
	return nil
}

func (o *Orchestrator) process(ctx context.Context, run *jobRun) error {
	vid := run.videoID.String()
	run.workDir = filepath.Join(o.cfg.Storage.WorkDir, vid)
	if err := os.RemoveAll(run.workDir); err != nil {
		return errors.Wrap(err, "clear work dir")
	}
	if err := os.MkdirAll(run.workDir, 0o755); err != nil {
		return errors.Wrap(err, "create work dir")
	}
	defer func() {
		if err := os.RemoveAll(run.workDir); err != nil {
			o.logger.Warnf("remove work dir %s: %v", run.workDir, err)
		}
	}()

	input, cleanup, err := o.store.Fetch(ctx, run.job.InputKey)
	defer cleanup()
	if err != nil {
		return errors.Wrap(err, "fetch original")
	}

	info, err := o.prober.Probe(ctx, input)
	if err != nil {
		return errors.Wrap(err, "probe failed")
	}
	if err = o.videoRepo.SetDuration(ctx, run.videoID, info.DurationSeconds); err != nil {
		return errors.Wrap(err, "store duration")
	}

	tiers := transcode.SelectPresets(info.Height, o.presets)
	results := make([]TierResult, 0, len(tiers))
	for i, preset := range tiers {
		res := o.encodeTier(ctx, run, input, info, preset)
		if errors.Is(res.Err, errVideoGone) {
			return errVideoGone
		}
		if res.Err != nil {
			o.logger.Warnf("video_id=%s tier %s failed: %v", vid, preset.Name, res.Err)
		}
		results = append(results, res)
		o.report(ctx, run, (i+1)*encodeShare/len(tiers), models.JobStatusProcessing)
	}

	created := 0
	var firstErr error
	for _, res := range results {
		if res.Err == nil {
			created++
		} else if firstErr == nil {
			firstErr = res.Err
		}
	}

	o.report(ctx, run, thumbnailProgress, models.JobStatusProcessing)
	o.uploadThumbnails(ctx, run, input, info.DurationSeconds)

	if gone, err := o.videoGone(ctx, run.videoID); err != nil || gone {
		if gone {
			return errVideoGone
		}
		return err
	}
	if created == 0 {
		return &noVariantsError{first: firstErr}
	}
	if err = o.jobRepo.CompleteJob(ctx, run.videoID); err != nil {
		return errors.Wrap(err, "complete job")
	}
	o.report(ctx, run, doneProgress, models.JobStatusCompleted)
	o.logger.Infof("video_id=%s ready with %d of %d tiers", vid, created, len(tiers))
	return nil
}

func (o *Orchestrator) encodeTier(ctx context.Context, run *jobRun, input string, info *transcode.VideoInfo, preset transcode.Preset) TierResult {
	res := TierResult{Preset: preset}
	vid := run.videoID.String()

	rendition, err := o.encoder.EncodeHLS(ctx, input, run.workDir, preset)
	if err != nil {
		res.Err = err
		return res
	}
	if gone, err := o.videoGone(ctx, run.videoID); err != nil || gone {
		if gone {
			err = errVideoGone
		}
		res.Err = err
		return res
	}
	prefix := storage.TierPrefix(vid, preset.Name)
	size, err := o.store.PutDir(ctx, prefix, rendition.Dir)
	if err != nil {
		res.Err = errors.Wrap(err, "upload tier")
		return res
	}
	res.Variant, err = o.videoRepo.UpsertVariant(ctx, &models.Variant{
		VideoID:       run.videoID,
		Quality:       preset.Name,
		Width:         transcode.EvenWidth(info.Width, info.Height, preset.Height),
		Height:        preset.Height,
		Bitrate:       preset.VideoBitrate,
		FilePath:      storage.Join(prefix, transcode.PlaylistName),
		FileSizeBytes: size,
	})
	if err != nil {
		res.Err = errors.Wrap(err, "save variant")
	}
	return res
}

func (o *Orchestrator) uploadThumbnails(ctx context.Context, run *jobRun, input string, duration float64) {
	vid := run.videoID.String()
	for _, thumb := range o.thumbnailer.Extract(ctx, input, filepath.Join(run.workDir, thumbnailDir), duration) {
		if thumb.Err != nil {
			o.logger.Warnf("video_id=%s thumbnail %d%%: %v", vid, thumb.Percent, thumb.Err)
			continue
		}
		key := storage.ThumbnailKey(vid, transcode.ThumbnailName(thumb.Percent))
		if err := o.store.PutFile(ctx, key, thumb.Path); err != nil {
			o.logger.Warnf("video_id=%s upload thumbnail %d%%: %v", vid, thumb.Percent, err)
		}
	}
}

func (o *Orchestrator) videoGone(ctx context.Context, videoID uuid.UUID) (bool, error) {
	_, err := o.videoRepo.GetVideoByID(ctx, videoID)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "Orchestrator.videoGone")
	}
	return false, nil
}

// report records progress in Postgres and Redis. Values lower than what was
// already recorded for this run are ignored.
func (o *Orchestrator) report(ctx context.Context, run *jobRun, progress int, status models.JobStatus) {
	if progress < run.progress {
		return
	}
	run.progress = progress
	if err := o.jobRepo.UpdateProgress(ctx, run.videoID, progress); err != nil {
		o.logger.Warnf("video_id=%s update progress: %v", run.videoID, err)
	}
	if err := o.queue.SetProgress(ctx, run.videoID.String(), progress, status); err != nil {
		o.logger.Warnf("video_id=%s mirror progress: %v", run.videoID, err)
	}
	if o.onProgress != nil {
		o.onProgress(run.videoID, progress)
	}
}

// fail persists err on the job and the video and hands it back for the
// queue to decide on a retry.
func (o *Orchestrator) fail(ctx context.Context, run *jobRun, err error) error {
	o.logger.Errorf("video_id=%s job_id=%s failed: %v", run.videoID, run.job.JobID, err)
	if ferr := o.jobRepo.FailJob(ctx, run.videoID, err.Error()); ferr != nil {
		o.logger.Errorf("video_id=%s mark failed: %v", run.videoID, ferr)
	}
	if serr := o.queue.SetProgress(ctx, run.videoID.String(), run.progress, models.JobStatusFailed); serr != nil {
		o.logger.Warnf("video_id=%s mirror failure: %v", run.videoID, serr)
	}
	return err
}

// MarkFailed records err for a job whose run was aborted outside Run's own
// error handling.
func (o *Orchestrator) MarkFailed(ctx context.Context, job *models.EncodeJob, err error) {
	videoID, perr := uuid.Parse(job.VideoID)
	if perr != nil {
		return
	}
	_ = o.fail(ctx, &jobRun{job: job, videoID: videoID}, err)
}
