package worker

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/storage"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles/repository"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const probe720 = `{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720, "r_frame_rate": "30/1", "duration": "8.0"},
    {"codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"duration": "8.0"}
}`

// fakeFFmpeg writes the files ffmpeg and ffprobe would produce.
type fakeFFmpeg struct {
	mu         sync.Mutex
	probeJSON  string
	failTier   func(outPath string) bool
	beforeTier func()
	panicOn    string
	failThumbs bool
	encodes    int
}

func (f *fakeFFmpeg) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	if strings.Contains(name, "ffprobe") {
		if f.probeJSON == "" {
			return []byte("moov atom not found"), errors.New("exit status 1")
		}
		return []byte(f.probeJSON), nil
	}
	out := args[len(args)-1]
	if f.panicOn != "" && strings.Contains(out, f.panicOn) {
		panic("ffmpeg wrapper blew up")
	}
	if !strings.HasSuffix(out, ".m3u8") {
		if f.failThumbs {
			return []byte("Invalid frame"), errors.New("exit status 1")
		}
		return nil, os.WriteFile(out, []byte("jpeg"), 0o644)
	}

	f.mu.Lock()
	f.encodes++
	f.mu.Unlock()
	if f.beforeTier != nil {
		f.beforeTier()
	}
	if f.failTier != nil && f.failTier(out) {
		return []byte("Conversion failed!"), errors.New("exit status 1")
	}
	dir := filepath.Dir(out)
	if err := os.WriteFile(filepath.Join(dir, "segment_000.ts"), []byte("0123456789"), 0o644); err != nil {
		return nil, err
	}
	return nil, os.WriteFile(out, []byte("#EXTM3U\n#EXTINF:6.0,\nsegment_000.ts\n#EXT-X-ENDLIST\n"), 0o644)
}

// library keeps videos, jobs and variants in memory with the same rules the
// Postgres repositories enforce.
type library struct {
	videofiles.Repository
	videofiles.JobRepository

	mu       sync.Mutex
	videos   map[uuid.UUID]*models.Video
	jobs     map[uuid.UUID]*models.TranscodeJob
	variants map[uuid.UUID]map[string]*models.Variant
}

func newLibrary() *library {
	return &library{
		videos:   map[uuid.UUID]*models.Video{},
		jobs:     map[uuid.UUID]*models.TranscodeJob{},
		variants: map[uuid.UUID]map[string]*models.Variant{},
	}
}

func (l *library) add(v *models.Video) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.videos[v.ID] = v
	l.jobs[v.ID] = &models.TranscodeJob{ID: uuid.New(), VideoID: v.ID, Status: models.JobStatusQueued}
}

func (l *library) remove(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.videos, id)
	delete(l.jobs, id)
	delete(l.variants, id)
}

func (l *library) video(id uuid.UUID) models.Video {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.videos[id]
}

func (l *library) job(id uuid.UUID) models.TranscodeJob {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.jobs[id]
}

func (l *library) variantCount(id uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.variants[id])
}

func (l *library) GetVideoByID(_ context.Context, id uuid.UUID) (*models.Video, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.videos[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *v
	return &cp, nil
}

func (l *library) SetDuration(_ context.Context, id uuid.UUID, seconds float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.videos[id]; ok {
		v.DurationSeconds = &seconds
	}
	return nil
}

func (l *library) UpsertVariant(_ context.Context, variant *models.Variant) (*models.Variant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.videos[variant.VideoID]; !ok {
		return nil, sql.ErrNoRows
	}
	if l.variants[variant.VideoID] == nil {
		l.variants[variant.VideoID] = map[string]*models.Variant{}
	}
	cp := *variant
	cp.ID = uuid.New()
	l.variants[variant.VideoID][variant.Quality] = &cp
	return &cp, nil
}

func (l *library) ClaimJob(_ context.Context, id uuid.UUID) (*models.TranscodeJob, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	job, ok := l.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	now := time.Now()
	job.Status = models.JobStatusProcessing
	job.Progress = 0
	job.ErrorMessage = nil
	job.Attempts++
	job.StartedAt = &now
	l.videos[id].Status = models.VideoStatusProcessing
	cp := *job
	return &cp, nil
}

func (l *library) UpdateProgress(_ context.Context, id uuid.UUID, progress int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if job, ok := l.jobs[id]; ok && progress > job.Progress {
		job.Progress = progress
	}
	return nil
}

func (l *library) CompleteJob(_ context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.variants[id]) == 0 {
		return repository.ErrNoVariants
	}
	now := time.Now()
	l.jobs[id].Status = models.JobStatusCompleted
	l.jobs[id].Progress = 100
	l.jobs[id].CompletedAt = &now
	l.videos[id].Status = models.VideoStatusReady
	return nil
}

func (l *library) FailJob(_ context.Context, id uuid.UUID, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if job, ok := l.jobs[id]; ok {
		msg := models.TruncateError(message)
		job.Status = models.JobStatusFailed
		job.ErrorMessage = &msg
	}
	if v, ok := l.videos[id]; ok {
		v.Status = models.VideoStatusFailed
	}
	delete(l.variants, id)
	return nil
}

type pipelineFixture struct {
	lib    *library
	ffmpeg *fakeFFmpeg
	store  storage.Storage
	queue  videofiles.JobQueue
	redis  *miniredis.Miniredis
	cfg    *config.Config
	orch   *Orchestrator
	video  *models.Video
	job    *models.EncodeJob
}

func newPipelineFixture(t *testing.T, presets ...string) *pipelineFixture {
	t.Helper()
	if len(presets) == 0 {
		presets = []string{"720p", "480p", "360p"}
	}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := storage.NewLocalStorage(t.TempDir(), "/files", nil)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Storage.WorkDir = t.TempDir()
	cfg.Transcode.Presets = presets
	cfg.Transcode.FFmpegPath = "ffmpeg"
	cfg.Transcode.FFprobePath = "ffprobe"
	cfg.Transcode.SegmentSeconds = 6
	cfg.Worker.WorkerCount = 1
	cfg.Worker.PollInterval = 20 * time.Millisecond

	queue := repository.NewJobQueue(client, repository.QueueOptions{
		MaxAttempts:  3,
		RetryDelay:   time.Minute,
		BlockTimeout: 50 * time.Millisecond,
	})
	lib := newLibrary()
	ffmpeg := &fakeFFmpeg{probeJSON: probe720}
	orch, err := NewOrchestrator(cfg, lib, lib, queue, store, ffmpeg, logger.NewNop())
	require.NoError(t, err)

	video := &models.Video{ID: uuid.New(), Title: "clip", OriginalFilename: "clip.mp4", Status: models.VideoStatusPending}
	lib.add(video)
	_, err = store.Put(context.Background(), video.OriginalKey(), strings.NewReader("raw-bytes"))
	require.NoError(t, err)

	return &pipelineFixture{
		lib:    lib,
		ffmpeg: ffmpeg,
		store:  store,
		queue:  queue,
		redis:  mr,
		cfg:    cfg,
		orch:   orch,
		video:  video,
		job: &models.EncodeJob{
			JobID:    uuid.New().String(),
			VideoID:  video.ID.String(),
			InputKey: video.OriginalKey(),
		},
	}
}
