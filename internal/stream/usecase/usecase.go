package usecase

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/storage"
	"github.com/amankumarsingh77/video-gatekeeper/internal/stream"
	"github.com/amankumarsingh77/video-gatekeeper/internal/token"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/httpErrors"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const playlistName = "playlist.m3u8"

var (
	qualityName  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)
	segmentName  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}\.ts$`)
	subtitleName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}\.vtt$`)

	thumbnailCandidates = []string{"thumb_25.jpg", "thumb_0.jpg"}
)

type streamUC struct {
	cfg       *config.Config
	videoRepo videofiles.Repository
	store     storage.Storage
	signer    *token.Signer
	logger    logger.Logger
}

func NewStreamUseCase(cfg *config.Config, videoRepo videofiles.Repository, store storage.Storage, signer *token.Signer, log logger.Logger) stream.UseCase {
	return &streamUC{cfg: cfg, videoRepo: videoRepo, store: store, signer: signer, logger: log}
}

func (u *streamUC) Authorize(videoID uuid.UUID, tok string) error {
	if tok == "" {
		if u.cfg.Server.Debug {
			u.logger.Debugf("debug mode, serving video_id=%s without stream token", videoID)
			return nil
		}
		return httpErrors.NewRestError(http.StatusUnauthorized, "Stream token required", nil)
	}
	if err := u.signer.VerifyStream(tok, videoID.String()); err != nil {
		return httpErrors.NewRestError(http.StatusForbidden, "Invalid stream token: "+err.Error(), nil)
	}
	return nil
}

func (u *streamUC) readyVideo(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	video, err := u.videoRepo.GetVideoByID(ctx, videoID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httpErrors.NewRestError(http.StatusNotFound, "Video not found", nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "streamUC.readyVideo")
	}
	if video.Status != models.VideoStatusReady {
		return nil, httpErrors.NewRestError(http.StatusNotFound, "Video not ready", nil)
	}
	return video, nil
}

func withToken(ref, tok string) string {
	if tok == "" {
		return ref
	}
	return ref + "?token=" + tok
}

// MasterPlaylist lists every variant, tallest first.
func (u *streamUC) MasterPlaylist(ctx context.Context, videoID uuid.UUID, tok string) ([]byte, error) {
	video, err := u.readyVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	variants, err := u.videoRepo.GetVariants(ctx, video.ID)
	if err != nil {
		return nil, errors.Wrap(err, "streamUC.MasterPlaylist.GetVariants")
	}
	if len(variants) == 0 {
		return nil, httpErrors.NewRestError(http.StatusNotFound, "No video variants available", nil)
	}
	sort.SliceStable(variants, func(i, j int) bool { return variants[i].Height > variants[j].Height })

	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n")
	for _, v := range variants {
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n", v.Bandwidth(), v.Width, v.Height)
		b.WriteString(withToken(v.Quality+"/"+playlistName, tok))
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// TierPlaylist returns the stored media playlist with the token appended to
// every segment reference.
func (u *streamUC) TierPlaylist(ctx context.Context, videoID uuid.UUID, quality, tok string) ([]byte, error) {
	if !qualityName.MatchString(quality) {
		return nil, httpErrors.NewBadRequestError("invalid quality")
	}
	if _, err := u.readyVideo(ctx, videoID); err != nil {
		return nil, err
	}
	rc, err := u.store.Open(ctx, storage.Join(storage.TierPrefix(videoID.String(), quality), playlistName))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, httpErrors.NewRestError(http.StatusNotFound, "Playlist not found for quality: "+quality, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "streamUC.TierPlaylist.Open")
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, "streamUC.TierPlaylist.ReadAll")
	}
	return rewritePlaylist(raw, tok), nil
}

func rewritePlaylist(raw []byte, tok string) []byte {
	if tok == "" {
		return raw
	}
	lines := bytes.Split(raw, []byte("\n"))
	for i, line := range lines {
		trimmed := bytes.TrimRight(line, "\r")
		if bytes.HasSuffix(trimmed, []byte(".ts")) && !bytes.HasPrefix(trimmed, []byte("#")) {
			lines[i] = []byte(withToken(string(trimmed), tok))
		}
	}
	return bytes.Join(lines, []byte("\n"))
}

func (u *streamUC) Segment(ctx context.Context, videoID uuid.UUID, quality, segment string) (io.ReadCloser, error) {
	if !qualityName.MatchString(quality) || !segmentName.MatchString(segment) {
		return nil, httpErrors.NewBadRequestError("Invalid segment file")
	}
	if _, err := u.readyVideo(ctx, videoID); err != nil {
		return nil, err
	}
	return u.open(ctx, storage.Join(storage.TierPrefix(videoID.String(), quality), segment), "Segment not found")
}

func (u *streamUC) Thumbnail(ctx context.Context, videoID uuid.UUID) (io.ReadCloser, error) {
	for _, name := range thumbnailCandidates {
		rc, err := u.store.Open(ctx, storage.ThumbnailKey(videoID.String(), name))
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, errors.Wrap(err, "streamUC.Thumbnail.Open")
		}
	}
	return nil, httpErrors.NewRestError(http.StatusNotFound, "Thumbnail not found", nil)
}

func (u *streamUC) Subtitle(ctx context.Context, videoID uuid.UUID, file string) (io.ReadCloser, error) {
	if !subtitleName.MatchString(file) {
		return nil, httpErrors.NewBadRequestError("Invalid subtitle file format")
	}
	return u.open(ctx, storage.SubtitleKey(videoID.String(), file), "Subtitle not found")
}

func (u *streamUC) SignedFile(ctx context.Context, urlPath, key string, query url.Values) (io.ReadCloser, error) {
	if err := u.signer.VerifyURL(urlPath, query); err != nil {
		return nil, httpErrors.NewRestError(http.StatusForbidden, "Invalid signed url: "+err.Error(), nil)
	}
	clean, err := storage.CleanKey(key)
	if err != nil {
		return nil, err
	}
	return u.open(ctx, clean, "File not found")
}

func (u *streamUC) open(ctx context.Context, key, notFound string) (io.ReadCloser, error) {
	rc, err := u.store.Open(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, httpErrors.NewRestError(http.StatusNotFound, notFound, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "streamUC.open")
	}
	return rc, nil
}
