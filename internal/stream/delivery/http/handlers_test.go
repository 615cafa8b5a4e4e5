package http

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/amankumarsingh77/video-gatekeeper/internal/config"
	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/storage"
	"github.com/amankumarsingh77/video-gatekeeper/internal/stream/usecase"
	"github.com/amankumarsingh77/video-gatekeeper/internal/token"
	"github.com/amankumarsingh77/video-gatekeeper/internal/videofiles"
	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalog is an in-memory video repository; only reads are used here.
type catalog struct {
	videofiles.Repository
	videos   map[uuid.UUID]*models.Video
	variants map[uuid.UUID][]*models.Variant
}

func (c *catalog) GetVideoByID(_ context.Context, id uuid.UUID) (*models.Video, error) {
	if v, ok := c.videos[id]; ok {
		return v, nil
	}
	return nil, sql.ErrNoRows
}

func (c *catalog) GetVariants(_ context.Context, id uuid.UUID) ([]*models.Variant, error) {
	return c.variants[id], nil
}

const tierPlaylist = "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:6\n#EXTINF:6.0,\nsegment_000.ts\n#EXTINF:4.2,\nsegment_001.ts\n#EXT-X-ENDLIST\n"

type streamFixture struct {
	echo    *echo.Echo
	signer  *token.Signer
	store   storage.Storage
	cfg     *config.Config
	ready   *models.Video
	pending *models.Video
}

func newStreamFixture(t *testing.T) *streamFixture {
	t.Helper()
	signer, err := token.NewSigner("stream-secret")
	require.NoError(t, err)
	store, err := storage.NewLocalStorage(t.TempDir(), "/files", signer)
	require.NoError(t, err)

	ready := &models.Video{ID: uuid.New(), Status: models.VideoStatusReady}
	pending := &models.Video{ID: uuid.New(), Status: models.VideoStatusProcessing}
	repo := &catalog{
		videos: map[uuid.UUID]*models.Video{ready.ID: ready, pending.ID: pending},
		variants: map[uuid.UUID][]*models.Variant{ready.ID: {
			{Quality: "360p", Width: 640, Height: 360, Bitrate: 800},
			{Quality: "720p", Width: 1280, Height: 720, Bitrate: 2800},
		}},
	}

	ctx := context.Background()
	vid := ready.ID.String()
	put := func(key, body string) {
		_, err := store.Put(ctx, key, strings.NewReader(body))
		require.NoError(t, err)
	}
	put(storage.Join(storage.TierPrefix(vid, "720p"), "playlist.m3u8"), tierPlaylist)
	put(storage.Join(storage.TierPrefix(vid, "720p"), "segment_000.ts"), "TS-DATA")
	put(storage.ThumbnailKey(vid, "thumb_0.jpg"), "JPEG0")
	put(storage.SubtitleKey(vid, "en_0a1b2c3d.vtt"), "WEBVTT\n")

	cfg := &config.Config{}
	uc := usecase.NewStreamUseCase(cfg, repo, store, signer, logger.NewNop())
	h := NewStreamHandler(uc, logger.NewNop())

	e := echo.New()
	MapStreamRoutes(e.Group("/stream"), h)
	MapFileRoutes(e.Group("/files"), h)
	return &streamFixture{echo: e, signer: signer, store: store, cfg: cfg, ready: ready, pending: pending}
}

func (f *streamFixture) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (f *streamFixture) token(t *testing.T, id uuid.UUID) string {
	t.Helper()
	tok, _, err := f.signer.StreamToken(id.String(), time.Hour)
	require.NoError(t, err)
	return tok
}

func TestMasterPlaylist(t *testing.T) {
	f := newStreamFixture(t)
	tok := f.token(t, f.ready.ID)

	rec := f.get("/stream/" + f.ready.ID.String() + "/master.m3u8?token=" + tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.apple.mpegurl", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	want := "#EXTM3U\n#EXT-X-VERSION:3\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720\n720p/playlist.m3u8?token=" + tok + "\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360\n360p/playlist.m3u8?token=" + tok + "\n"
	assert.Equal(t, want, rec.Body.String())
}

func TestStreamTokenRequired(t *testing.T) {
	f := newStreamFixture(t)
	base := "/stream/" + f.ready.ID.String() + "/master.m3u8"

	assert.Equal(t, http.StatusUnauthorized, f.get(base).Code)

	rec := f.get(base + "?token=garbage")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid stream token")

	other := f.token(t, f.pending.ID)
	assert.Equal(t, http.StatusForbidden, f.get(base+"?token="+other).Code)
}

func TestDebugModeWaivesMissingTokenOnly(t *testing.T) {
	f := newStreamFixture(t)
	f.cfg.Server.Debug = true
	base := "/stream/" + f.ready.ID.String() + "/master.m3u8"

	rec := f.get(base)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "720p/playlist.m3u8\n")
	assert.NotContains(t, rec.Body.String(), "token=")

	assert.Equal(t, http.StatusForbidden, f.get(base+"?token=garbage").Code)
}

func TestNotReadyVideo(t *testing.T) {
	f := newStreamFixture(t)
	tok := f.token(t, f.pending.ID)
	rec := f.get("/stream/" + f.pending.ID.String() + "/master.m3u8?token=" + tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Video not ready")

	// leftover segments of an unfinished run are not served
	seg := storage.Join(storage.TierPrefix(f.pending.ID.String(), "720p"), "segment_000.ts")
	_, err := f.store.Put(context.Background(), seg, strings.NewReader("TS-DATA"))
	require.NoError(t, err)
	rec = f.get("/stream/" + f.pending.ID.String() + "/720p/segment_000.ts?token=" + tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Video not ready")

	missing := uuid.New()
	assert.Equal(t, http.StatusNotFound, f.get("/stream/"+missing.String()+"/master.m3u8?token="+f.token(t, missing)).Code)
}

func TestTierPlaylistCarriesToken(t *testing.T) {
	f := newStreamFixture(t)
	tok := f.token(t, f.ready.ID)

	rec := f.get("/stream/" + f.ready.ID.String() + "/720p/playlist.m3u8?token=" + tok)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "segment_000.ts?token="+tok+"\n")
	assert.Contains(t, body, "segment_001.ts?token="+tok+"\n")
	assert.Contains(t, body, "#EXTINF:6.0,\n")

	assert.Equal(t, http.StatusNotFound, f.get("/stream/"+f.ready.ID.String()+"/1080p/playlist.m3u8?token="+tok).Code)
}

func TestSegmentThumbnailSubtitle(t *testing.T) {
	f := newStreamFixture(t)
	vid := f.ready.ID.String()
	tok := f.token(t, f.ready.ID)

	rec := f.get("/stream/" + vid + "/720p/segment_000.ts?token=" + tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TS-DATA", rec.Body.String())
	assert.Equal(t, "video/mp2t", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "max-age=31536000", rec.Header().Get("Cache-Control"))

	assert.Equal(t, http.StatusBadRequest, f.get("/stream/"+vid+"/720p/playlist.txt?token="+tok).Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/stream/"+vid+"/..%2F..%2Fetc/passwd.ts?token="+tok).Code)
	assert.Equal(t, http.StatusNotFound, f.get("/stream/"+vid+"/720p/segment_999.ts?token="+tok).Code)

	rec = f.get("/stream/" + vid + "/thumbnail.jpg?token=" + tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "JPEG0", rec.Body.String(), "falls back to the first thumbnail")

	rec = f.get("/stream/" + vid + "/subtitles/en_0a1b2c3d.vtt?token=" + tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "WEBVTT\n", rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, f.get("/stream/"+vid+"/subtitles/en.srt?token="+tok).Code)
}

func TestSignedFiles(t *testing.T) {
	f := newStreamFixture(t)
	key := storage.ThumbnailKey(f.ready.ID.String(), "thumb_0.jpg")

	signed, err := f.store.SignedURL(context.Background(), key, time.Minute)
	require.NoError(t, err)
	rec := f.get(signed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "JPEG0", rec.Body.String())

	u, err := url.Parse(signed)
	require.NoError(t, err)
	q := u.Query()
	q.Set("exp", "9999999999")
	assert.Equal(t, http.StatusForbidden, f.get(u.Path+"?"+q.Encode()).Code)
	assert.Equal(t, http.StatusForbidden, f.get(u.Path).Code)
}
