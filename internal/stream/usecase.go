package stream

import (
	"context"
	"io"
	"net/url"

	"github.com/google/uuid"
)

type UseCase interface {
	// Authorize checks the stream token presented for videoID.
	Authorize(videoID uuid.UUID, token string) error
	MasterPlaylist(ctx context.Context, videoID uuid.UUID, token string) ([]byte, error)
	TierPlaylist(ctx context.Context, videoID uuid.UUID, quality, token string) ([]byte, error)
	Segment(ctx context.Context, videoID uuid.UUID, quality, segment string) (io.ReadCloser, error)
	Thumbnail(ctx context.Context, videoID uuid.UUID) (io.ReadCloser, error)
	Subtitle(ctx context.Context, videoID uuid.UUID, file string) (io.ReadCloser, error)
	// SignedFile serves a locally stored object behind a signed URL.
	SignedFile(ctx context.Context, urlPath, key string, query url.Values) (io.ReadCloser, error)
}
