package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid storage key")
)

// Storage is the blob store for originals, renditions, thumbnails and
// subtitles. Keys are slash separated and relative, e.g. "<video>/transcoded/720p/playlist.m3u8".
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	PutFile(ctx context.Context, key, localPath string) error
	// PutDir uploads every regular file below localDir under prefix and
	// returns the total number of bytes written.
	PutDir(ctx context.Context, prefix, localDir string) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	// Fetch makes key available as a local file. cleanup removes any
	// temporary copy and is always safe to call.
	Fetch(ctx context.Context, key string) (localPath string, cleanup func(), err error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// CleanKey normalises a key and rejects traversal or absolute paths.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	return path.Clean(key), nil
}

func Join(elem ...string) string {
	return path.Join(elem...)
}

func VideoPrefix(videoID string) string { return videoID }

func TranscodedPrefix(videoID string) string { return path.Join(videoID, "transcoded") }

func TierPrefix(videoID, quality string) string { return path.Join(videoID, "transcoded", quality) }

func ThumbnailKey(videoID, name string) string { return path.Join(videoID, "thumbnails", name) }

func SubtitleKey(videoID, name string) string { return path.Join(videoID, "subtitles", name) }

var contentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".vtt":  "text/vtt",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

// ContentType guesses a MIME type from the key's extension.
func ContentType(key string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}
