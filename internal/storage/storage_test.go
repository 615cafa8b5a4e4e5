package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	for _, bad := range []string{"", "/abs", "a/../b", "..", "a\\b"} {
		_, err := CleanKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
	k, err := CleanKey("a//b/./c.ts")
	require.NoError(t, err)
	assert.Equal(t, "a/b/c.ts", k)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/vnd.apple.mpegurl", ContentType("x/playlist.m3u8"))
	assert.Equal(t, "video/mp2t", ContentType("segment_001.TS"))
	assert.Equal(t, "text/vtt", ContentType("en.vtt"))
	assert.Equal(t, "application/octet-stream", ContentType("blob"))
}

func readAll(t *testing.T, s Storage, key string) string {
	t.Helper()
	rc, err := s.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

type stubSigner struct{}

func (stubSigner) SignURL(raw string, ttl time.Duration) (string, error) {
	return raw + "?sig=x&ttl=" + ttl.String(), nil
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "/files/", stubSigner{})
	require.NoError(t, err)

	n, err := s.Put(ctx, "vid/original/in.mp4", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "hello", readAll(t, s, "vid/original/in.mp4"))

	ok, err := s.Exists(ctx, "vid/original/in.mp4")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Open(ctx, "vid/missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Open(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidKey)

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "720p"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "720p", "playlist.m3u8"), []byte("#EXTM3U\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "720p", "segment_000.ts"), []byte("1234"), 0o644))
	total, err := s.PutDir(ctx, TranscodedPrefix("vid"), src)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)

	keys, err := s.List(ctx, "vid")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"vid/original/in.mp4",
		"vid/transcoded/720p/playlist.m3u8",
		"vid/transcoded/720p/segment_000.ts",
	}, keys)

	path, cleanup, err := s.Fetch(ctx, "vid/original/in.mp4")
	require.NoError(t, err)
	cleanup()
	assert.FileExists(t, path)

	u, err := s.SignedURL(ctx, "vid/original/in.mp4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "/files/vid/original/in.mp4?sig=x&ttl=1m0s", u)

	require.NoError(t, s.Delete(ctx, "vid/original/in.mp4"))
	require.NoError(t, s.Delete(ctx, "vid/original/in.mp4"))
	require.NoError(t, s.DeletePrefix(ctx, VideoPrefix("vid")))
	keys, err = s.List(ctx, "vid")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = b
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range in.Delete.Objects {
		delete(f.objects, aws.ToString(id.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func TestS3Storage(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := NewS3Storage(fake, nil, "videos", t.TempDir())

	n, err := s.Put(ctx, "vid/original/in.mp4", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "payload", readAll(t, s, "vid/original/in.mp4"))
	assert.Equal(t, "video/mp4", fake.types["vid/original/in.mp4"])

	ok, err := s.Exists(ctx, "vid/original/in.mp4")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Exists(ctx, "vid/none")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Open(ctx, "vid/none")
	assert.ErrorIs(t, err, ErrNotFound)

	src := t.TempDir()
	for i := 0; i < 20; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(src, fmt.Sprintf("segment_%03d.ts", i)), []byte("ab"), 0o644))
	}
	total, err := s.PutDir(ctx, TierPrefix("vid", "480p"), src)
	require.NoError(t, err)
	assert.Equal(t, int64(40), total)

	keys, err := s.List(ctx, "vid")
	require.NoError(t, err)
	assert.Len(t, keys, 21)

	path, cleanup, err := s.Fetch(ctx, "vid/original/in.mp4")
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))
	cleanup()
	assert.NoFileExists(t, path)

	require.NoError(t, s.DeletePrefix(ctx, "vid"))
	assert.Empty(t, fake.objects)

	_, err = s.SignedURL(ctx, "vid/original/in.mp4", time.Minute)
	assert.Error(t, err)
}

func TestS3SignedURL(t *testing.T) {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("key", "secret", ""),
		BaseEndpoint: aws.String("http://localhost:9000"),
		UsePathStyle: true,
	})
	s := NewS3Storage(client, s3.NewPresignClient(client), "videos", t.TempDir())

	raw, err := s.SignedURL(context.Background(), "vid/original/in.mp4", time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/videos/vid/original/in.mp4", u.Path)
}
