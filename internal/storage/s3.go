package storage

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	uploadConcurrency = 8
	deleteBatchSize   = 1000
)

// S3API is the subset of *s3.Client used by the storage layer.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type s3Storage struct {
	client    S3API
	presigner *s3.PresignClient
	bucket    string
	workDir   string
}

func NewS3Storage(client S3API, presigner *s3.PresignClient, bucket, workDir string) Storage {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &s3Storage{client: client, presigner: presigner, bucket: bucket, workDir: workDir}
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

// Put spools r to a temp file first; the SDK needs a seekable body to sign
// the payload.
func (s *s3Storage) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return 0, errors.Wrap(err, "create work dir")
	}
	tmp, err := os.CreateTemp(s.workDir, "spool-*")
	if err != nil {
		return 0, errors.Wrap(err, "create spool file")
	}
	defer os.Remove(tmp.Name())
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, errors.Wrap(err, "spool object")
	}
	if err := s.PutFile(ctx, clean, tmp.Name()); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *s3Storage) PutFile(ctx context.Context, key, localPath string) error {
	clean, err := CleanKey(key)
	if err != nil {
		return err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(err, "open source file")
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "stat source file")
	}
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(clean),
		ContentType:   aws.String(ContentType(clean)),
		ContentLength: aws.Int64(st.Size()),
		Body:          f,
	}); err != nil {
		return errors.Wrapf(err, "failed to upload %s", clean)
	}
	return nil
}

func (s *s3Storage) PutDir(ctx context.Context, prefix, localDir string) (int64, error) {
	if _, err := CleanKey(prefix); err != nil {
		return 0, err
	}
	var files []string
	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "walk upload dir")
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for _, p := range files {
		p := p
		g.Go(func() error {
			rel, err := filepath.Rel(localDir, p)
			if err != nil {
				return err
			}
			if err := s.PutFile(gctx, Join(prefix, filepath.ToSlash(rel)), p); err != nil {
				return err
			}
			if st, err := os.Stat(p); err == nil {
				total.Add(st.Size())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total.Load(), nil
}

func (s *s3Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	res, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(clean),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to download %s", clean)
	}
	return res.Body, nil
}

func (s *s3Storage) Exists(ctx context.Context, key string) (bool, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(clean),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "head object")
	}
	return true, nil
}

func (s *s3Storage) List(ctx context.Context, prefix string) ([]string, error) {
	clean, err := CleanKey(prefix)
	if err != nil {
		return nil, err
	}
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(clean + "/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list objects")
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (s *s3Storage) Delete(ctx context.Context, key string) error {
	clean, err := CleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(clean),
	}); err != nil {
		return errors.Wrap(err, "failed to remove file")
	}
	return nil
}

func (s *s3Storage) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}
		if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		}); err != nil {
			return errors.Wrap(err, "failed to remove objects")
		}
	}
	return nil
}

func (s *s3Storage) Fetch(ctx context.Context, key string) (string, func(), error) {
	noop := func() {}
	body, err := s.Open(ctx, key)
	if err != nil {
		return "", noop, err
	}
	defer body.Close()
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return "", noop, errors.Wrap(err, "create work dir")
	}
	f, err := os.CreateTemp(s.workDir, "fetch-*"+filepath.Ext(key))
	if err != nil {
		return "", noop, errors.Wrap(err, "create temp file")
	}
	cleanup := func() { os.Remove(f.Name()) }
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		cleanup()
		return "", noop, errors.Wrap(err, "download object")
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", noop, errors.Wrap(err, "close temp file")
	}
	return f.Name(), cleanup, nil
}

func (s *s3Storage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if s.presigner == nil {
		return "", errors.New("s3 storage has no presign client")
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(clean),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", errors.Wrap(err, "failed to presign get object")
	}
	return req.URL, nil
}
