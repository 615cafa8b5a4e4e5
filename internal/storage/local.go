package storage

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// URLSigner signs download links for locally stored files.
type URLSigner interface {
	SignURL(rawURL string, ttl time.Duration) (string, error)
}

type localStorage struct {
	root    string
	baseURL string
	signer  URLSigner
}

// NewLocalStorage stores objects under root. Signed URLs point at
// baseURL + "/" + key and are signed with signer.
func NewLocalStorage(root, baseURL string, signer URLSigner) (Storage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve storage root")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "create storage root")
	}
	return &localStorage{root: abs, baseURL: strings.TrimRight(baseURL, "/"), signer: signer}, nil
}

func (l *localStorage) path(key string) (string, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

func (l *localStorage) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	dst, err := l.path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, errors.Wrap(err, "create parent dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, errors.Wrap(err, "create temp file")
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, errors.Wrap(err, "write object")
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return 0, errors.Wrap(err, "commit object")
	}
	return n, nil
}

func (l *localStorage) PutFile(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(err, "open source file")
	}
	defer f.Close()
	_, err = l.Put(ctx, key, f)
	return err
}

func (l *localStorage) PutDir(ctx context.Context, prefix, localDir string) (int64, error) {
	dst, err := l.path(prefix)
	if err != nil {
		return 0, err
	}
	srcAbs, _ := filepath.Abs(localDir)
	if srcAbs == dst {
		return dirSize(dst)
	}
	if err := os.RemoveAll(dst); err != nil {
		return 0, errors.Wrap(err, "clear destination")
	}
	var total int64
	err = filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := l.Put(ctx, Join(prefix, filepath.ToSlash(rel)), f)
		total += n
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "copy directory")
	}
	return total, nil
}

func (l *localStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "open object")
	}
	if st, err := f.Stat(); err == nil && st.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}
	return f, nil
}

func (l *localStorage) Exists(_ context.Context, key string) (bool, error) {
	p, err := l.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (l *localStorage) List(_ context.Context, prefix string) ([]string, error) {
	p, err := l.path(prefix)
	if err != nil {
		return nil, err
	}
	var keys []string
	err = filepath.WalkDir(p, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, fp)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(keys)
	return keys, err
}

func (l *localStorage) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "delete object")
	}
	return nil
}

func (l *localStorage) DeletePrefix(_ context.Context, prefix string) error {
	p, err := l.path(prefix)
	if err != nil {
		return err
	}
	return errors.Wrap(os.RemoveAll(p), "delete tree")
}

func (l *localStorage) Fetch(_ context.Context, key string) (string, func(), error) {
	p, err := l.path(key)
	if err != nil {
		return "", func() {}, err
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return "", func() {}, ErrNotFound
		}
		return "", func() {}, err
	}
	return p, func() {}, nil
}

func (l *localStorage) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if l.signer == nil {
		return "", errors.New("local storage has no url signer")
	}
	return l.signer.SignURL(l.baseURL+"/"+clean, ttl)
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
