// Package photos stores participant photos on local disk or in S3.
package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/benasque-conf/participants/pkg/storage"
)

// Store saves photo bytes and returns the reference persisted on the participant.
type Store interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// LocalStore writes photos under Dir and returns references of the form "<URLPrefix>/<name>",
// which the server exposes as static files.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, URLPrefix: strings.Trim(urlPrefix, "/")}, nil
}

func (s *LocalStore) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	name = path.Base(name)
	f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create photo: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write photo: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close photo: %w", err)
	}
	return s.URLPrefix + "/" + name, nil
}

// Delete removes the file behind ref. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, ref string) error {
	name := strings.TrimPrefix(ref, s.URLPrefix+"/")
	if name == "" || name != path.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("refusing to delete %q", ref)
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

// S3Store keeps photos in a bucket under a key prefix. References are public object URLs.
type S3Store struct {
	s3     *storage.S3
	prefix string
}

// NewS3Store wraps an S3 client.
func NewS3Store(client *storage.S3, prefix string) *S3Store {
	return &S3Store{s3: client, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Store) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	return s.s3.Upload(ctx, path.Join(s.prefix, path.Base(name)), contentType, r)
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	key := s.s3.KeyFromURL(ref)
	if key == "" {
		return fmt.Errorf("refusing to delete %q", ref)
	}
	return s.s3.DeleteObject(ctx, key)
}
