package photos

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/benasque-conf/participants/pkg/apperr"
)

// Image types accepted for each extension.
var imageTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// Uploader validates uploaded photos and hands them to a Store under a fresh unique name.
type Uploader struct {
	store    Store
	allowed  map[string]bool
	maxBytes int64
}

// NewUploader creates an uploader accepting the given extensions (without dot).
func NewUploader(store Store, allowedExts []string, maxBytes int64) *Uploader {
	allowed := make(map[string]bool)
	for _, e := range allowedExts {
		e = strings.ToLower(strings.TrimPrefix(e, "."))
		if _, ok := imageTypes[e]; ok {
			allowed[e] = true
		}
	}
	return &Uploader{store: store, allowed: allowed, maxBytes: maxBytes}
}

// Upload checks extension, size and sniffed content, then stores the photo and returns its reference.
func (u *Uploader) Upload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fh.Filename), "."))
	if !u.allowed[ext] {
		return "", apperr.Validation("Invalid file type. Only JPG, PNG, and GIF are allowed.")
	}
	if u.maxBytes > 0 && fh.Size > u.maxBytes {
		return "", apperr.Validation("Photo is too large (max %d MB)", u.maxBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return u.save(ctx, ext, f)
}

func (u *Uploader) save(ctx context.Context, ext string, r io.Reader) (string, error) {
	limit := u.maxBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return "", apperr.Validation("Photo is too large (max %d MB)", limit>>20)
	}
	mt := mimetype.Detect(data)
	if !isAllowedImage(mt) {
		return "", apperr.Validation("Uploaded file is not a JPG, PNG, or GIF image")
	}
	name := uuid.New().String() + "." + ext
	ref, err := u.store.Save(ctx, name, imageTypes[ext], bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	return ref, nil
}

func isAllowedImage(mt *mimetype.MIME) bool {
	for _, t := range imageTypes {
		if mt.Is(t) {
			return true
		}
	}
	return false
}
