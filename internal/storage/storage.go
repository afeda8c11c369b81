// Package storage uploads editor images to object storage or a local directory.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/rs/zerolog"
)

var storageLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	storageLogger = l
}

var (
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrObjectExists     = errors.New("object already exists")
)

// Object is a single upload. Body is read once.
type Object struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ImageStore uploads an object and returns the URL it is publicly reachable at.
type ImageStore interface {
	Upload(ctx context.Context, obj Object) (string, error)
}

// New builds the store selected by cfg.Driver, wrapped so every upload is validated and
// downscaled first.
func New(ctx context.Context, cfg config.StorageConfig) (ImageStore, error) {
	var store ImageStore
	switch cfg.Driver {
	case "s3":
		s, err := NewS3Store(ctx, S3Options{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			PublicURL:       cfg.PublicURL,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			UsePathStyle:    cfg.UsePathStyle,
			CacheControl:    cfg.CacheControl,
		})
		if err != nil {
			return nil, err
		}
		store = s
	case "fs", "":
		store = NewFSStore(cfg.LocalDir, config.UploadsUrlPath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	storageLogger.Info().Str("driver", cfg.Driver).Int("max_width", cfg.MaxWidth).Msg("Image storage ready")
	return NewResizingStore(store, cfg.MaxWidth), nil
}

// ResizingStore runs ProcessImage on every upload before handing it to the next store.
type ResizingStore struct {
	next     ImageStore
	maxWidth int
}

func NewResizingStore(next ImageStore, maxWidth int) *ResizingStore {
	return &ResizingStore{next: next, maxWidth: maxWidth}
}

func (s *ResizingStore) Upload(ctx context.Context, obj Object) (string, error) {
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", fmt.Errorf("error reading upload: %w", err)
	}

	processed, contentType, err := ProcessImage(data, s.maxWidth)
	if err != nil {
		return "", err
	}

	return s.next.Upload(ctx, Object{
		Filename:    obj.Filename,
		ContentType: contentType,
		Body:        bytes.NewReader(processed),
	})
}

// objectKey is a random name that keeps the original extension, or one derived from the
// content type when the filename has none.
func objectKey(filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" || len(ext) > 6 {
		ext = ""
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return uuid.NewString() + ext
}
