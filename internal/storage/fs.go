package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// FSStore keeps uploads in a local directory that the server exposes under urlPath.
type FSStore struct { // implements ImageStore
	dir     string
	urlPath string
}

func NewFSStore(dir, urlPath string) *FSStore {
	if !strings.HasSuffix(urlPath, "/") {
		urlPath += "/"
	}
	return &FSStore{dir: dir, urlPath: urlPath}
}

func (s *FSStore) Upload(_ context.Context, obj Object) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating upload directory: %w", err)
	}

	key := objectKey(obj.Filename, obj.ContentType)
	f, err := os.OpenFile(filepath.Join(s.dir, key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("%w: %s", ErrObjectExists, key)
	}
	if err != nil {
		return "", fmt.Errorf("error creating %s: %w", key, err)
	}

	if _, err := io.Copy(f, obj.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("error writing %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("error closing %s: %w", key, err)
	}

	storageLogger.Info().Str("dir", s.dir).Str("key", key).Msg("Image stored")
	return s.urlPath + key, nil
}

// Handler serves the stored files. It is mounted at the store's url path.
func (s *FSStore) Handler() http.Handler {
	return http.StripPrefix(s.urlPath, http.FileServer(http.Dir(s.dir)))
}
