package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrNotImage is returned when an upload is not a supported image
	ErrNotImage = errors.New("upload a valid image. The file you uploaded was either not an image or a corrupted image")
	// ErrTooLarge is returned when an upload exceeds the size limit
	ErrTooLarge = errors.New("file is too large")
)

var allowedImages = []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/heic", "image/heif"}

// Store saves uploaded images on the local filesystem and serves them back
type Store struct {
	root    string
	baseURL string
	maxSize int64
}

// NewStore creates a store rooted at dir whose files are served under baseURL
func NewStore(root, baseURL string, maxSize int64) *Store {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Store{root: root, baseURL: baseURL, maxSize: maxSize}
}

// SaveImage stores an uploaded image under subdir with a random name and
// returns its path relative to the store root.
func (s *Store) SaveImage(subdir string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return "", ErrTooLarge
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedImages...) {
		return "", ErrNotImage
	}

	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	name := uuid.NewString() + mt.Extension()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	return path.Join(subdir, name), nil
}

// Delete removes a stored file. Missing files are ignored.
func (s *Store) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete media file: %w", err)
	}
	return nil
}

// URL returns the public URL path of a stored file
func (s *Store) URL(rel string) string {
	return s.baseURL + rel
}

// Handler serves stored files under the base URL
func (s *Store) Handler() http.Handler {
	return http.StripPrefix(s.baseURL, http.FileServer(http.Dir(s.root)))
}

// Pattern is the mux pattern that Handler should be mounted on
func (s *Store) Pattern() string {
	return "GET " + s.baseURL
}
