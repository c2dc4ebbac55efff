package filestorage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/exampapers/internal/pkg/logger"
)

// LocalSpool keeps uploads in a directory on the local filesystem.
type LocalSpool struct {
	basePath string // The directory spooled files are written to
}

// NewLocalSpool creates a LocalSpool, creating basePath if needed.
func NewLocalSpool(basePath string) (*LocalSpool, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create upload spool directory")
		return nil, fmt.Errorf("failed to create upload spool directory %s: %w", basePath, err)
	}
	logger.Debug().Str("path", basePath).Msg("Upload spool directory ensured")

	return &LocalSpool{basePath: basePath}, nil
}

// Save implements Spool. Files get a random name that keeps the original extension.
func (s *LocalSpool) Save(upload Upload) (string, error) {
	if upload.Reader == nil {
		return "", fmt.Errorf("no file content for %q", upload.Filename)
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	dstPath := filepath.Join(s.basePath, "upload-"+uuid.New().String()+ext)

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create spool file")
		return "", fmt.Errorf("failed to create spool file: %w", err)
	}

	if _, err := io.Copy(dst, upload.Reader); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		return "", fmt.Errorf("failed to save file content: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Debug().Str("filename", upload.Filename).Str("spooled_as", dstPath).Msg("Upload spooled")
	return dstPath, nil
}

// Open implements Spool
func (s *LocalSpool) Open(path string) (io.ReadCloser, error) {
	if err := s.owns(path); err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove implements Spool
func (s *LocalSpool) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := s.owns(path); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error().Err(err).Str("path", path).Msg("Failed to delete spooled file")
		return fmt.Errorf("failed to delete spooled file: %w", err)
	}
	return nil
}

// owns rejects paths outside the spool directory
func (s *LocalSpool) owns(path string) error {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(s.basePath) {
		return fmt.Errorf("invalid spool path: %s", path)
	}
	return nil
}
