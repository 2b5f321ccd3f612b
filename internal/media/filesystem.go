package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"picpal/internal/models"
)

// FilesystemStore writes assets under a root directory and serves them via a
// static route mounted at baseURL.
type FilesystemStore struct {
	root    string
	baseURL string
}

func NewFilesystemStore(root, baseURL string) (*FilesystemStore, error) {
	if root == "" {
		return nil, fmt.Errorf("filesystem media store requires an upload directory")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FilesystemStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Root returns the directory assets are written under, for mounting a static
// file handler.
func (s *FilesystemStore) Root() string {
	return s.root
}

func (s *FilesystemStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	path, err := s.safePath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *FilesystemStore) Delete(_ context.Context, key string) error {
	path, err := s.safePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete media file: %w", err)
	}
	return nil
}

// safePath resolves key under root and rejects traversal outside it.
func (s *FilesystemStore) safePath(key string) (string, error) {
	if key == "" {
		return "", models.NewValidationError("media key cannot be empty")
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", models.NewValidationError("invalid media key")
	}
	return filepath.Join(s.root, cleaned), nil
}
