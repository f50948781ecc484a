package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/validator"
)

// MaxAvatarSize bounds a single profile picture upload
const MaxAvatarSize = 2 * 1024 * 1024

var (
	ErrUnsupportedImage = errors.New("storage: only jpg, jpeg and png images are allowed")
	ErrImageTooLarge    = fmt.Errorf("storage: image exceeds %d bytes", MaxAvatarSize)
)

// AvatarStore persists profile pictures and returns the stored file name
type AvatarStore interface {
	Save(ctx context.Context, originalName string, content io.Reader) (string, error)
	Delete(ctx context.Context, name string) error
}

// AvatarStorage writes profile pictures to a local directory served as static files
type AvatarStorage struct {
	dir string
}

func NewAvatarStorage(dir string) (*AvatarStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &AvatarStorage{dir: dir}, nil
}

func (s *AvatarStorage) Dir() string {
	return s.dir
}

// Save stores content under a random name keeping the lower-cased extension
func (s *AvatarStorage) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	if !validator.IsAllowedImage(originalName) {
		return "", ErrUnsupportedImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create avatar file: %w", err)
	}

	written, copyErr := io.Copy(f, io.LimitReader(content, MaxAvatarSize+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("write avatar file: %w", copyErr)
	case written > MaxAvatarSize:
		_ = os.Remove(path)
		return "", ErrImageTooLarge
	case closeErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("close avatar file: %w", closeErr)
	}

	return name, nil
}

// Delete removes a stored picture. The shared placeholder is never removed.
func (s *AvatarStorage) Delete(_ context.Context, name string) error {
	if name == "" || name == models.DefaultProfileImage {
		return nil
	}
	// names are always generated by Save, never taken from user paths
	if filepath.Base(name) != name {
		return fmt.Errorf("storage: invalid avatar name %q", name)
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove avatar file: %w", err)
	}
	return nil
}
