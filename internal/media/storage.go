// Package media stores user uploads such as profile pictures.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ProfilePicturePrefix is the key prefix of uploaded profile pictures
const ProfilePicturePrefix = "profile_pics/"

// BlobStore defines the interface for upload storage
type BlobStore interface {
	StoreBlob(ctx context.Context, key string, data []byte) error
	GetBlob(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteBlob(ctx context.Context, key string) error
	BlobExists(ctx context.Context, key string) (bool, error)
}

// LocalBlobStore implements BlobStore using the local filesystem
type LocalBlobStore struct {
	basePath string
}

// NewLocalBlobStore creates a new local blob store rooted at basePath
func NewLocalBlobStore(basePath string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalBlobStore{basePath: basePath}, nil
}

// Root returns the directory blobs are written under
func (lbs *LocalBlobStore) Root() string {
	return lbs.basePath
}

func (lbs *LocalBlobStore) StoreBlob(ctx context.Context, key string, data []byte) error {
	filePath, err := lbs.keyToPath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}
	return nil
}

func (lbs *LocalBlobStore) GetBlob(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath, err := lbs.keyToPath(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	return file, nil
}

// DeleteBlob removes a blob; a missing blob is not an error
func (lbs *LocalBlobStore) DeleteBlob(ctx context.Context, key string) error {
	filePath, err := lbs.keyToPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	return nil
}

func (lbs *LocalBlobStore) BlobExists(ctx context.Context, key string) (bool, error) {
	filePath, err := lbs.keyToPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filePath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check file existence: %w", err)
}

// keyToPath maps a slash-separated key under basePath, refusing keys that escape it
func (lbs *LocalBlobStore) keyToPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(lbs.basePath, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// ImageExtension decodes the image header and returns the file extension for its
// format. ok is false when data is not a supported (png, jpeg, gif) image.
func ImageExtension(data []byte) (ext string, ok bool) {
	if len(data) == 0 {
		return "", false
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return "", false
	}
	switch format {
	case "jpeg":
		return ".jpg", true
	default:
		return "." + format, true
	}
}

// ProfilePictureKey returns a fresh key for an uploaded picture
func ProfilePictureKey(ext string) string {
	return ProfilePicturePrefix + uuid.NewString() + ext
}
