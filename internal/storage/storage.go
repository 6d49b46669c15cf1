package storage

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"wastebank-backend/internal/apperr"
)

// BlobStore keeps uploaded images (transaction photos, reward images,
// avatars). Keys are opaque and generated by NewKey.
type BlobStore interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// URL returns the public address the file is served from.
	URL(key string) string
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var keyPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(jpg|png|gif|webp)$`)

// NewKey returns a fresh key for a file of the given MIME type.
func NewKey(contentType string) (string, error) {
	ext, ok := extensions[strings.ToLower(contentType)]
	if !ok {
		return "", apperr.Validation("Unsupported file type %q", contentType)
	}
	return uuid.NewString() + ext, nil
}

// ValidKey reports whether key could have come from NewKey. Anything else,
// including path separators, is rejected before touching the filesystem.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

func ContentType(key string) string {
	switch filepath.Ext(key) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
