// Package storage uploads profile pictures and hands back a public URL.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

const DefaultAvatarBucket = "avatars"

var ErrUnsupportedImage = errors.New("unsupported image type")

type AvatarStore interface {
	Upload(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error)
}

var allowedExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"gif":  "image/gif",
	"heic": "image/heic",
}

// AvatarPath places every upload under the owner's folder with a fresh
// name, e.g. "<user id>/<uuid>.png".
func AvatarPath(userID uuid.UUID, filename string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		ext = "jpg"
	}
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrUnsupportedImage
	}
	return userID.String() + "/" + uuid.NewString() + "." + ext, nil
}

// ContentTypeFor falls back to the type implied by the extension when the
// client did not send one.
func ContentTypeFor(objectPath, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(objectPath)), ".")
	if ct, ok := allowedExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
