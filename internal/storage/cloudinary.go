package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cld *cloudinary.Cloudinary, folder string) *CloudinaryStore {
	if folder == "" {
		folder = DefaultAvatarBucket
	}
	return &CloudinaryStore{cld: cld, folder: folder}
}

// Upload maps "<user>/<name>.<ext>" onto folder "<folder>/<user>" and public
// id "<name>"; Cloudinary derives the format itself.
func (s *CloudinaryStore) Upload(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error) {
	dir, file := path.Split(objectPath)
	folder := strings.TrimSuffix(path.Join(s.folder, dir), "/")
	publicID := strings.TrimSuffix(file, path.Ext(file))

	res, err := s.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		Folder:   folder,
		PublicID: publicID,
		Tags:     []string{"evently-avatar"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image %s: %v", objectPath, err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("failed to upload image %s: %s", objectPath, res.Error.Message)
	}
	return res.SecureURL, nil
}
