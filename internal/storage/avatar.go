// Package storage wraps the Cloudinary media backend used for profile
// avatars.  The rest of the application only ever sees the delivery
// URL; Cloudinary credentials stay inside this package.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

const avatarFolder = "voluntree_avatars"

// AvatarStore uploads avatar images to Cloudinary.
type AvatarStore struct {
	cld *cloudinary.Cloudinary
}

// NewAvatarStore builds an AvatarStore from a CLOUDINARY_URL style
// credential string.
func NewAvatarStore(cloudinaryURL string) (*AvatarStore, error) {
	if cloudinaryURL == "" {
		return nil, errors.New("storage: cloudinary URL cannot be empty")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, err
	}
	return &AvatarStore{cld: cld}, nil
}

// Upload stores the image under a random public ID and returns the
// delivery URL.  Re-uploading does not overwrite the previous avatar;
// old images are left to Cloudinary housekeeping.
func (s *AvatarStore) Upload(ctx context.Context, r io.Reader) (string, error) {
	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   avatarFolder,
		PublicID: uuid.NewString(),
	})
	if err != nil {
		return "", err
	}
	return res.SecureURL, nil
}
