package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Temutjin2k/room-compass/internal/domain/types"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Icon transformation applied on upload: square avatar, auto quality and format.
const iconEager = "q_auto,f_auto,w_256,h_256,c_fill,g_face"

var ErrEmptyURL = errors.New("cloudinary returned no url")

type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// uploadAPI is the part of the cloudinary uploader used here.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// IconStore uploads user icons to Cloudinary.
type IconStore struct {
	folder string
	api    uploadAPI
}

func NewIconStore(cfg Config) (*IconStore, error) {
	c, err := config.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	up, err := uploader.NewWithConfiguration(c)
	if err != nil {
		return nil, fmt.Errorf("cloudinary uploader: %w", err)
	}
	return &IconStore{
		folder: cfg.Folder,
		api:    up,
	}, nil
}

// Upload stores the image under publicID and returns its https url.
// Uploading the same public id again overwrites the previous image.
func (s *IconStore) Upload(ctx context.Context, publicID string, file io.Reader) (string, error) {
	const op = "IconStore.Upload"

	overwrite := true
	eagerAsync := false
	res, err := s.api.Upload(ctx, file, uploader.UploadParams{
		Folder:     s.folder,
		PublicID:   publicID,
		Overwrite:  &overwrite,
		Eager:      iconEager,
		EagerAsync: &eagerAsync,
	})
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return "", wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	if res.Error.Message != "" {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return "", wrap.Error(ctx, fmt.Errorf("%s: %s", op, res.Error.Message))
	}

	if len(res.Eager) > 0 && res.Eager[0].SecureURL != "" {
		return res.Eager[0].SecureURL, nil
	}
	if res.SecureURL == "" {
		return "", wrap.Error(ctx, fmt.Errorf("%s: %w", op, ErrEmptyURL))
	}
	return res.SecureURL, nil
}
