package store

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"github.com/meinhoongagan/wheel-refurb/config"
)

// Cloudinary stores photos under <folder>/<uuid>; Cloudinary keeps the
// original format so the delivered URL carries the extension.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
	log    *zap.Logger
}

func NewCloudinary(cfg config.CloudinaryConfig, folder string, log *zap.Logger) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}
	return &Cloudinary{cld: cld, folder: folder, log: log}, nil
}

func (c *Cloudinary) publicID(key string) string {
	return path.Join(c.folder, strings.TrimSuffix(key, path.Ext(key)))
}

// uploadParams keeps the key's extension as the stored format so delivery
// URLs end in .<ext> like the other backends.
func (c *Cloudinary) uploadParams(key string) uploader.UploadParams {
	return uploader.UploadParams{
		PublicID: c.publicID(key),
		Format:   strings.ToLower(strings.TrimPrefix(path.Ext(key), ".")),
	}
}

func (c *Cloudinary) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), c.uploadParams(key))
	if err != nil {
		return "", err
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: %s", resp.Error.Message)
	}

	c.log.Info("Image uploaded to Cloudinary",
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.String("public_id", resp.PublicID),
		zap.Int("size", len(data)))
	return resp.SecureURL, nil
}

func (c *Cloudinary) Delete(ctx context.Context, key string) error {
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: c.publicID(key)})
	if err != nil {
		return err
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("cloudinary: %s", resp.Error.Message)
	}
	return nil
}
