package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryConfig はCloudinaryの認証情報。
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// cloudinaryUploader はCloudinary SDKのアップロードAPI。
type cloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryBackend はCloudinaryへ画像をアップロードするBackend。
type CloudinaryBackend struct {
	uploader cloudinaryUploader
}

// NewCloudinaryBackend はCloudinaryBackendを生成する。
func NewCloudinaryBackend(cfg CloudinaryConfig) (*CloudinaryBackend, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &CloudinaryBackend{uploader: &cld.Upload}, nil
}

// CloudinaryFactory は設定からCloudinaryBackendを生成するBackendFactoryを返す。
// 認証情報が揃っていない場合はnilを返す。
func CloudinaryFactory(cfg CloudinaryConfig) BackendFactory {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil
	}
	return func(_ context.Context) (Backend, error) {
		return NewCloudinaryBackend(cfg)
	}
}

// Upload は画像をアップロードし、secure_urlとpublic_idを返す。
func (b *CloudinaryBackend) Upload(ctx context.Context, data []byte, folder, publicID, _ string) (*UploadResult, error) {
	resp, err := b.uploader.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload failed: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return nil, errors.New("cloudinary upload returned no secure_url")
	}
	return &UploadResult{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

var _ Backend = (*CloudinaryBackend)(nil)
