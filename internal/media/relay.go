// Package media は画像ファイルを外部のメディアホストへ中継する。
package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hitoshi/bluestock/internal/model"
)

// アップロード先のフォルダ。
const (
	FolderLogo   = "company/logo"
	FolderBanner = "company/banner"
)

// DefaultMaxBytes はアップロード可能な画像の最大サイズ（2MB）。
const DefaultMaxBytes int64 = 2 * 1024 * 1024

// UploadResult はアップロード結果を表す。
type UploadResult struct {
	URL      string
	PublicID string
}

// Backend はメディアホストへのアップロードを行うインターフェース。
type Backend interface {
	// Upload はdataをfolder/publicIDとして保存し、公開URLを返す。
	Upload(ctx context.Context, data []byte, folder, publicID, contentType string) (*UploadResult, error)
}

// BackendFactory は最初のアップロード時に1回だけ呼ばれ、Backendを生成する。
type BackendFactory func(ctx context.Context) (Backend, error)

// Relay は画像の検証とメディアホストへの中継を行う。
// Backendは最初の利用時に生成し、以降はプロセス終了まで使い回す。
type Relay struct {
	maxBytes   int64
	newBackend BackendFactory

	mu      sync.Mutex
	backend Backend
}

// NewRelay はRelayを生成する。
// factoryがnilの場合はメディアホスト未設定として扱う。
func NewRelay(maxBytes int64, factory BackendFactory) *Relay {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Relay{maxBytes: maxBytes, newBackend: factory}
}

// MaxBytes はアップロード可能な最大サイズを返す。
func (r *Relay) MaxBytes() int64 {
	return r.maxBytes
}

// Configured はメディアホストが設定されているかを返す。
func (r *Relay) Configured() bool {
	return r.newBackend != nil
}

// Validate はペイロードが空でなく、上限以下の画像であることを検証する。
// 検証に成功した場合は判定したContent-Typeを返す。
func (r *Relay) Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", model.NewFileRequiredError()
	}
	if int64(len(data)) > r.maxBytes {
		return "", model.NewFileTooLargeError(r.maxBytes)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", model.NewUnsupportedFileError(contentType)
	}
	return contentType, nil
}

// Upload は画像を検証してfolder配下にアップロードする。
// オブジェクト名はfolder/<uuid>になる。
func (r *Relay) Upload(ctx context.Context, data []byte, folder string) (*UploadResult, error) {
	contentType, err := r.Validate(data)
	if err != nil {
		return nil, err
	}

	backend, err := r.getBackend(ctx)
	if err != nil {
		return nil, err
	}

	publicID := uuid.NewString()
	result, err := backend.Upload(ctx, data, folder, publicID, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to media host: %w", err)
	}

	slog.Info("media uploaded",
		slog.String("folder", folder),
		slog.String("public_id", result.PublicID),
		slog.Int("bytes", len(data)),
	)
	return result, nil
}

func (r *Relay) getBackend(ctx context.Context) (Backend, error) {
	if r.newBackend == nil {
		return nil, model.NewServiceUnavailableError("Media host")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend != nil {
		return r.backend, nil
	}
	backend, err := r.newBackend(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media host client: %w", err)
	}
	r.backend = backend
	return backend, nil
}

// NewFactory はプロバイダー名に応じたBackendFactoryを返す。
// 選択したプロバイダーの設定が揃っていない場合はnilを返す。
func NewFactory(provider string, cld CloudinaryConfig, s3cfg S3Config) BackendFactory {
	switch strings.ToLower(provider) {
	case "s3":
		return S3Factory(s3cfg)
	default:
		return CloudinaryFactory(cld)
	}
}
