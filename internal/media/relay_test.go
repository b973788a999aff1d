package media

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hitoshi/bluestock/internal/model"
)

// fakeBackend はアップロード内容を記録するテスト用Backend。
type fakeBackend struct {
	uploadFn func(ctx context.Context, data []byte, folder, publicID, contentType string) (*UploadResult, error)
	calls    int
}

func (f *fakeBackend) Upload(ctx context.Context, data []byte, folder, publicID, contentType string) (*UploadResult, error) {
	f.calls++
	if f.uploadFn != nil {
		return f.uploadFn(ctx, data, folder, publicID, contentType)
	}
	return &UploadResult{URL: "https://cdn.example.com/" + folder + "/" + publicID, PublicID: folder + "/" + publicID}, nil
}

func staticFactory(b Backend) BackendFactory {
	return func(_ context.Context) (Backend, error) { return b, nil }
}

// pngBytes はPNGとして判定されるn バイトのデータを返す。
func pngBytes(n int) []byte {
	header := []byte("\x89PNG\r\n\x1a\n")
	if n < len(header) {
		n = len(header)
	}
	data := make([]byte, n)
	copy(data, header)
	return data
}

func kindOf(t *testing.T, err error) model.ErrorKind {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	return apiErr.Kind
}

func TestRelay_Upload_Success(t *testing.T) {
	backend := &fakeBackend{}
	relay := NewRelay(DefaultMaxBytes, staticFactory(backend))

	result, err := relay.Upload(context.Background(), pngBytes(1024), FolderLogo)
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if !strings.HasPrefix(result.PublicID, FolderLogo+"/") {
		t.Errorf("PublicID = %q, want prefix %q", result.PublicID, FolderLogo+"/")
	}
	if _, err := uuid.Parse(strings.TrimPrefix(result.PublicID, FolderLogo+"/")); err != nil {
		t.Errorf("public id is not a uuid: %v", err)
	}
	if result.URL == "" {
		t.Error("URL should not be empty")
	}
}

func TestRelay_Upload_PassesDetectedContentType(t *testing.T) {
	var gotType string
	backend := &fakeBackend{
		uploadFn: func(_ context.Context, _ []byte, _, _, contentType string) (*UploadResult, error) {
			gotType = contentType
			return &UploadResult{URL: "u", PublicID: "p"}, nil
		},
	}
	relay := NewRelay(DefaultMaxBytes, staticFactory(backend))

	if _, err := relay.Upload(context.Background(), pngBytes(64), FolderBanner); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if gotType != "image/png" {
		t.Errorf("contentType = %q, want %q", gotType, "image/png")
	}
}

func TestRelay_Validate_Rejections(t *testing.T) {
	relay := NewRelay(DefaultMaxBytes, staticFactory(&fakeBackend{}))

	tests := []struct {
		name     string
		data     []byte
		wantCode string
	}{
		{"空ファイル", nil, model.ErrCodeFileRequired},
		{"3MBは上限超過", pngBytes(3 * 1024 * 1024), model.ErrCodeFileTooLarge},
		{"上限+1バイト", pngBytes(int(DefaultMaxBytes) + 1), model.ErrCodeFileTooLarge},
		{"画像以外", []byte("%PDF-1.4 not an image"), model.ErrCodeUnsupportedFile},
		{"テキスト", []byte("hello world"), model.ErrCodeUnsupportedFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := relay.Validate(tt.data)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *model.APIError, got %v", err)
			}
			if apiErr.Kind != model.KindBadRequest || apiErr.Code != tt.wantCode {
				t.Errorf("got %s/%s, want bad_request/%s", apiErr.Kind, apiErr.Code, tt.wantCode)
			}
		})
	}
}

func TestRelay_Validate_ExactlyAtLimit(t *testing.T) {
	relay := NewRelay(DefaultMaxBytes, nil)
	if _, err := relay.Validate(pngBytes(int(DefaultMaxBytes))); err != nil {
		t.Errorf("payload at the limit should be accepted, got %v", err)
	}
}

func TestRelay_Upload_TooLargeDoesNotReachBackend(t *testing.T) {
	backend := &fakeBackend{}
	relay := NewRelay(DefaultMaxBytes, staticFactory(backend))

	_, err := relay.Upload(context.Background(), pngBytes(3*1024*1024), FolderLogo)
	if kindOf(t, err) != model.KindBadRequest {
		t.Errorf("expected bad_request, got %v", err)
	}
	if backend.calls != 0 {
		t.Errorf("backend calls = %d, want 0", backend.calls)
	}
}

func TestRelay_NotConfigured(t *testing.T) {
	relay := NewRelay(DefaultMaxBytes, nil)

	if relay.Configured() {
		t.Error("Configured() should be false without a factory")
	}
	_, err := relay.Upload(context.Background(), pngBytes(64), FolderLogo)
	if kindOf(t, err) != model.KindServiceUnavailable {
		t.Errorf("expected service_unavailable, got %v", err)
	}
}

// Backendは最初のアップロード時に1回だけ生成されることを検証
func TestRelay_LazyInitOnce(t *testing.T) {
	created := 0
	relay := NewRelay(DefaultMaxBytes, func(_ context.Context) (Backend, error) {
		created++
		return &fakeBackend{}, nil
	})

	if created != 0 {
		t.Fatalf("backend created eagerly")
	}
	for i := 0; i < 3; i++ {
		if _, err := relay.Upload(context.Background(), pngBytes(64), FolderLogo); err != nil {
			t.Fatalf("Upload #%d returned error: %v", i, err)
		}
	}
	if created != 1 {
		t.Errorf("backend created %d times, want 1", created)
	}
}

func TestRelay_FactoryErrorIsRetried(t *testing.T) {
	attempts := 0
	relay := NewRelay(DefaultMaxBytes, func(_ context.Context) (Backend, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("bad credentials")
		}
		return &fakeBackend{}, nil
	})

	if _, err := relay.Upload(context.Background(), pngBytes(64), FolderLogo); err == nil {
		t.Fatal("expected error from failing factory")
	}
	if _, err := relay.Upload(context.Background(), pngBytes(64), FolderLogo); err != nil {
		t.Fatalf("second Upload returned error: %v", err)
	}
}

func TestRelay_BackendError(t *testing.T) {
	backend := &fakeBackend{
		uploadFn: func(_ context.Context, _ []byte, _, _, _ string) (*UploadResult, error) {
			return nil, errors.New("503 from host")
		},
	}
	relay := NewRelay(DefaultMaxBytes, staticFactory(backend))

	_, err := relay.Upload(context.Background(), pngBytes(64), FolderLogo)
	var apiErr *model.APIError
	if err == nil || errors.As(err, &apiErr) {
		t.Fatalf("expected wrapped non-API error, got %v", err)
	}
}

func TestNewFactory(t *testing.T) {
	cld := CloudinaryConfig{CloudName: "demo", APIKey: "k", APISecret: "s"}
	s3cfg := S3Config{Bucket: "b", Region: "us-east-1"}

	if NewFactory("cloudinary", cld, S3Config{}) == nil {
		t.Error("cloudinary factory should be configured")
	}
	if NewFactory("cloudinary", CloudinaryConfig{CloudName: "demo"}, s3cfg) != nil {
		t.Error("partial cloudinary config should be unconfigured")
	}
	if NewFactory("s3", CloudinaryConfig{}, s3cfg) == nil {
		t.Error("s3 factory should be configured")
	}
	if NewFactory("s3", cld, S3Config{Bucket: "b"}) != nil {
		t.Error("s3 without region should be unconfigured")
	}
}

func TestNewRelay_DefaultsMaxBytes(t *testing.T) {
	if got := NewRelay(0, nil).MaxBytes(); got != DefaultMaxBytes {
		t.Errorf("MaxBytes() = %d, want %d", got, DefaultMaxBytes)
	}
	if !bytes.HasPrefix(pngBytes(16), []byte("\x89PNG")) {
		t.Error("pngBytes helper is broken")
	}
}
