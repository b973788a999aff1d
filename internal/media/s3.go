package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config はS3互換ストレージの設定。
// Endpointを指定した場合はMinIO等を想定してパススタイルでアクセスする。
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
}

// objectPutter はS3クライアントのPutObject API。
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Backend はS3互換ストレージへ画像をアップロードするBackend。
type S3Backend struct {
	client  objectPutter
	bucket  string
	baseURL string
}

// NewS3Backend はS3Backendを生成する。
// 認証情報が指定されていない場合はAWSのデフォルト認証チェーンを使用する。
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Backend{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBaseURL(cfg),
	}, nil
}

// S3Factory は設定からS3Backendを生成するBackendFactoryを返す。
// バケットとリージョンが揃っていない場合はnilを返す。
func S3Factory(cfg S3Config) BackendFactory {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil
	}
	return func(ctx context.Context) (Backend, error) {
		return NewS3Backend(ctx, cfg)
	}
}

// Upload は画像をfolder/publicIDのキーで保存し、公開URLを返す。
func (b *S3Backend) Upload(ctx context.Context, data []byte, folder, publicID, contentType string) (*UploadResult, error) {
	key := folder + "/" + publicID
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put object failed: %w", err)
	}
	return &UploadResult{URL: b.baseURL + "/" + key, PublicID: key}, nil
}

// publicBaseURL はアップロードしたオブジェクトの公開URLの接頭辞を返す。
func publicBaseURL(cfg S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

var _ Backend = (*S3Backend)(nil)
