// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MediaProvider は画像アップロード先のメディアホストを表す。
type MediaProvider string

const (
	MediaProviderCloudinary MediaProvider = "cloudinary"
	MediaProviderS3         MediaProvider = "s3"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string
	CORSOrigin string
	LogLevel   string

	// Session token
	JWTSecret        string
	JWTExpiresInDays int

	// Database
	DB          DatabaseConfig
	DatabaseURL string

	// Identity provider
	Firebase FirebaseConfig

	// Media host
	MediaProvider  MediaProvider
	Cloudinary     CloudinaryConfig
	S3             S3Config
	UploadMaxBytes int64

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitAuth    int
}

// DatabaseConfig はPostgreSQL接続パラメータを保持する。
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// FirebaseConfig はFirebase Authenticationプロジェクトの設定を保持する。
type FirebaseConfig struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
	JWKSURL     string
}

// Configured はIDトークン検証に必要な設定が揃っているかを返す。
// 3項目すべてが揃っていない場合は未設定として扱う。
func (c FirebaseConfig) Configured() bool {
	return c.ProjectID != "" && c.ClientEmail != "" && c.PrivateKey != ""
}

// CloudinaryConfig はCloudinaryの認証情報を保持する。
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// Configured は認証情報がすべて設定されているかを返す。
func (c CloudinaryConfig) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// S3Config はS3互換ストレージの設定を保持する。
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
}

// Configured はアップロードに必要な設定が揃っているかを返す。
// 認証情報が空の場合はAWSのデフォルト認証チェーンを使用する。
func (c S3Config) Configured() bool {
	return c.Bucket != "" && c.Region != ""
}

// maxJWTExpiresInDays はセッショントークン有効日数の上限。
const maxJWTExpiresInDays = 3650

// SessionTTL はセッショントークンの有効期間を返す。
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.JWTExpiresInDays) * 24 * time.Hour
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.ServerPort = getEnvString("PORT", "5000")
	cfg.CORSOrigin = getEnvString("CORS_ORIGIN", "http://localhost:5173")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.JWTExpiresInDays = getEnvInt("JWT_EXPIRES_IN_DAYS", 90)
	if cfg.JWTExpiresInDays <= 0 || cfg.JWTExpiresInDays > maxJWTExpiresInDays {
		return nil, fmt.Errorf("JWT_EXPIRES_IN_DAYS must be between 1 and %d, got %d", maxJWTExpiresInDays, cfg.JWTExpiresInDays)
	}

	cfg.DB = DatabaseConfig{
		Host:     getEnvString("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnvString("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     getEnvString("DB_NAME", "company_db"),
		SSLMode:  getEnvString("DB_SSLMODE", "disable"),
	}
	cfg.DatabaseURL = getEnvString("DATABASE_URL", cfg.DB.URL())

	cfg.Firebase = FirebaseConfig{
		ProjectID:   os.Getenv("FIREBASE_PROJECT_ID"),
		ClientEmail: os.Getenv("FIREBASE_CLIENT_EMAIL"),
		PrivateKey:  normalizePrivateKey(os.Getenv("FIREBASE_PRIVATE_KEY")),
		JWKSURL:     os.Getenv("FIREBASE_JWKS_URL"),
	}
	if cfg.Firebase.PrivateKey != "" {
		if _, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.Firebase.PrivateKey)); err != nil {
			return nil, fmt.Errorf("FIREBASE_PRIVATE_KEY is not a valid RSA private key: %w", err)
		}
	}

	cfg.MediaProvider = MediaProvider(strings.ToLower(getEnvString("MEDIA_PROVIDER", string(MediaProviderCloudinary))))
	switch cfg.MediaProvider {
	case MediaProviderCloudinary, MediaProviderS3:
	default:
		return nil, fmt.Errorf("unsupported MEDIA_PROVIDER: %q", cfg.MediaProvider)
	}
	cfg.Cloudinary = CloudinaryConfig{
		CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
	}
	cfg.S3 = S3Config{
		Bucket:          os.Getenv("S3_BUCKET"),
		Region:          os.Getenv("S3_REGION"),
		Endpoint:        os.Getenv("S3_ENDPOINT"),
		PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
	}
	cfg.UploadMaxBytes = getEnvInt64("UPLOAD_MAX_BYTES", 2*1024*1024)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	if cfg.RateLimitGeneral <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_GENERAL must be positive, got %d", cfg.RateLimitGeneral)
	}
	if cfg.RateLimitAuth <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_AUTH must be positive, got %d", cfg.RateLimitAuth)
	}

	return cfg, nil
}

// URL はlib/pqが解釈できる接続URLを組み立てる。
func (c DatabaseConfig) URL() string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// normalizePrivateKey は環境変数内でエスケープされた改行を復元する。
func normalizePrivateKey(v string) string {
	return strings.ReplaceAll(v, `\n`, "\n")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}
