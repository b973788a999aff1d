// Package app はアプリケーションの初期化と起動モードごとのエントリーポイントを提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/bluestock/internal/auth"
	"github.com/hitoshi/bluestock/internal/company"
	"github.com/hitoshi/bluestock/internal/config"
	"github.com/hitoshi/bluestock/internal/database"
	"github.com/hitoshi/bluestock/internal/handler"
	"github.com/hitoshi/bluestock/internal/logger"
	"github.com/hitoshi/bluestock/internal/media"
	"github.com/hitoshi/bluestock/internal/metrics"
	"github.com/hitoshi/bluestock/internal/middleware"
	"github.com/hitoshi/bluestock/internal/repository"
	"github.com/hitoshi/bluestock/internal/security"
	"github.com/hitoshi/bluestock/internal/user"
)

// jwksFetchTimeout はJWKS取得時のHTTPタイムアウト。
const jwksFetchTimeout = 10 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "5000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("media_provider", string(cfg.MediaProvider)),
		slog.Bool("identity_provider_configured", cfg.Firebase.Configured()),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandMigrateDown:
		return runMigrateDown(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 1. DB接続
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. 依存関係のワイヤリング
	router, cleanup, err := newHandler(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer cleanup()

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newHandler はリポジトリ・サービス・ミドルウェアを組み立ててルーターを返す。
// 返されるcleanupはレートリミッターのバックグラウンド処理を停止する。
func newHandler(ctx context.Context, cfg *config.Config, db *sql.DB) (http.Handler, func(), error) {
	// 1. リポジトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db)
	identityRepo := repository.NewPostgresIdentityRepo(db)
	companyRepo := repository.NewPostgresCompanyRepo(db)

	// 2. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()

	// 3. IDプロバイダーの初期化
	// 未設定の場合は鍵セットを持たず、登録・ログインはServiceUnavailableになる
	var keys auth.KeySetSource
	if cfg.Firebase.Configured() {
		jwksURL := cfg.Firebase.JWKSURL
		if jwksURL == "" {
			jwksURL = auth.DefaultFirebaseJWKSURL
		}
		source, err := auth.NewJWKSKeySource(ctx, ssrfGuard.NewSafeClient(jwksFetchTimeout), jwksURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize identity provider keys: %w", err)
		}
		keys = source
	} else {
		slog.Warn("identity provider is not configured; register and login will be unavailable")
	}
	verifier := auth.NewFirebaseVerifier(auth.FirebaseConfig{
		ProjectID:   cfg.Firebase.ProjectID,
		ClientEmail: cfg.Firebase.ClientEmail,
		PrivateKey:  cfg.Firebase.PrivateKey,
	}, keys)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL())

	// 4. メディアホストの初期化（クライアントは初回アップロード時に生成する）
	relay := media.NewRelay(cfg.UploadMaxBytes, mediaFactory(cfg))

	// 5. ドメインサービスの初期化
	authService := auth.NewService(accountRepo, identityRepo, tokens, sanitizer)
	accountService := user.NewService(accountRepo)
	companyService := company.NewService(companyRepo, sanitizer, ssrfGuard, relay)

	// 6. メトリクスの初期化
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSOrigin,
		Authenticator:     tokens,
		Verifier:          verifier,
		RateLimiter:       rateLimiter,

		AuthService:    handler.NewAuthServiceAdapter(authService),
		AccountService: accountService,
		CompanyService: companyService,

		Metrics:         collector,
		MetricsGatherer: registry,

		MaxJSONBytes:   handler.DefaultMaxJSONBytes,
		UploadMaxBytes: relay.MaxBytes(),
	})

	return router, rateLimiter.Stop, nil
}

// mediaFactory は設定されたメディアホストのBackendFactoryを返す。
// 必要な設定が揃っていない場合はnilを返し、アップロードはServiceUnavailableになる。
func mediaFactory(cfg *config.Config) media.BackendFactory {
	cld := media.CloudinaryConfig{
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
	}
	s3cfg := media.S3Config{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		PublicBaseURL:   cfg.S3.PublicBaseURL,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	}

	switch cfg.MediaProvider {
	case config.MediaProviderS3:
		if !cfg.S3.Configured() {
			return nil
		}
	default:
		if !cfg.Cloudinary.Configured() {
			return nil
		}
	}
	return media.NewFactory(string(cfg.MediaProvider), cld, s3cfg)
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runMigrateDown は直近のマイグレーションを1つ取り消す。
func runMigrateDown(cfg *config.Config) error {
	slog.Info("rolling back the latest database migration",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration rollback failed: %w", err)
	}

	slog.Info("database migration rolled back")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
