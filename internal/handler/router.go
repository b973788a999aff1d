// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/bluestock/internal/auth"
	"github.com/hitoshi/bluestock/internal/metrics"
	"github.com/hitoshi/bluestock/internal/middleware"
	"github.com/hitoshi/bluestock/internal/model"
)

// DefaultMaxJSONBytes はJSONリクエストボディの上限。
const DefaultMaxJSONBytes = 2 * 1024 * 1024

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	Authenticator     middleware.SessionAuthenticator
	Verifier          auth.AssertionVerifier
	RateLimiter       *middleware.RateLimiter

	// サービス
	AuthService    AuthServiceInterface
	AccountService AccountServiceInterface
	CompanyService CompanyServiceInterface

	// メトリクス。nilの場合は記録しない
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// リクエストボディの上限
	MaxJSONBytes   int64
	UploadMaxBytes int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Logging → Recovery → Metrics → SecurityHeaders → CORS → Compress
//
// 認証ルート（/api/auth/register, /api/auth/login）はIPごとのレート制限の後にIDトークンを検証する。
// それ以外の/api配下はセッショントークンを検証した後、アカウントごとのレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	maxJSON := deps.MaxJSONBytes
	if maxJSON <= 0 {
		maxJSON = DefaultMaxJSONBytes
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Metrics != nil {
		r.Use(metrics.Middleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(chimw.Compress(5))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, 0, model.NewRouteNotFoundError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, 0, model.NewMethodNotAllowedError())
	})

	authHandler := NewAuthHandler(deps.AuthService, deps.AccountService, deps.Metrics)
	companyHandler := NewCompanyHandler(deps.CompanyService, deps.UploadMaxBytes, deps.Metrics)

	// --- 認証不要のルート ---
	r.Get("/health", Health)
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- IDトークンで認証するルート ---
	// ミドルウェアスタック: RateLimit(Auth) → Identity
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Use(middleware.NewIdentityMiddleware(deps.Verifier))
		r.Use(chimw.RequestSize(maxJSON))

		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// --- セッショントークンで認証するルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.With(chimw.RequestSize(maxJSON)).Post("/api/auth/verify-mobile", authHandler.VerifyMobile)
		r.Get("/api/auth/verify-email", authHandler.VerifyEmail)

		r.Route("/api/company", func(r chi.Router) {
			r.Get("/profile", companyHandler.GetProfile)
			r.With(chimw.RequestSize(maxJSON)).Put("/profile", companyHandler.UpdateProfile)
			r.With(chimw.RequestSize(maxJSON)).Post("/register", companyHandler.RegisterProfile)

			// アップロードはハンドラー内でファイルサイズ上限を適用する
			r.Post("/upload-logo", companyHandler.UploadLogo)
			r.Post("/upload-banner", companyHandler.UploadBanner)
		})
	})

	return r
}

// healthResponse はヘルスチェックのAPIレスポンス。
type healthResponse struct {
	OK bool `json:"ok"`
}

// Health はヘルスチェックに応答する。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{OK: true})
}

// noopMetrics はメトリクスを記録しないMetricsCollector。
type noopMetrics struct{}

func (noopMetrics) RecordRequest(string, string, int, time.Duration) {}
func (noopMetrics) RecordAuthAttempt(string, string)                 {}
func (noopMetrics) RecordUpload(string, string, int)                 {}
