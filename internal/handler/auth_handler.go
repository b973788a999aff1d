package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/bluestock/internal/auth"
	"github.com/hitoshi/bluestock/internal/metrics"
	"github.com/hitoshi/bluestock/internal/middleware"
	"github.com/hitoshi/bluestock/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は検証済みIDでアカウントを作成し、セッショントークンを発行する。
	Register(ctx context.Context, identity *auth.VerifiedIdentity, req registerRequest) (*authResult, error)
	// Login は検証済みIDのアカウントにセッショントークンを発行する。
	Login(ctx context.Context, identity *auth.VerifiedIdentity) (*authResult, error)
}

// AccountServiceInterface はアカウント検証状態の更新に必要なサービスインターフェース。
type AccountServiceInterface interface {
	VerifyMobile(ctx context.Context, accountID int64, otp string) (*model.Account, error)
	VerifyEmail(ctx context.Context, accountID int64) (*model.Account, error)
}

// authResult は登録・ログインの結果。
type authResult struct {
	Token string
	User  userResponse
}

// registerRequest はアカウント登録リクエストのボディ。
type registerRequest struct {
	FullName   string     `json:"full_name"`
	Gender     string     `json:"gender"`
	MobileNo   flexString `json:"mobile_no"`
	SignupType string     `json:"signup_type"`
}

// verifyMobileRequest は携帯電話番号検証リクエストのボディ。
type verifyMobileRequest struct {
	OTP flexString `json:"otp"`
}

// authResponse は登録・ログインのAPIレスポンス。
type authResponse struct {
	Message  string       `json:"message"`
	AppToken string       `json:"appToken"`
	User     userResponse `json:"user"`
}

// verificationResponse は検証状態更新のAPIレスポンス。
type verificationResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	accounts AccountServiceInterface
	metrics  metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, accounts AccountServiceInterface, collector metrics.MetricsCollector) *AuthHandler {
	if collector == nil {
		collector = noopMetrics{}
	}
	return &AuthHandler{
		service:  service,
		accounts: accounts,
		metrics:  collector,
	}
}

// Register はアカウント登録を処理する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req, false); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	result, err := h.service.Register(r.Context(), identity, req)
	if err != nil {
		h.metrics.RecordAuthAttempt("register", metrics.ResultFailure)
		middleware.WriteError(w, r, err)
		return
	}
	h.metrics.RecordAuthAttempt("register", metrics.ResultSuccess)

	writeJSON(w, http.StatusCreated, authResponse{
		Message:  "User registered successfully",
		AppToken: result.Token,
		User:     result.User,
	})
}

// Login はログインを処理する。アカウントが存在しない場合は404を返す。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	result, err := h.service.Login(r.Context(), identity)
	if err != nil {
		h.metrics.RecordAuthAttempt("login", metrics.ResultFailure)
		middleware.WriteError(w, r, err)
		return
	}
	h.metrics.RecordAuthAttempt("login", metrics.ResultSuccess)

	writeJSON(w, http.StatusOK, authResponse{
		Message:  "Login successful",
		AppToken: result.Token,
		User:     result.User,
	})
}

// VerifyMobile はOTPを受け取り携帯電話番号を検証済みにする。
// POST /api/auth/verify-mobile
func (h *AuthHandler) VerifyMobile(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, r, model.NewUnauthorizedError("Missing Authorization header"))
		return
	}

	var req verifyMobileRequest
	if err := decodeJSON(r, &req, false); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	account, err := h.accounts.VerifyMobile(r.Context(), principal.AccountID, string(req.OTP))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, verificationResponse{
		Message: "Mobile verified successfully",
		User:    toUserResponse(account),
	})
}

// VerifyEmail はメールアドレスを検証済みにする。
// GET /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, r, model.NewUnauthorizedError("Missing Authorization header"))
		return
	}

	account, err := h.accounts.VerifyEmail(r.Context(), principal.AccountID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, verificationResponse{
		Message: "Email verified successfully",
		User:    toUserResponse(account),
	})
}
