// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/bluestock/internal/auth"
	"github.com/hitoshi/bluestock/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	principalContextKey = contextKey("principal")
	identityContextKey  = contextKey("identity")
)

// SessionAuthenticator はAuthorizationヘッダーのセッショントークンを検証する。
// auth.TokenManagerが実装する。
type SessionAuthenticator interface {
	Authenticate(header string) (*auth.Principal, error)
}

// NewAuthMiddleware はBearerセッショントークンを検証するミドルウェアを返す。
// 認証済みのPrincipalをリクエストコンテキストに注入する。
// 検証に失敗した場合は401を返し、後続のハンドラーは実行しない。
func NewAuthMiddleware(authenticator SessionAuthenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticator.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				WriteError(w, r, err)
				return
			}

			setLoggedAccount(r.Context(), principal.AccountID)
			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewIdentityMiddleware はIDプロバイダーのアサーションを検証するミドルウェアを返す。
// アサーションはAuthorization: Bearerで受け取り、検証結果をコンテキストに注入する。
func NewIdentityMiddleware(verifier auth.AssertionVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assertion, err := auth.ExtractBearer(r.Header.Get("Authorization"))
			if err != nil {
				WriteError(w, r, err)
				return
			}

			identity, err := verifier.Verify(r.Context(), assertion)
			if err != nil {
				WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから認証済みのPrincipalを取得する。
// NewAuthMiddlewareを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (*auth.Principal, error) {
	p, ok := ctx.Value(principalContextKey).(*auth.Principal)
	if !ok || p == nil {
		return nil, fmt.Errorf("principal not found in context")
	}
	return p, nil
}

// ContextWithPrincipal はコンテキストにPrincipalを注入する。
func ContextWithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// IdentityFromContext はリクエストコンテキストから検証済みのIDを取得する。
func IdentityFromContext(ctx context.Context) (*auth.VerifiedIdentity, error) {
	identity, ok := ctx.Value(identityContextKey).(*auth.VerifiedIdentity)
	if !ok || identity == nil {
		return nil, model.NewUnauthorizedError("Missing identity token")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストに検証済みのIDを注入する。
func ContextWithIdentity(ctx context.Context, identity *auth.VerifiedIdentity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
