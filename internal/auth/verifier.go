package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/hitoshi/bluestock/internal/model"
)

// DefaultFirebaseJWKSURL はFirebase IDトークンの署名鍵を配布するエンドポイント。
const DefaultFirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// firebaseIssuerPrefix にプロジェクトIDを連結した値がIDトークンのissになる。
const firebaseIssuerPrefix = "https://securetoken.google.com/"

// clockSkew はiat/exp/auth_timeの検証で許容する時刻のずれ。
const clockSkew = 60 * time.Second

// VerifiedIdentity はIDプロバイダーが検証済みの利用者情報を表す。
type VerifiedIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// AssertionVerifier はIDプロバイダーが発行したアサーションを検証するインターフェース。
type AssertionVerifier interface {
	// Verify はアサーションを検証し、利用者情報を返す。
	// 検証に失敗した場合はUnauthorized、プロバイダーが未設定の場合はServiceUnavailableを返す。
	Verify(ctx context.Context, assertion string) (*VerifiedIdentity, error)
}

// KeySetSource はIDトークンの検証に使う公開鍵セットを提供する。
type KeySetSource interface {
	KeySet(ctx context.Context) (jwk.Set, error)
}

// jwksRegisterTimeout はJWKS URL登録時に初回取得を待つ上限。
const jwksRegisterTimeout = 5 * time.Second

// jwksRetryInterval は初回取得が完了していない場合の同期再取得の最小間隔。
const jwksRetryInterval = 10 * time.Second

// JWKSKeySource はjwk.Cacheを使ってJWKSを取得・自動更新するKeySetSource。
// URLの登録は最初の利用時に1回だけ行う。
// 初回取得に失敗した場合、登録はそのままにして同期的な再取得で回復する。
type JWKSKeySource struct {
	cache *jwk.Cache
	url   string

	registerTimeout time.Duration
	retryInterval   time.Duration
	now             func() time.Time

	mu          sync.Mutex
	registered  bool
	lastRefresh time.Time
}

// NewJWKSKeySource はJWKSKeySourceを生成する。
// httpClientにはSSRF防止付きのクライアントを渡すことを想定している。
func NewJWKSKeySource(ctx context.Context, httpClient *http.Client, url string) (*JWKSKeySource, error) {
	client := httprc.NewClient(httprc.WithHTTPClient(httpClient))
	cache, err := jwk.NewCache(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS cache: %w", err)
	}
	return &JWKSKeySource{
		cache:           cache,
		url:             url,
		registerTimeout: jwksRegisterTimeout,
		retryInterval:   jwksRetryInterval,
		now:             time.Now,
	}, nil
}

// KeySet はキャッシュ済みの鍵セットを返す。
// まだ一度も取得できていない場合は同期的に再取得を試みる。
func (s *JWKSKeySource) KeySet(ctx context.Context) (jwk.Set, error) {
	if err := s.ensureRegistered(ctx); err != nil {
		return nil, err
	}
	if set, err := s.cache.Lookup(ctx, s.url); err == nil {
		return set, nil
	}
	return s.refresh(ctx)
}

func (s *JWKSKeySource) ensureRegistered(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registered {
		return nil
	}

	registrationCtx, cancel := context.WithTimeout(ctx, s.registerTimeout)
	defer cancel()

	err := s.cache.Register(registrationCtx, s.url)
	switch {
	case err == nil:
	case errors.Is(err, httprc.ErrNotReady()), errors.Is(err, httprc.ErrResourceAlreadyExists()):
		// 登録済み。初回取得はバックグラウンドで継続される
		slog.Warn("JWKS registered but not ready", slog.String("error", err.Error()))
	default:
		return fmt.Errorf("failed to register JWKS URL: %w", err)
	}
	s.registered = true
	s.lastRefresh = s.now()
	return nil
}

// refresh は鍵セットを同期的に取得し直す。
// 上流の障害時に全リクエストが再取得しないよう、retryIntervalで間引く。
func (s *JWKSKeySource) refresh(ctx context.Context) (jwk.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, err := s.cache.Lookup(ctx, s.url); err == nil {
		return set, nil
	}
	if s.now().Sub(s.lastRefresh) < s.retryInterval {
		return nil, errors.New("JWKS is not ready")
	}
	s.lastRefresh = s.now()

	refreshCtx, cancel := context.WithTimeout(ctx, s.registerTimeout)
	defer cancel()

	set, err := s.cache.Refresh(refreshCtx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	return set, nil
}

// FirebaseConfig はFirebaseVerifierの設定。
// ProjectID、ClientEmail、PrivateKeyがすべて揃っている場合のみ有効とする。
type FirebaseConfig struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
}

func (c FirebaseConfig) configured() bool {
	return c.ProjectID != "" && c.ClientEmail != "" && c.PrivateKey != ""
}

// firebaseClaims はFirebase IDトークンのクレーム。
type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	AuthTime      int64  `json:"auth_time"`
	jwt.RegisteredClaims
}

// FirebaseVerifier はFirebase IDトークンをRS256で検証する。
type FirebaseVerifier struct {
	config FirebaseConfig
	keys   KeySetSource
	now    func() time.Time
}

// NewFirebaseVerifier はFirebaseVerifierを生成する。
func NewFirebaseVerifier(config FirebaseConfig, keys KeySetSource) *FirebaseVerifier {
	return &FirebaseVerifier{
		config: config,
		keys:   keys,
		now:    time.Now,
	}
}

// Verify はFirebase IDトークンを検証する。
// iss/aud/sub/exp/iat/auth_timeを検証し、メールアドレスは小文字に正規化する。
func (v *FirebaseVerifier) Verify(ctx context.Context, assertion string) (*VerifiedIdentity, error) {
	if !v.config.configured() || v.keys == nil {
		return nil, model.NewServiceUnavailableError("Identity provider")
	}
	if assertion == "" {
		return nil, model.NewUnauthorizedError("Missing identity token")
	}

	claims := &firebaseClaims{}
	token, err := jwt.ParseWithClaims(assertion, claims,
		func(token *jwt.Token) (any, error) {
			return v.lookupKey(ctx, token)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(firebaseIssuerPrefix+v.config.ProjectID),
		jwt.WithAudience(v.config.ProjectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !token.Valid {
		slog.Debug("identity token rejected", slog.String("error", fmt.Sprint(err)))
		return nil, model.NewUnauthorizedError("Invalid identity token")
	}

	if claims.Subject == "" {
		return nil, model.NewUnauthorizedError("Invalid identity token")
	}
	if claims.AuthTime > 0 && time.Unix(claims.AuthTime, 0).After(v.now().Add(clockSkew)) {
		return nil, model.NewUnauthorizedError("Invalid identity token")
	}

	return &VerifiedIdentity{
		Subject:       claims.Subject,
		Email:         strings.ToLower(strings.TrimSpace(claims.Email)),
		EmailVerified: claims.EmailVerified,
	}, nil
}

// lookupKey はトークンヘッダーのkidに対応する公開鍵を返す。
func (v *FirebaseVerifier) lookupKey(ctx context.Context, token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	kid, ok := token.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, fmt.Errorf("token header missing kid")
	}

	keySet, err := v.keys.KeySet(ctx)
	if err != nil {
		slog.Warn("failed to load identity provider keys", slog.String("error", err.Error()))
		return nil, err
	}

	key, found := keySet.LookupKeyID(kid)
	if !found {
		return nil, fmt.Errorf("key ID %s not found in JWKS", kid)
	}

	var rawKey any
	if err := jwk.Export(key, &rawKey); err != nil {
		return nil, fmt.Errorf("failed to export raw key: %w", err)
	}
	return rawKey, nil
}

// compile-time interface check
var _ AssertionVerifier = (*FirebaseVerifier)(nil)
var _ KeySetSource = (*JWKSKeySource)(nil)
