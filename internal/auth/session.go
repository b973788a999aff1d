package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/bluestock/internal/model"
)

// SessionIssuer はセッショントークンのiss。
const SessionIssuer = "bluestock"

// SessionClaims はセッショントークンのクレーム。
type SessionClaims struct {
	AccountID       int64  `json:"account_id"`
	Email           string `json:"email"`
	IdentitySubject string `json:"identity_subject"`
	jwt.RegisteredClaims
}

// Principal は認証済みリクエストの主体を表す。
type Principal struct {
	AccountID       int64
	Email           string
	IdentitySubject string
}

// TokenManager はHS256で署名したセッショントークンを発行・検証する。
// トークンはステートレスで、失効リストは持たない。
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue はアカウントのセッショントークンを発行する。
func (m *TokenManager) Issue(account *model.Account, identitySubject string) (string, error) {
	now := m.now()
	claims := SessionClaims{
		AccountID:       account.ID,
		Email:           account.Email,
		IdentitySubject: identitySubject,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    SessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse はセッショントークンを検証してPrincipalを返す。
// HS256以外の署名方式、署名不一致、期限切れはすべてUnauthorizedになる。
func (m *TokenManager) Parse(tokenString string) (*Principal, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(SessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, model.NewUnauthorizedError("Invalid or expired token")
	}
	if claims.AccountID <= 0 {
		return nil, model.NewUnauthorizedError("Invalid or expired token")
	}

	return &Principal{
		AccountID:       claims.AccountID,
		Email:           claims.Email,
		IdentitySubject: claims.IdentitySubject,
	}, nil
}

// Authenticate はAuthorizationヘッダーの値からPrincipalを取得する。
func (m *TokenManager) Authenticate(header string) (*Principal, error) {
	tokenString, err := ExtractBearer(header)
	if err != nil {
		return nil, err
	}
	return m.Parse(tokenString)
}
