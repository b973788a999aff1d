package handler

import (
	"context"

	"github.com/hitoshi/bluestock/internal/auth"
	"github.com/hitoshi/bluestock/internal/company"
	"github.com/hitoshi/bluestock/internal/user"
)

// AuthServiceAdapter は auth.Service を AuthServiceInterface に適合させるアダプタ。
type AuthServiceAdapter struct {
	svc *auth.Service
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。
func NewAuthServiceAdapter(svc *auth.Service) *AuthServiceAdapter {
	return &AuthServiceAdapter{svc: svc}
}

// Register はリクエストボディをサービスの入力値に変換してアカウントを登録する。
func (a *AuthServiceAdapter) Register(ctx context.Context, identity *auth.VerifiedIdentity, req registerRequest) (*authResult, error) {
	result, err := a.svc.Register(ctx, identity, auth.RegisterInput{
		FullName:   req.FullName,
		Gender:     req.Gender,
		MobileNo:   string(req.MobileNo),
		SignupType: req.SignupType,
	})
	if err != nil {
		return nil, err
	}
	return &authResult{Token: result.Token, User: toUserResponse(result.Account)}, nil
}

// Login は検証済みIDでログインする。
func (a *AuthServiceAdapter) Login(ctx context.Context, identity *auth.VerifiedIdentity) (*authResult, error) {
	result, err := a.svc.Login(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &authResult{Token: result.Token, User: toUserResponse(result.Account)}, nil
}

// コンパイル時にインターフェース実装を検証する
var (
	_ AuthServiceInterface    = (*AuthServiceAdapter)(nil)
	_ AccountServiceInterface = (*user.Service)(nil)
	_ CompanyServiceInterface = (*company.Service)(nil)
)
