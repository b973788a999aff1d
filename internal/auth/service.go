// Package auth はIDプロバイダーのアサーション検証、セッショントークンの発行と検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/bluestock/internal/model"
	"github.com/hitoshi/bluestock/internal/repository"
	"github.com/hitoshi/bluestock/internal/security"
)

// RegisterInput はアカウント登録時の入力値を表す。
type RegisterInput struct {
	FullName   string
	Gender     string
	MobileNo   string
	SignupType string
}

// Result はRegister/Loginの結果を表す。
type Result struct {
	Token   string
	Account *model.Account
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	accounts   repository.AccountRepository
	identities repository.IdentityRepository
	tokens     *TokenManager
	sanitizer  security.TextSanitizer
}

// NewService はServiceを生成する。
func NewService(
	accounts repository.AccountRepository,
	identities repository.IdentityRepository,
	tokens *TokenManager,
	sanitizer security.TextSanitizer,
) *Service {
	return &Service{
		accounts:   accounts,
		identities: identities,
		tokens:     tokens,
		sanitizer:  sanitizer,
	}
}

// Register は検証済みのIDでアカウントを新規作成し、セッショントークンを発行する。
// 携帯電話番号が登録済みの場合、または一意制約違反が発生した場合はConflictを返す。
func (s *Service) Register(ctx context.Context, identity *VerifiedIdentity, in RegisterInput) (*Result, error) {
	if identity.Email == "" {
		return nil, model.NewValidationError("Email is required in identity token")
	}

	fullName := s.sanitizer.SanitizeText(in.FullName)
	mobileNo := s.sanitizer.SanitizeText(in.MobileNo)
	switch {
	case fullName == "":
		return nil, model.NewRequiredFieldError("full_name")
	case in.Gender == "":
		return nil, model.NewRequiredFieldError("gender")
	case mobileNo == "":
		return nil, model.NewRequiredFieldError("mobile_no")
	}

	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"email", identity.Email, model.MaxEmailLength},
		{"full_name", fullName, model.MaxFullNameLength},
		{"mobile_no", mobileNo, model.MaxMobileNoLength},
	} {
		if err := model.CheckMaxLength(f.name, f.value, f.max); err != nil {
			return nil, err
		}
	}

	gender, ok := model.ParseGender(in.Gender)
	if !ok {
		return nil, model.NewValidationError("gender must be one of m, f, o")
	}
	signupType, ok := model.ParseSignupType(in.SignupType)
	if !ok {
		return nil, model.NewValidationError("signup_type must be one of e, o")
	}

	existing, err := s.accounts.FindByMobile(ctx, mobileNo)
	if err != nil {
		return nil, fmt.Errorf("failed to check mobile number: %w", err)
	}
	if existing != nil {
		return nil, model.NewMobileExistsError()
	}

	linked, err := s.identities.FindByProviderAndSubject(ctx, model.IdentityProviderFirebase, identity.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to check identity: %w", err)
	}
	if linked != nil {
		return nil, model.NewAccountExistsError()
	}

	account, err := s.accounts.CreateWithIdentity(ctx, &model.NewAccount{
		Email:      identity.Email,
		FullName:   fullName,
		Gender:     gender,
		MobileNo:   mobileNo,
		SignupType: signupType,
		Provider:   model.IdentityProviderFirebase,
		Subject:    identity.Subject,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, model.NewAccountExistsError()
	}
	if errors.Is(err, repository.ErrValueTooLong) {
		return nil, model.NewValidationError("Input value is too long")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	token, err := s.tokens.Issue(account, identity.Subject)
	if err != nil {
		return nil, err
	}

	slog.Info("account registered",
		slog.Int64("account_id", account.ID),
		slog.String("signup_type", string(account.SignupType)),
	)
	return &Result{Token: token, Account: account}, nil
}

// Login は検証済みIDのメールアドレスでアカウントを特定し、セッショントークンを発行する。
// アカウントが存在しない場合は自動作成せずNotFoundを返す。
func (s *Service) Login(ctx context.Context, identity *VerifiedIdentity) (*Result, error) {
	if identity.Email == "" {
		return nil, model.NewAccountNotFoundError()
	}

	account, err := s.accounts.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}

	token, err := s.tokens.Issue(account, identity.Subject)
	if err != nil {
		return nil, err
	}

	slog.Info("account logged in", slog.Int64("account_id", account.ID))
	return &Result{Token: token, Account: account}, nil
}
