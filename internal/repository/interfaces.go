// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/bluestock/internal/model"
)

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Account, error)

	// FindByEmail はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// FindByMobile は携帯電話番号でアカウントを検索する。見つからない場合はnilを返す。
	FindByMobile(ctx context.Context, mobileNo string) (*model.Account, error)

	// CreateWithIdentity はアカウントとidentityを1つのSQL文で作成する。
	// email・mobile_no・identityの一意制約に違反した場合はErrDuplicateを返す。
	CreateWithIdentity(ctx context.Context, in *model.NewAccount) (*model.Account, error)

	// SetMobileVerified は携帯電話番号を検証済みにする。見つからない場合はnilを返す。
	SetMobileVerified(ctx context.Context, id int64) (*model.Account, error)

	// SetEmailVerified はメールアドレスを検証済みにする。見つからない場合はnilを返す。
	SetEmailVerified(ctx context.Context, id int64) (*model.Account, error)
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndSubject はproviderとsubjectでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndSubject(ctx context.Context, provider, subject string) (*model.Identity, error)
}

// CompanyRepository は企業プロフィールの永続化インターフェース。
// 1アカウントにつき1件のみ存在する。
type CompanyRepository interface {
	// FindByOwner はアカウントの企業プロフィールを取得する。見つからない場合はnilを返す。
	FindByOwner(ctx context.Context, ownerID int64) (*model.CompanyProfile, error)

	// Create は企業プロフィールを作成する。
	// 既に存在する場合はErrDuplicateを返す。
	Create(ctx context.Context, ownerID int64, fields *model.CompanyFields) (*model.CompanyProfile, error)

	// Update はpatchで指定された項目のみを更新する。見つからない場合はnilを返す。
	Update(ctx context.Context, ownerID int64, patch *model.CompanyPatch) (*model.CompanyProfile, error)

	// SetLogoURL はロゴ画像のURLを更新する。見つからない場合はnilを返す。
	SetLogoURL(ctx context.Context, ownerID int64, url string) (*model.CompanyProfile, error)

	// SetBannerURL はバナー画像のURLを更新する。見つからない場合はnilを返す。
	SetBannerURL(ctx context.Context, ownerID int64, url string) (*model.CompanyProfile, error)
}
