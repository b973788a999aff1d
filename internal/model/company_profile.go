package model

import "time"

// 企業プロフィール項目の最大文字数。company_profileテーブルの列定義と一致させる。
const (
	MaxCompanyNameLength = 255
	MaxLocationLength    = 100
	MaxPostalCodeLength  = 20
	MaxIndustryLength    = 100
)

// CompanyProfile はアカウントに1件だけ紐付く企業プロフィールを表す。
type CompanyProfile struct {
	ID          int64
	OwnerID     int64
	CompanyName string
	Address     string
	City        string
	State       string
	Country     string
	PostalCode  string
	Industry    string
	Website     *string
	Description *string
	FoundedDate *time.Time
	SocialLinks map[string]string
	LogoURL     *string
	BannerURL   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CompanyFields は企業プロフィール登録時の入力値を表す。
// 必須項目はstring、任意項目はポインタで保持する。
type CompanyFields struct {
	CompanyName string
	Address     string
	City        string
	State       string
	Country     string
	PostalCode  string
	Industry    string
	Website     *string
	Description *string
	FoundedDate *time.Time
	SocialLinks map[string]string
}

// CompanyPatch は企業プロフィールの部分更新を表す。
// nilの項目は変更しない（未指定と空文字列は同じ扱い）。
type CompanyPatch struct {
	CompanyName *string
	Address     *string
	City        *string
	State       *string
	Country     *string
	PostalCode  *string
	Website     *string
	Industry    *string
	FoundedDate *time.Time
	Description *string
	SocialLinks map[string]string
}

// IsEmpty は更新対象の項目が1つもないかを返す。
func (p *CompanyPatch) IsEmpty() bool {
	return p.CompanyName == nil &&
		p.Address == nil &&
		p.City == nil &&
		p.State == nil &&
		p.Country == nil &&
		p.PostalCode == nil &&
		p.Website == nil &&
		p.Industry == nil &&
		p.FoundedDate == nil &&
		p.Description == nil &&
		p.SocialLinks == nil
}
