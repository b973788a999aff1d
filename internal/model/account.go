package model

import (
	"strings"
	"time"
)

// アカウント項目の最大文字数。usersテーブルの列定義と一致させる。
const (
	MaxEmailLength    = 255
	MaxFullNameLength = 255
	MaxMobileNoLength = 20
)

// Gender はアカウントの性別区分を表す。保存値は1文字のコード。
type Gender string

const (
	GenderMale   Gender = "m"
	GenderFemale Gender = "f"
	GenderOther  Gender = "o"
)

// SignupType はアカウントの登録経路を表す。
type SignupType string

const (
	SignupTypeEmail SignupType = "e"
	SignupTypeOther SignupType = "o"
)

// ParseGender は入力値をGenderに正規化する。
// "m"/"male" のような短縮形と完全形の両方を受け付ける。
func ParseGender(v string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "m", "male":
		return GenderMale, true
	case "f", "female":
		return GenderFemale, true
	case "o", "other":
		return GenderOther, true
	default:
		return "", false
	}
}

// ParseSignupType は入力値をSignupTypeに正規化する。空文字列はemailとして扱う。
func ParseSignupType(v string) (SignupType, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "e", "email":
		return SignupTypeEmail, true
	case "o", "other":
		return SignupTypeOther, true
	default:
		return "", false
	}
}

// Account はサービス利用者のアカウントを表す。
// 認証は外部IdPに委譲するため、ローカルパスワードは任意の機能として
// PasswordHashがnilのまま扱う。
type Account struct {
	ID               int64
	Email            string
	FullName         string
	Gender           Gender
	MobileNo         string
	SignupType       SignupType
	PasswordHash     *string
	IsMobileVerified bool
	IsEmailVerified  bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasLocalCredential はローカルパスワードが設定されているかを返す。
func (a *Account) HasLocalCredential() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// Identity は外部IdPとの紐付け情報を表す。
type Identity struct {
	ID        int64
	AccountID int64
	Provider  string
	Subject   string
	CreatedAt time.Time
}

// IdentityProviderFirebase はFirebase Authenticationを表すプロバイダー名。
const IdentityProviderFirebase = "firebase"

// NewAccount はアカウント作成時の入力値を表す。
type NewAccount struct {
	Email      string
	FullName   string
	Gender     Gender
	MobileNo   string
	SignupType SignupType
	Provider   string
	Subject    string
}
