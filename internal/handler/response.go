package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/bluestock/internal/model"
)

// userResponse はアカウント情報のAPIレスポンス。
type userResponse struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	MobileNo         string    `json:"mobile_no"`
	Gender           string    `json:"gender"`
	SignupType       string    `json:"signup_type"`
	IsMobileVerified bool      `json:"is_mobile_verified"`
	IsEmailVerified  bool      `json:"is_email_verified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// companyProfileResponse は企業プロフィールのAPIレスポンス。
type companyProfileResponse struct {
	ID          int64             `json:"id"`
	OwnerID     int64             `json:"owner_id"`
	CompanyName string            `json:"company_name"`
	Address     string            `json:"address"`
	City        string            `json:"city"`
	State       string            `json:"state"`
	Country     string            `json:"country"`
	PostalCode  string            `json:"postal_code"`
	Website     *string           `json:"website"`
	LogoURL     *string           `json:"logo_url"`
	BannerURL   *string           `json:"banner_url"`
	Industry    string            `json:"industry"`
	FoundedDate *string           `json:"founded_date"`
	Description *string           `json:"description"`
	SocialLinks map[string]string `json:"social_links"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func toUserResponse(a *model.Account) userResponse {
	return userResponse{
		ID:               a.ID,
		Email:            a.Email,
		FullName:         a.FullName,
		MobileNo:         a.MobileNo,
		Gender:           string(a.Gender),
		SignupType:       string(a.SignupType),
		IsMobileVerified: a.IsMobileVerified,
		IsEmailVerified:  a.IsEmailVerified,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func toCompanyProfileResponse(p *model.CompanyProfile) companyProfileResponse {
	resp := companyProfileResponse{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		CompanyName: p.CompanyName,
		Address:     p.Address,
		City:        p.City,
		State:       p.State,
		Country:     p.Country,
		PostalCode:  p.PostalCode,
		Website:     p.Website,
		LogoURL:     p.LogoURL,
		BannerURL:   p.BannerURL,
		Industry:    p.Industry,
		Description: p.Description,
		SocialLinks: p.SocialLinks,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.FoundedDate != nil {
		d := p.FoundedDate.Format("2006-01-02")
		resp.FoundedDate = &d
	}
	return resp
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// decodeJSON はリクエストボディをdstにデコードする。
// strictの場合は未知のキーをエラーにする。空のボディは空オブジェクトとして扱う。
func decodeJSON(r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}
	err := dec.Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return model.NewValidationError("Request body too large")
	}
	if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return model.NewValidationError(fmt.Sprintf("Unknown field: %s", strings.Trim(name, `"`)))
	}
	return model.NewValidationError("Invalid JSON body")
}

// flexString はJSONの文字列と数値の両方を文字列として受け付ける。
type flexString string

// UnmarshalJSON はstring/number/nullを受け付ける。
func (s *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}
