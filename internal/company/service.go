// Package company は企業プロフィールの登録・更新と画像アップロードのドメインロジックを提供する。
package company

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hitoshi/bluestock/internal/media"
	"github.com/hitoshi/bluestock/internal/model"
	"github.com/hitoshi/bluestock/internal/repository"
	"github.com/hitoshi/bluestock/internal/security"
)

// dateLayout は設立日の入力形式。
const dateLayout = "2006-01-02"

// MediaRelay は画像の検証とメディアホストへのアップロードを行う。
type MediaRelay interface {
	Validate(data []byte) (string, error)
	Configured() bool
	Upload(ctx context.Context, data []byte, folder string) (*media.UploadResult, error)
}

// RegisterInput は企業プロフィール登録時の入力値を表す。
// 任意項目は空文字列で未指定を表す。
type RegisterInput struct {
	CompanyName string
	Address     string
	City        string
	State       string
	Country     string
	PostalCode  string
	Industry    string
	Website     string
	Description string
	FoundedDate string
	SocialLinks map[string]string
}

// UpdateInput は企業プロフィールの部分更新の入力値を表す。
// nilと空文字列はどちらも未指定として扱う。
type UpdateInput struct {
	CompanyName *string
	Address     *string
	City        *string
	State       *string
	Country     *string
	PostalCode  *string
	Website     *string
	Industry    *string
	FoundedDate *string
	Description *string
	SocialLinks map[string]string
}

// UploadResult は画像アップロード後のURLと更新後のプロフィールを表す。
type UploadResult struct {
	URL     string
	Profile *model.CompanyProfile
}

// Service は企業プロフィールのサービス層。
type Service struct {
	companies repository.CompanyRepository
	sanitizer security.TextSanitizer
	urlGuard  security.SSRFGuardService
	media     MediaRelay
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	companies repository.CompanyRepository,
	sanitizer security.TextSanitizer,
	urlGuard security.SSRFGuardService,
	relay MediaRelay,
) *Service {
	return &Service{
		companies: companies,
		sanitizer: sanitizer,
		urlGuard:  urlGuard,
		media:     relay,
	}
}

// Get はアカウントの企業プロフィールを返す。存在しない場合はNotFoundを返す。
func (s *Service) Get(ctx context.Context, ownerID int64) (*model.CompanyProfile, error) {
	profile, err := s.companies.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("企業プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return profile, nil
}

// Register は企業プロフィールを新規作成する。
// 既にプロフィールが存在する場合は上書きせずConflictを返す。
func (s *Service) Register(ctx context.Context, ownerID int64, in RegisterInput) (*model.CompanyProfile, error) {
	fields := &model.CompanyFields{
		CompanyName: s.sanitizer.SanitizeText(in.CompanyName),
		Address:     s.sanitizer.SanitizeText(in.Address),
		City:        s.sanitizer.SanitizeText(in.City),
		State:       s.sanitizer.SanitizeText(in.State),
		Country:     s.sanitizer.SanitizeText(in.Country),
		PostalCode:  s.sanitizer.SanitizeText(in.PostalCode),
		Industry:    s.sanitizer.SanitizeText(in.Industry),
	}

	required := []struct {
		name  string
		value string
	}{
		{"company_name", fields.CompanyName},
		{"address", fields.Address},
		{"city", fields.City},
		{"state", fields.State},
		{"country", fields.Country},
		{"postal_code", fields.PostalCode},
		{"industry", fields.Industry},
	}
	for _, f := range required {
		if f.value == "" {
			return nil, model.NewRequiredFieldError(f.name)
		}
	}
	if err := checkLengths(map[string]*string{
		"company_name": &fields.CompanyName,
		"city":         &fields.City,
		"state":        &fields.State,
		"country":      &fields.Country,
		"postal_code":  &fields.PostalCode,
		"industry":     &fields.Industry,
	}); err != nil {
		return nil, err
	}

	var err error
	if fields.Website, err = s.website(&in.Website); err != nil {
		return nil, err
	}
	fields.Description = s.optionalText(&in.Description)
	if fields.FoundedDate, err = s.foundedDate(&in.FoundedDate); err != nil {
		return nil, err
	}
	if fields.SocialLinks, err = s.socialLinks(in.SocialLinks); err != nil {
		return nil, err
	}

	existing, err := s.companies.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("企業プロフィールの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewProfileExistsError()
	}

	profile, err := s.companies.Create(ctx, ownerID, fields)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, model.NewProfileExistsError()
	}
	if errors.Is(err, repository.ErrValueTooLong) {
		return nil, model.NewValidationError("Input value is too long")
	}
	if err != nil {
		return nil, fmt.Errorf("企業プロフィールの作成に失敗しました: %w", err)
	}

	slog.Info("企業プロフィールを登録しました",
		slog.Int64("account_id", ownerID),
		slog.Int64("company_id", profile.ID),
	)
	return profile, nil
}

// Update は指定された項目のみを更新する。
// プロフィールが存在しない場合はNotFound、更新項目がない場合はBadRequestを返す。
func (s *Service) Update(ctx context.Context, ownerID int64, in UpdateInput) (*model.CompanyProfile, error) {
	existing, err := s.companies.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("企業プロフィールの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, model.NewProfileNotFoundError()
	}

	patch := &model.CompanyPatch{
		CompanyName: s.optionalText(in.CompanyName),
		Address:     s.optionalText(in.Address),
		City:        s.optionalText(in.City),
		State:       s.optionalText(in.State),
		Country:     s.optionalText(in.Country),
		PostalCode:  s.optionalText(in.PostalCode),
		Industry:    s.optionalText(in.Industry),
		Description: s.optionalText(in.Description),
	}
	if err := checkLengths(map[string]*string{
		"company_name": patch.CompanyName,
		"city":         patch.City,
		"state":        patch.State,
		"country":      patch.Country,
		"postal_code":  patch.PostalCode,
		"industry":     patch.Industry,
	}); err != nil {
		return nil, err
	}
	if patch.Website, err = s.website(in.Website); err != nil {
		return nil, err
	}
	if patch.FoundedDate, err = s.foundedDate(in.FoundedDate); err != nil {
		return nil, err
	}
	if patch.SocialLinks, err = s.socialLinks(in.SocialLinks); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, model.NewNoFieldsToUpdateError()
	}

	profile, err := s.companies.Update(ctx, ownerID, patch)
	if errors.Is(err, repository.ErrValueTooLong) {
		return nil, model.NewValidationError("Input value is too long")
	}
	if err != nil {
		return nil, fmt.Errorf("企業プロフィールの更新に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}

	slog.Info("企業プロフィールを更新しました", slog.Int64("account_id", ownerID))
	return profile, nil
}

// UploadLogo はロゴ画像をアップロードし、プロフィールのlogo_urlを更新する。
func (s *Service) UploadLogo(ctx context.Context, ownerID int64, data []byte) (*UploadResult, error) {
	return s.upload(ctx, ownerID, data, media.FolderLogo, s.companies.SetLogoURL)
}

// UploadBanner はバナー画像をアップロードし、プロフィールのbanner_urlを更新する。
func (s *Service) UploadBanner(ctx context.Context, ownerID int64, data []byte) (*UploadResult, error) {
	return s.upload(ctx, ownerID, data, media.FolderBanner, s.companies.SetBannerURL)
}

// upload は検証、プロフィールの存在確認、アップロード、URL更新の順に処理する。
// プロフィールがない場合はメディアホストへ送信しない。
func (s *Service) upload(
	ctx context.Context,
	ownerID int64,
	data []byte,
	folder string,
	setURL func(ctx context.Context, ownerID int64, url string) (*model.CompanyProfile, error),
) (*UploadResult, error) {
	if _, err := s.media.Validate(data); err != nil {
		return nil, err
	}
	if !s.media.Configured() {
		return nil, model.NewServiceUnavailableError("Media host")
	}

	existing, err := s.companies.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("企業プロフィールの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, model.NewProfileNotFoundError()
	}

	uploaded, err := s.media.Upload(ctx, data, folder)
	if err != nil {
		return nil, err
	}

	profile, err := setURL(ctx, ownerID, uploaded.URL)
	if err != nil {
		return nil, fmt.Errorf("画像URLの更新に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return &UploadResult{URL: uploaded.URL, Profile: profile}, nil
}

// maxLengths は長さ制限のある項目と最大文字数の対応。
var maxLengths = map[string]int{
	"company_name": model.MaxCompanyNameLength,
	"city":         model.MaxLocationLength,
	"state":        model.MaxLocationLength,
	"country":      model.MaxLocationLength,
	"postal_code":  model.MaxPostalCodeLength,
	"industry":     model.MaxIndustryLength,
}

// checkLengths は値がnilでない項目の文字数を検証する。
// エラーメッセージが入力順に依存しないよう、項目名順に検証する。
func checkLengths(values map[string]*string) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := values[name]
		if v == nil {
			continue
		}
		if err := model.CheckMaxLength(name, *v, maxLengths[name]); err != nil {
			return err
		}
	}
	return nil
}

// optionalText はサニタイズ後に空でなければその値を返す。
func (s *Service) optionalText(raw *string) *string {
	if raw == nil {
		return nil
	}
	v := s.sanitizer.SanitizeText(*raw)
	if v == "" {
		return nil
	}
	return &v
}

func (s *Service) website(raw *string) (*string, error) {
	v := s.optionalText(raw)
	if v == nil {
		return nil, nil
	}
	if err := s.urlGuard.ValidateURL(*v); err != nil {
		return nil, model.NewValidationError("website must be a valid http(s) URL")
	}
	return v, nil
}

func (s *Service) foundedDate(raw *string) (*time.Time, error) {
	v := s.optionalText(raw)
	if v == nil {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *v)
	if err != nil {
		return nil, model.NewValidationError("founded_date must be in YYYY-MM-DD format")
	}
	return &t, nil
}

// socialLinks はキーと値をサニタイズし、値が空のものを除外する。
// 有効なリンクが1件もない場合はnilを返す。
func (s *Service) socialLinks(raw map[string]string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	links := make(map[string]string, len(raw))
	for _, k := range keys {
		platform := s.sanitizer.SanitizeText(k)
		link := s.sanitizer.SanitizeText(raw[k])
		if platform == "" || link == "" {
			continue
		}
		if err := s.urlGuard.ValidateURL(link); err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("social_links.%s must be a valid http(s) URL", platform))
		}
		links[platform] = link
	}
	if len(links) == 0 {
		return nil, nil
	}
	return links, nil
}
