package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/bluestock/internal/model"
)

const companyColumns = `id, owner_id, company_name, address, city, state, country, postal_code, industry,
	website, description, founded_date, social_links, logo_url, banner_url, created_at, updated_at`

// socialLinks はJSONBカラムsocial_linksとmap[string]stringを相互変換する。
type socialLinks map[string]string

// Value はnilのときNULLを、それ以外はJSONオブジェクトを返す。
func (s socialLinks) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]string(s))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal social links: %w", err)
	}
	return string(b), nil
}

// Scan はJSONBの値を読み込む。
func (s *socialLinks) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported social_links type: %T", src)
	}
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("failed to unmarshal social links: %w", err)
	}
	*s = m
	return nil
}

// PostgresCompanyRepo はPostgreSQLを使用した企業プロフィールリポジトリ。
type PostgresCompanyRepo struct {
	db *sql.DB
}

// NewPostgresCompanyRepo はPostgresCompanyRepoを生成する。
func NewPostgresCompanyRepo(db *sql.DB) *PostgresCompanyRepo {
	return &PostgresCompanyRepo{db: db}
}

// FindByOwner はアカウントの企業プロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresCompanyRepo) FindByOwner(ctx context.Context, ownerID int64) (*model.CompanyProfile, error) {
	return r.queryOne(ctx, "find company profile",
		`SELECT `+companyColumns+` FROM company_profile WHERE owner_id = $1`, ownerID)
}

// Create は企業プロフィールを作成する。
// owner_idの一意制約に違反した場合はErrDuplicateを返す。
func (r *PostgresCompanyRepo) Create(ctx context.Context, ownerID int64, f *model.CompanyFields) (*model.CompanyProfile, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO company_profile (
			owner_id, company_name, address, city, state, country, postal_code, industry,
			website, description, founded_date, social_links
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+companyColumns,
		ownerID, f.CompanyName, f.Address, f.City, f.State, f.Country, f.PostalCode, f.Industry,
		f.Website, f.Description, f.FoundedDate, socialLinks(f.SocialLinks),
	)

	profile, err := scanCompany(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert company profile: %w", mapPQError(err))
	}
	return profile, nil
}

// Update はpatchで指定された項目のみを1つのUPDATE文で更新する。
// 見つからない場合はnilを返す。patchが空の場合はupdated_atのみ更新される。
func (r *PostgresCompanyRepo) Update(ctx context.Context, ownerID int64, patch *model.CompanyPatch) (*model.CompanyProfile, error) {
	sets, args := buildCompanyUpdate(patch)
	sets = append(sets, "updated_at = now()")
	args = append(args, ownerID)

	query := `UPDATE company_profile SET ` + strings.Join(sets, ", ") +
		` WHERE owner_id = $` + strconv.Itoa(len(args)) +
		` RETURNING ` + companyColumns

	return r.queryOne(ctx, "update company profile", query, args...)
}

// SetLogoURL はロゴ画像のURLを更新する。見つからない場合はnilを返す。
func (r *PostgresCompanyRepo) SetLogoURL(ctx context.Context, ownerID int64, url string) (*model.CompanyProfile, error) {
	return r.queryOne(ctx, "set logo url",
		`UPDATE company_profile SET logo_url = $1, updated_at = now()
		 WHERE owner_id = $2 RETURNING `+companyColumns, url, ownerID)
}

// SetBannerURL はバナー画像のURLを更新する。見つからない場合はnilを返す。
func (r *PostgresCompanyRepo) SetBannerURL(ctx context.Context, ownerID int64, url string) (*model.CompanyProfile, error) {
	return r.queryOne(ctx, "set banner url",
		`UPDATE company_profile SET banner_url = $1, updated_at = now()
		 WHERE owner_id = $2 RETURNING `+companyColumns, url, ownerID)
}

func (r *PostgresCompanyRepo) queryOne(ctx context.Context, op, query string, args ...any) (*model.CompanyProfile, error) {
	profile, err := scanCompany(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, mapPQError(err))
	}
	return profile, nil
}

// buildCompanyUpdate は更新可能なカラムの固定表からSET句と引数を組み立てる。
// カラム名はこの表からのみ取得し、入力値は常にプレースホルダで渡す。
func buildCompanyUpdate(p *model.CompanyPatch) ([]string, []any) {
	columns := []struct {
		name  string
		value any
		set   bool
	}{
		{"company_name", p.CompanyName, p.CompanyName != nil},
		{"address", p.Address, p.Address != nil},
		{"city", p.City, p.City != nil},
		{"state", p.State, p.State != nil},
		{"country", p.Country, p.Country != nil},
		{"postal_code", p.PostalCode, p.PostalCode != nil},
		{"website", p.Website, p.Website != nil},
		{"industry", p.Industry, p.Industry != nil},
		{"founded_date", p.FoundedDate, p.FoundedDate != nil},
		{"description", p.Description, p.Description != nil},
		{"social_links", socialLinks(p.SocialLinks), p.SocialLinks != nil},
	}

	var sets []string
	var args []any
	for _, c := range columns {
		if !c.set {
			continue
		}
		args = append(args, c.value)
		sets = append(sets, c.name+" = $"+strconv.Itoa(len(args)))
	}
	return sets, args
}

func scanCompany(row rowScanner) (*model.CompanyProfile, error) {
	p := &model.CompanyProfile{}
	var website, description, logoURL, bannerURL sql.NullString
	var foundedDate sql.NullTime
	var links socialLinks
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.CompanyName, &p.Address, &p.City, &p.State, &p.Country, &p.PostalCode, &p.Industry,
		&website, &description, &foundedDate, &links, &logoURL, &bannerURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Website = nullStringPtr(website)
	p.Description = nullStringPtr(description)
	p.LogoURL = nullStringPtr(logoURL)
	p.BannerURL = nullStringPtr(bannerURL)
	if foundedDate.Valid {
		d := foundedDate.Time.UTC()
		d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		p.FoundedDate = &d
	}
	p.SocialLinks = links
	return p, nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// compile-time interface check
var _ CompanyRepository = (*PostgresCompanyRepo)(nil)
