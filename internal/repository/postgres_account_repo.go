package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bluestock/internal/model"
)

const accountColumns = `id, email, full_name, gender, mobile_no, signup_type, password_hash,
	is_mobile_verified, is_email_verified, created_at, updated_at`

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	return r.findOne(ctx, "id", `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.findOne(ctx, "email", `SELECT `+accountColumns+` FROM users WHERE email = $1`, email)
}

// FindByMobile は携帯電話番号でアカウントを検索する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByMobile(ctx context.Context, mobileNo string) (*model.Account, error) {
	return r.findOne(ctx, "mobile", `SELECT `+accountColumns+` FROM users WHERE mobile_no = $1`, mobileNo)
}

// CreateWithIdentity はアカウントとidentityを1つのSQL文で作成する。
// CTEで両方のINSERTを1文にまとめるため、トランザクションは不要。
func (r *PostgresAccountRepo) CreateWithIdentity(ctx context.Context, in *model.NewAccount) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`WITH new_user AS (
			INSERT INTO users (email, full_name, gender, mobile_no, signup_type)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+accountColumns+`
		), new_identity AS (
			INSERT INTO identities (user_id, provider, subject)
			SELECT id, $6, $7 FROM new_user
		)
		SELECT `+accountColumns+` FROM new_user`,
		in.Email, in.FullName, string(in.Gender), in.MobileNo, string(in.SignupType), in.Provider, in.Subject,
	)

	account, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", mapPQError(err))
	}
	return account, nil
}

// SetMobileVerified は携帯電話番号を検証済みにする。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) SetMobileVerified(ctx context.Context, id int64) (*model.Account, error) {
	return r.findOne(ctx, "mobile verification",
		`UPDATE users SET is_mobile_verified = true, updated_at = now()
		 WHERE id = $1 RETURNING `+accountColumns, id)
}

// SetEmailVerified はメールアドレスを検証済みにする。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) SetEmailVerified(ctx context.Context, id int64) (*model.Account, error) {
	return r.findOne(ctx, "email verification",
		`UPDATE users SET is_email_verified = true, updated_at = now()
		 WHERE id = $1 RETURNING `+accountColumns, id)
}

func (r *PostgresAccountRepo) findOne(ctx context.Context, by, query string, arg any) (*model.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account by %s: %w", by, err)
	}
	return account, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	a := &model.Account{}
	var gender, signupType string
	var passwordHash sql.NullString
	err := row.Scan(
		&a.ID, &a.Email, &a.FullName, &gender, &a.MobileNo, &signupType, &passwordHash,
		&a.IsMobileVerified, &a.IsEmailVerified, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Gender = model.Gender(gender)
	a.SignupType = model.SignupType(signupType)
	if passwordHash.Valid {
		a.PasswordHash = &passwordHash.String
	}
	return a, nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
