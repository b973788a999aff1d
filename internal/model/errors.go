// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"net/http"
	"unicode/utf8"
)

// ErrorKind はエラーの分類を表す。HTTPステータスへの変換はKindごとに一意に決まる。
type ErrorKind string

const (
	KindUnauthorized       ErrorKind = "unauthorized"
	KindBadRequest         ErrorKind = "bad_request"
	KindConflict           ErrorKind = "conflict"
	KindNotFound           ErrorKind = "not_found"
	KindMethodNotAllowed   ErrorKind = "method_not_allowed"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindRateLimited        ErrorKind = "rate_limited"
	KindInternal           ErrorKind = "internal"
)

// APIError は統一エラーフォーマットを表す。
// サービス層が想定内の失敗を返すときに使用し、ハンドラー層でHTTPレスポンスに変換される。
type APIError struct {
	Kind    ErrorKind // エラー分類
	Code    string    // エラーコード
	Message string    // 利用者向けメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Status はKindに対応するHTTPステータスコードを返す。
// Conflictは既存クライアントとの互換のため400で返す。
// 外部サービス未設定は500で返し、Codeで内部エラーと区別する。
func (e *APIError) Status() int {
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeMobileExists       = "MOBILE_ALREADY_REGISTERED"
	ErrCodeAccountExists      = "ACCOUNT_ALREADY_EXISTS"
	ErrCodeAccountNotFound    = "USER_NOT_FOUND"
	ErrCodeProfileExists      = "COMPANY_PROFILE_EXISTS"
	ErrCodeProfileNotFound    = "COMPANY_PROFILE_NOT_FOUND"
	ErrCodeNoFieldsToUpdate   = "NO_FIELDS_TO_UPDATE"
	ErrCodeFileRequired       = "FILE_REQUIRED"
	ErrCodeFileTooLarge       = "FILE_TOO_LARGE"
	ErrCodeUnsupportedFile    = "UNSUPPORTED_FILE_TYPE"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeRouteNotFound      = "ROUTE_NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewUnauthorizedError は認証失敗エラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	return &APIError{Kind: KindUnauthorized, Code: ErrCodeUnauthorized, Message: message}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{Kind: KindBadRequest, Code: ErrCodeValidation, Message: message}
}

// NewRequiredFieldError は必須項目の欠落エラーを生成する。
func NewRequiredFieldError(field string) *APIError {
	return NewValidationError(fmt.Sprintf("%s is required", field))
}

// NewFieldTooLongError は入力値が最大文字数を超えた場合のエラーを生成する。
func NewFieldTooLongError(field string, max int) *APIError {
	return NewValidationError(fmt.Sprintf("%s must be at most %d characters", field, max))
}

// CheckMaxLength は値の文字数がmaxを超える場合にエラーを返す。
func CheckMaxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return NewFieldTooLongError(field, max)
	}
	return nil
}

// NewMobileExistsError は携帯電話番号の重複エラーを生成する。
func NewMobileExistsError() *APIError {
	return &APIError{Kind: KindConflict, Code: ErrCodeMobileExists, Message: "Mobile number already registered"}
}

// NewAccountExistsError はメールアドレスまたは携帯電話番号の一意制約違反エラーを生成する。
func NewAccountExistsError() *APIError {
	return &APIError{Kind: KindConflict, Code: ErrCodeAccountExists, Message: "Email or mobile number already exists"}
}

// NewAccountNotFoundError はアカウント未登録エラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{Kind: KindNotFound, Code: ErrCodeAccountNotFound, Message: "User not found. Please register first."}
}

// NewProfileExistsError は企業プロフィールの重複登録エラーを生成する。
func NewProfileExistsError() *APIError {
	return &APIError{Kind: KindConflict, Code: ErrCodeProfileExists, Message: "Company profile already exists"}
}

// NewProfileNotFoundError は企業プロフィール未登録エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{Kind: KindNotFound, Code: ErrCodeProfileNotFound, Message: "Company profile not found"}
}

// NewNoFieldsToUpdateError は更新対象の項目がない場合のエラーを生成する。
func NewNoFieldsToUpdateError() *APIError {
	return &APIError{Kind: KindBadRequest, Code: ErrCodeNoFieldsToUpdate, Message: "No fields to update"}
}

// NewFileRequiredError はアップロードファイル未指定エラーを生成する。
func NewFileRequiredError() *APIError {
	return &APIError{Kind: KindBadRequest, Code: ErrCodeFileRequired, Message: "file is required"}
}

// NewFileTooLargeError はアップロードサイズ超過エラーを生成する。
func NewFileTooLargeError(limit int64) *APIError {
	return &APIError{
		Kind:    KindBadRequest,
		Code:    ErrCodeFileTooLarge,
		Message: fmt.Sprintf("file exceeds the %d byte limit", limit),
	}
}

// NewUnsupportedFileError は画像以外のファイルが送られた場合のエラーを生成する。
func NewUnsupportedFileError(contentType string) *APIError {
	return &APIError{
		Kind:    KindBadRequest,
		Code:    ErrCodeUnsupportedFile,
		Message: fmt.Sprintf("unsupported file type: %s", contentType),
	}
}

// NewServiceUnavailableError は依存する外部サービスが未設定の場合のエラーを生成する。
func NewServiceUnavailableError(service string) *APIError {
	return &APIError{
		Kind:    KindServiceUnavailable,
		Code:    ErrCodeServiceUnavailable,
		Message: fmt.Sprintf("%s not configured", service),
	}
}

// NewRouteNotFoundError は未定義ルートへのアクセスエラーを生成する。
func NewRouteNotFoundError() *APIError {
	return &APIError{Kind: KindNotFound, Code: ErrCodeRouteNotFound, Message: "Route not found"}
}

// NewMethodNotAllowedError は許可されていないHTTPメソッドでのアクセスエラーを生成する。
func NewMethodNotAllowedError() *APIError {
	return &APIError{Kind: KindMethodNotAllowed, Code: ErrCodeMethodNotAllowed, Message: "Method not allowed"}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{Kind: KindRateLimited, Code: ErrCodeRateLimited, Message: "Too many requests. Please try again later."}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{Kind: KindInternal, Code: ErrCodeInternal, Message: "Internal Server Error"}
}
