package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/hitoshi/bluestock/internal/company"
	"github.com/hitoshi/bluestock/internal/metrics"
	"github.com/hitoshi/bluestock/internal/middleware"
	"github.com/hitoshi/bluestock/internal/model"
)

// multipartOverhead はmultipartの境界やヘッダー分として許容する追加バイト数。
const multipartOverhead = 512 * 1024

// CompanyServiceInterface は企業プロフィールハンドラーが必要とするサービスインターフェース。
type CompanyServiceInterface interface {
	Get(ctx context.Context, ownerID int64) (*model.CompanyProfile, error)
	Register(ctx context.Context, ownerID int64, in company.RegisterInput) (*model.CompanyProfile, error)
	Update(ctx context.Context, ownerID int64, in company.UpdateInput) (*model.CompanyProfile, error)
	UploadLogo(ctx context.Context, ownerID int64, data []byte) (*company.UploadResult, error)
	UploadBanner(ctx context.Context, ownerID int64, data []byte) (*company.UploadResult, error)
}

// companyRegisterRequest は企業プロフィール登録リクエストのボディ。
type companyRegisterRequest struct {
	CompanyName string            `json:"company_name"`
	Address     string            `json:"address"`
	City        string            `json:"city"`
	State       string            `json:"state"`
	Country     string            `json:"country"`
	PostalCode  flexString        `json:"postal_code"`
	Industry    string            `json:"industry"`
	Website     string            `json:"website"`
	Description string            `json:"description"`
	FoundedDate string            `json:"founded_date"`
	SocialLinks map[string]string `json:"social_links"`
}

// companyUpdateRequest は企業プロフィール更新リクエストのボディ。
// ここに定義されたキー以外はエラーになる。
type companyUpdateRequest struct {
	CompanyName *string           `json:"company_name"`
	Address     *string           `json:"address"`
	City        *string           `json:"city"`
	State       *string           `json:"state"`
	Country     *string           `json:"country"`
	PostalCode  *flexString       `json:"postal_code"`
	Website     *string           `json:"website"`
	Industry    *string           `json:"industry"`
	FoundedDate *string           `json:"founded_date"`
	Description *string           `json:"description"`
	SocialLinks map[string]string `json:"social_links"`
}

// logoUploadResponse はロゴアップロードのAPIレスポンス。
type logoUploadResponse struct {
	LogoURL        string                 `json:"logo_url"`
	CompanyProfile companyProfileResponse `json:"company_profile"`
}

// bannerUploadResponse はバナーアップロードのAPIレスポンス。
type bannerUploadResponse struct {
	BannerURL      string                 `json:"banner_url"`
	CompanyProfile companyProfileResponse `json:"company_profile"`
}

// CompanyHandler は企業プロフィールのHTTPハンドラー。
type CompanyHandler struct {
	service        CompanyServiceInterface
	maxUploadBytes int64
	metrics        metrics.MetricsCollector
}

// NewCompanyHandler はCompanyHandlerを生成する。
func NewCompanyHandler(service CompanyServiceInterface, maxUploadBytes int64, collector metrics.MetricsCollector) *CompanyHandler {
	if collector == nil {
		collector = noopMetrics{}
	}
	return &CompanyHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		metrics:        collector,
	}
}

// GetProfile は企業プロフィールを返す。
// GET /api/company/profile
func (h *CompanyHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.Get(r.Context(), ownerID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyProfileResponse(profile))
}

// RegisterProfile は企業プロフィールを作成する。
// POST /api/company/register
func (h *CompanyHandler) RegisterProfile(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	var req companyRegisterRequest
	if err := decodeJSON(r, &req, false); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	profile, err := h.service.Register(r.Context(), ownerID, company.RegisterInput{
		CompanyName: req.CompanyName,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		Country:     req.Country,
		PostalCode:  string(req.PostalCode),
		Industry:    req.Industry,
		Website:     req.Website,
		Description: req.Description,
		FoundedDate: req.FoundedDate,
		SocialLinks: req.SocialLinks,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompanyProfileResponse(profile))
}

// UpdateProfile は指定された項目のみ企業プロフィールを更新する。
// PUT /api/company/profile
func (h *CompanyHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	var req companyUpdateRequest
	if err := decodeJSON(r, &req, true); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	in := company.UpdateInput{
		CompanyName: req.CompanyName,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		Country:     req.Country,
		Website:     req.Website,
		Industry:    req.Industry,
		FoundedDate: req.FoundedDate,
		Description: req.Description,
		SocialLinks: req.SocialLinks,
	}
	if req.PostalCode != nil {
		v := string(*req.PostalCode)
		in.PostalCode = &v
	}

	profile, err := h.service.Update(r.Context(), ownerID, in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyProfileResponse(profile))
}

// UploadLogo はロゴ画像をアップロードする。ファイルはmultipartの"file"フィールドで受け取る。
// POST /api/company/upload-logo
func (h *CompanyHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	data, err := h.readUpload(w, r)
	if err != nil {
		h.metrics.RecordUpload("logo", metrics.ResultFailure, 0)
		middleware.WriteError(w, r, err)
		return
	}

	result, err := h.service.UploadLogo(r.Context(), ownerID, data)
	if err != nil {
		h.metrics.RecordUpload("logo", metrics.ResultFailure, len(data))
		middleware.WriteError(w, r, err)
		return
	}
	h.metrics.RecordUpload("logo", metrics.ResultSuccess, len(data))

	writeJSON(w, http.StatusOK, logoUploadResponse{
		LogoURL:        result.URL,
		CompanyProfile: toCompanyProfileResponse(result.Profile),
	})
}

// UploadBanner はバナー画像をアップロードする。
// POST /api/company/upload-banner
func (h *CompanyHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	data, err := h.readUpload(w, r)
	if err != nil {
		h.metrics.RecordUpload("banner", metrics.ResultFailure, 0)
		middleware.WriteError(w, r, err)
		return
	}

	result, err := h.service.UploadBanner(r.Context(), ownerID, data)
	if err != nil {
		h.metrics.RecordUpload("banner", metrics.ResultFailure, len(data))
		middleware.WriteError(w, r, err)
		return
	}
	h.metrics.RecordUpload("banner", metrics.ResultSuccess, len(data))

	writeJSON(w, http.StatusOK, bannerUploadResponse{
		BannerURL:      result.URL,
		CompanyProfile: toCompanyProfileResponse(result.Profile),
	})
}

// ownerID はコンテキストから認証済みアカウントIDを取得する。
func (h *CompanyHandler) ownerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, r, model.NewUnauthorizedError("Missing Authorization header"))
		return 0, false
	}
	return principal.AccountID, true
}

// readUpload はmultipartの"file"フィールドを読み込む。
// 上限を超えるボディはパースの途中で打ち切り、サイズ超過として扱う。
func (h *CompanyHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, model.NewFileTooLargeError(h.maxUploadBytes)
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, model.NewFileRequiredError()
		}
		return nil, model.NewValidationError("Invalid multipart body")
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, model.NewFileRequiredError()
	}
	if err != nil {
		return nil, model.NewValidationError("Invalid multipart body")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	return data, nil
}
