package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/bluestock/internal/model"
)

// TestWriteErrorResponse_WritesUnifiedFormat は統一エラーフォーマットでレスポンスが書き込まれることを検証する。
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusBadRequest, model.NewRequiredFieldError("company_name"))

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Error.Message != "company_name is required" {
		t.Errorf("message = %q, want %q", body.Error.Message, "company_name is required")
	}
	if body.Error.Status != http.StatusBadRequest {
		t.Errorf("status field = %d, want %d", body.Error.Status, http.StatusBadRequest)
	}
	if body.Error.Code != model.ErrCodeValidation {
		t.Errorf("code = %q, want %q", body.Error.Code, model.ErrCodeValidation)
	}
}

// TestWriteErrorResponse_StatusFromKind はステータス0の場合にKindからステータスが決まることを検証する。
func TestWriteErrorResponse_StatusFromKind(t *testing.T) {
	tests := []struct {
		name   string
		err    *model.APIError
		status int
	}{
		{"Unauthorized", model.NewUnauthorizedError("Invalid or expired token"), http.StatusUnauthorized},
		{"Conflictは400", model.NewProfileExistsError(), http.StatusBadRequest},
		{"NotFound", model.NewProfileNotFoundError(), http.StatusNotFound},
		{"未設定は500", model.NewServiceUnavailableError("Media host"), http.StatusInternalServerError},
		{"RateLimited", model.NewRateLimitedError(), http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteErrorResponse(w, 0, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Error.Status != tt.status {
				t.Errorf("body status = %d, want %d", body.Error.Status, tt.status)
			}
		})
	}
}

// TestInternalServerError_HidesDetails は内部エラーが一般的なメッセージで返ることを検証する。
func TestInternalServerError_HidesDetails(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Error.Code != model.ErrCodeInternal || body.Error.Message != "Internal Server Error" {
		t.Errorf("unexpected body: %+v", body.Error)
	}
}

// TestWriteError_WrappedAPIError はラップされたAPIErrorも変換されることを検証する。
func TestWriteError_WrappedAPIError(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/company/profile", nil)

	WriteError(w, req, fmt.Errorf("lookup: %w", model.NewProfileNotFoundError()))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestWriteError_UnknownErrorIsLogged は想定外のエラーがログに記録され、詳細が返らないことを検証する。
func TestWriteError_UnknownErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/company/register", nil)

	WriteError(w, req, errors.New("pq: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Error("internal error detail should not be returned")
	}
	if !strings.Contains(buf.String(), "connection refused") {
		t.Error("internal error detail should be logged")
	}
}

// TestErrorResponseBody_AllFieldsPresent は全フィールドがJSONレスポンスに含まれることを検証する。
func TestErrorResponseBody_AllFieldsPresent(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusBadRequest, model.NewNoFieldsToUpdateError())

	var raw map[string]map[string]interface{}
	if err := json.NewDecoder(w.Result().Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	for _, field := range []string{"message", "status", "code"} {
		if _, ok := raw["error"][field]; !ok {
			t.Errorf("missing required field: error.%s", field)
		}
	}
}
