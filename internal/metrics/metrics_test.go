package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベルのメトリクスを返す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m, labels) {
				return m
			}
		}
	}
	return nil
}

func matchLabels(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok {
			if want != lp.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	if c := NewCollector(prometheus.NewRegistry()); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestNewCollector_DuplicateRegistrationPanics は同一レジストリへの二重登録がpanicすることを検証する。
func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewCollector(reg)
}

func TestRecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest(http.MethodGet, "/api/company/profile", 200, 10*time.Millisecond)
	c.RecordRequest(http.MethodGet, "/api/company/profile", 200, 20*time.Millisecond)
	c.RecordRequest(http.MethodGet, "/api/company/profile", 404, time.Millisecond)

	m := findMetric(t, reg, "bluestock_http_requests_total", map[string]string{
		"method": "GET", "route": "/api/company/profile", "status_code": "200",
	})
	if m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("requests_total{200} = %v, want 2", m)
	}

	h := findMetric(t, reg, "bluestock_http_request_duration_seconds", map[string]string{
		"method": "GET", "route": "/api/company/profile",
	})
	if h == nil || h.GetHistogram().GetSampleCount() != 3 {
		t.Errorf("duration sample count = %v, want 3", h)
	}
}

func TestRecordAuthAttempt(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthAttempt("register", ResultSuccess)
	c.RecordAuthAttempt("login", ResultFailure)
	c.RecordAuthAttempt("login", ResultFailure)

	m := findMetric(t, reg, "bluestock_auth_attempts_total", map[string]string{"operation": "login", "result": ResultFailure})
	if m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("auth_attempts_total{login,failure} = %v, want 2", m)
	}
}

// 失敗したアップロードはサイズを記録しないことを検証
func TestRecordUpload(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpload("logo", ResultSuccess, 50_000)
	c.RecordUpload("logo", ResultFailure, 3_000_000)

	m := findMetric(t, reg, "bluestock_media_uploads_total", map[string]string{"kind": "logo", "result": ResultFailure})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("uploads_total{logo,failure} = %v, want 1", m)
	}
	h := findMetric(t, reg, "bluestock_media_upload_bytes", nil)
	if h == nil || h.GetHistogram().GetSampleCount() != 1 || h.GetHistogram().GetSampleSum() != 50_000 {
		t.Errorf("upload_bytes = %v, want one sample of 50000", h)
	}
}

// TestMiddleware_UsesRoutePattern はパスパラメータではなくルートパターンでラベル付けされることを検証する。
func TestMiddleware_UsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	r := chi.NewRouter()
	r.Use(Middleware(c))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/items/1", "/items/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	m := findMetric(t, reg, "bluestock_http_requests_total", map[string]string{
		"route": "/items/{id}", "status_code": "418",
	})
	if m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("requests_total{/items/{id}} = %v, want 2", m)
	}
	if findMetric(t, reg, "bluestock_http_requests_total", map[string]string{"route": "unmatched", "status_code": "404"}) == nil {
		t.Error("unmatched route should be recorded as 'unmatched'")
	}
}

// TestHandler_ServesMetrics はスクレイプ用ハンドラーがメトリクスを返すことを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordAuthAttempt("login", ResultSuccess)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(w.Result().Body)
	if !strings.Contains(string(body), "bluestock_auth_attempts_total") {
		t.Error("response should contain bluestock_auth_attempts_total metric")
	}
}

var _ MetricsCollector = (*Collector)(nil)
