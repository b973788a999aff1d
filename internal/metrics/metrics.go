// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証・アップロードの結果ラベル。
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアとハンドラー層から利用する。
type MetricsCollector interface {
	RecordRequest(method, route string, statusCode int, duration time.Duration)
	RecordAuthAttempt(operation, result string)
	RecordUpload(kind, result string, size int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authAttempts    *prometheus.CounterVec
	uploads         *prometheus.CounterVec
	uploadBytes     prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bluestock_http_requests_total",
			Help: "ルートとステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bluestock_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bluestock_auth_attempts_total",
			Help: "登録・ログインの試行数",
		}, []string{"operation", "result"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bluestock_media_uploads_total",
			Help: "画像アップロードの試行数",
		}, []string{"kind", "result"}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bluestock_media_upload_bytes",
			Help:    "アップロードに成功した画像のサイズ（バイト）",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 8),
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestDuration,
		c.authAttempts,
		c.uploads,
		c.uploadBytes,
	)

	return c
}

// RecordRequest はHTTPリクエストの結果と処理時間を記録する。
func (c *Collector) RecordRequest(method, route string, statusCode int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAuthAttempt は登録・ログインの結果を記録する。
func (c *Collector) RecordAuthAttempt(operation, result string) {
	c.authAttempts.WithLabelValues(operation, result).Inc()
}

// RecordUpload は画像アップロードの結果を記録する。成功時はサイズも記録する。
func (c *Collector) RecordUpload(kind, result string, size int) {
	c.uploads.WithLabelValues(kind, result).Inc()
	if result == ResultSuccess {
		c.uploadBytes.Observe(float64(size))
	}
}

// Middleware はリクエストごとにRecordRequestを呼ぶミドルウェアを返す。
// ラベルのcardinalityを抑えるため、パスではなくchiのルートパターンを使用する。
func Middleware(c MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			c.RecordRequest(r.Method, route, rec.statusCode, time.Since(start))
		})
	}
}

// statusRecorder はレスポンスのステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.wroteHeader {
		sr.statusCode = code
		sr.wroteHeader = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.wroteHeader = true
	return sr.ResponseWriter.Write(b)
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
