// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアントや認証サービスから利用する。
type MetricsCollector interface {
	RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordAPITransportError(method, endpoint string)
	RecordLogin(outcome string)
}

// ログイン結果のラベル値
const (
	LoginSuccess        = "success"
	LoginInvalid        = "invalid"
	LoginFailed         = "failed"
	LoginSessionFailure = "session_error"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	apiRequests   *prometheus.CounterVec
	apiTransport  *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
	loginAttempts *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "painel_api_requests_total",
			Help: "バックエンドAPI呼び出しのステータスコード別の合計数",
		}, []string{"method", "endpoint", "status_code"}),
		apiTransport: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "painel_api_transport_errors_total",
			Help: "バックエンドAPIへの通信失敗の合計数",
		}, []string{"method", "endpoint"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "painel_api_request_duration_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "painel_login_attempts_total",
			Help: "結果別のログイン試行数",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.apiRequests,
		c.apiTransport,
		c.apiLatency,
		c.loginAttempts,
	)

	return c
}

// RecordAPIRequest はステータス付きで完了したAPI呼び出しを記録する。
func (c *Collector) RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	c.apiRequests.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	c.apiLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAPITransportError は通信失敗を記録する。
func (c *Collector) RecordAPITransportError(method, endpoint string) {
	c.apiTransport.WithLabelValues(method, endpoint).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.loginAttempts.WithLabelValues(outcome).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

// RecordAPIRequest は何もしない。
func (Nop) RecordAPIRequest(string, string, int, time.Duration) {}

// RecordAPITransportError は何もしない。
func (Nop) RecordAPITransportError(string, string) {}

// RecordLogin は何もしない。
func (Nop) RecordLogin(string) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
