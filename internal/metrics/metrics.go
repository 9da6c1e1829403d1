// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// セッション検証の結果ラベル
const (
	OutcomeValid     = "valid"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport"
	OutcomeExpired   = "expired"
	OutcomeMismatch  = "mismatch"
	OutcomeNoToken   = "no_token"
)

// MetricsCollector はメトリクス収集のインターフェース。
// セッションマネージャー、チャンネルコンテキスト、APIクライアントから利用する。
type MetricsCollector interface {
	RecordSessionValidation(outcome string)
	RecordLockMismatch(source string)
	RecordSessionPhase(phase string)
	RecordChannelLoad(success bool, count int)
	RecordAPIStatus(statusCode int)
	RecordAPILatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	validations   *prometheus.CounterVec
	lockMismatch  *prometheus.CounterVec
	sessionPhase  *prometheus.CounterVec
	channelLoads  *prometheus.CounterVec
	channelsFound prometheus.Gauge
	apiStatus     *prometheus.CounterVec
	apiLatency    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nebulastream_session_validations_total",
			Help: "セッション検証の結果別の合計数",
		}, []string{"outcome"}),
		lockMismatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nebulastream_account_lock_mismatch_total",
			Help: "アカウントロック不一致の検出数",
		}, []string{"source"}),
		sessionPhase: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nebulastream_session_transitions_total",
			Help: "セッション状態遷移の遷移先別の合計数",
		}, []string{"phase"}),
		channelLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nebulastream_channel_loads_total",
			Help: "チャンネル一覧取得の結果別の合計数",
		}, []string{"result"}),
		channelsFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nebulastream_channels_loaded",
			Help: "直近に取得したチャンネル数",
		}),
		apiStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nebulastream_api_status_total",
			Help: "バックエンドAPIのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		apiLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nebulastream_api_latency_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.validations,
		c.lockMismatch,
		c.sessionPhase,
		c.channelLoads,
		c.channelsFound,
		c.apiStatus,
		c.apiLatency,
	)

	return c
}

// RecordSessionValidation はセッション検証の結果を記録する。
func (c *Collector) RecordSessionValidation(outcome string) {
	c.validations.WithLabelValues(outcome).Inc()
}

// RecordLockMismatch はアカウントロック不一致を記録する。sourceは revalidate または login。
func (c *Collector) RecordLockMismatch(source string) {
	c.lockMismatch.WithLabelValues(source).Inc()
}

// RecordSessionPhase はセッション状態の遷移先を記録する。
func (c *Collector) RecordSessionPhase(phase string) {
	c.sessionPhase.WithLabelValues(phase).Inc()
}

// RecordChannelLoad はチャンネル一覧取得の結果を記録する。
func (c *Collector) RecordChannelLoad(success bool, count int) {
	if !success {
		c.channelLoads.WithLabelValues("failure").Inc()
		c.channelsFound.Set(0)
		return
	}
	c.channelLoads.WithLabelValues("success").Inc()
	c.channelsFound.Set(float64(count))
}

// RecordAPIStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordAPIStatus(statusCode int) {
	c.apiStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordAPILatency はAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordAPILatency(duration time.Duration) {
	c.apiLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないMetricsCollector。メトリクス不要な利用者（CLI等）向け。
type Nop struct{}

func (Nop) RecordSessionValidation(string) {}
func (Nop) RecordLockMismatch(string)      {}
func (Nop) RecordSessionPhase(string)      {}
func (Nop) RecordChannelLoad(bool, int)    {}
func (Nop) RecordAPIStatus(int)            {}
func (Nop) RecordAPILatency(time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
