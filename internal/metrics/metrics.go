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
// MLSクライアントやサービス層、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordMLSRequest(endpoint, outcome string, duration time.Duration)
	RecordCollectionOp(kind, op, result string)
	RecordHTTPStatus(statusCode int)
	RecordCacheResult(result string)
	RecordUnresolvedEntries(kind string, count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	mlsRequests   *prometheus.CounterVec
	mlsLatency    *prometheus.HistogramVec
	collectionOps *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
	cacheResults  *prometheus.CounterVec
	unresolved    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		mlsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estatecart_mls_requests_total",
			Help: "MLS APIへのリクエスト数（エンドポイント・結果別）",
		}, []string{"endpoint", "outcome"}),
		mlsLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "estatecart_mls_latency_seconds",
			Help:    "MLS APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		collectionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estatecart_collection_ops_total",
			Help: "カート・ウィッシュリスト操作数（種別・操作・結果別）",
		}, []string{"kind", "op", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estatecart_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		cacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estatecart_property_cache_total",
			Help: "物件キャッシュの参照結果数（hit, miss, error）",
		}, []string{"result"}),
		unresolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estatecart_unresolved_entries_total",
			Help: "一覧取得時に物件情報を解決できず省略したエントリ数",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.mlsRequests,
		c.mlsLatency,
		c.collectionOps,
		c.httpStatus,
		c.cacheResults,
		c.unresolved,
	)

	return c
}

// RecordMLSRequest はMLS APIリクエストの結果とレイテンシを記録する。
func (c *Collector) RecordMLSRequest(endpoint, outcome string, duration time.Duration) {
	c.mlsRequests.WithLabelValues(endpoint, outcome).Inc()
	c.mlsLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCollectionOp はコレクション操作を記録する。
func (c *Collector) RecordCollectionOp(kind, op, result string) {
	c.collectionOps.WithLabelValues(kind, op, result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCacheResult は物件キャッシュの参照結果を記録する。
func (c *Collector) RecordCacheResult(result string) {
	c.cacheResults.WithLabelValues(result).Inc()
}

// RecordUnresolvedEntries は一覧から省略したエントリ数を記録する。
func (c *Collector) RecordUnresolvedEntries(kind string, count int) {
	if count <= 0 {
		return
	}
	c.unresolved.WithLabelValues(kind).Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。メトリクスを使用しない構成やテストで利用する。
type Nop struct{}

func (Nop) RecordMLSRequest(string, string, time.Duration) {}
func (Nop) RecordCollectionOp(string, string, string)      {}
func (Nop) RecordHTTPStatus(int)                           {}
func (Nop) RecordCacheResult(string)                       {}
func (Nop) RecordUnresolvedEntries(string, int)            {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

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
