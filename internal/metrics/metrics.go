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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordExtractionSuccess(sourceType string)
	RecordExtractionFailure(reason string)
	RecordGenerationSuccess()
	RecordGenerationFailure(reason string)
	RecordLLMLatency(operation string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordSourcesImported(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	extractSuccess  *prometheus.CounterVec
	extractFail     *prometheus.CounterVec
	generateSuccess prometheus.Counter
	generateFail    *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
	httpStatus      *prometheus.CounterVec
	sourcesImported prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		extractSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_extraction_success_total",
			Help: "URLコンテンツ抽出成功の合計数",
		}, []string{"source_type"}),
		extractFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_extraction_fail_total",
			Help: "URLコンテンツ抽出失敗の合計数",
		}, []string{"reason"}),
		generateSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdesk_generation_success_total",
			Help: "ニュースレター生成成功の合計数",
		}),
		generateFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_generation_fail_total",
			Help: "ニュースレター生成失敗の合計数",
		}, []string{"reason"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsdesk_llm_latency_seconds",
			Help:    "LLM呼び出しのレイテンシ（秒）",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sourcesImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdesk_sources_imported_total",
			Help: "取り込まれたコンテンツ素材の合計数",
		}),
	}

	reg.MustRegister(
		c.extractSuccess,
		c.extractFail,
		c.generateSuccess,
		c.generateFail,
		c.llmLatency,
		c.httpStatus,
		c.sourcesImported,
	)

	return c
}

// RecordExtractionSuccess はURL抽出成功を記録する。
func (c *Collector) RecordExtractionSuccess(sourceType string) {
	c.extractSuccess.WithLabelValues(sourceType).Inc()
}

// RecordExtractionFailure はURL抽出失敗を記録する。
func (c *Collector) RecordExtractionFailure(reason string) {
	c.extractFail.WithLabelValues(reason).Inc()
}

// RecordGenerationSuccess はニュースレター生成成功を記録する。
func (c *Collector) RecordGenerationSuccess() {
	c.generateSuccess.Inc()
}

// RecordGenerationFailure はニュースレター生成失敗を記録する。
func (c *Collector) RecordGenerationFailure(reason string) {
	c.generateFail.WithLabelValues(reason).Inc()
}

// RecordLLMLatency はLLM呼び出しのレイテンシを記録する。
func (c *Collector) RecordLLMLatency(operation string, duration time.Duration) {
	c.llmLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSourcesImported は取り込まれた素材数を記録する。
func (c *Collector) RecordSourcesImported(count int) {
	c.sourcesImported.Add(float64(count))
}

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
