// Package metrics 提供 Prometheus 指标集合：HTTP/gRPC 请求、路径生成与历史利率缓存
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shortrate"

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// gRPC 请求计数
	GRPCRequestsTotal *prometheus.CounterVec
	// gRPC 请求耗时
	GRPCRequestDuration *prometheus.HistogramVec

	// 场景生成次数，按模型与结果区分
	ScenariosTotal *prometheus.CounterVec
	// 场景生成耗时
	GenerationDuration *prometheus.HistogramVec
	// 单次生成的路径数
	PathsPerScenario prometheus.Histogram
	// 违反 Feller 条件的 CIR 场景数
	FellerAdvisoriesTotal prometheus.Counter

	// 历史利率缓存命中
	CacheHitsTotal prometheus.Counter
	// 历史利率缓存未命中
	CacheMissesTotal prometheus.Counter
}

// New 创建指标实例，使用独立 registry 以便同进程内多次创建
func New(serviceName string) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "http_requests_total",
			Help:        "Total HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),

		GRPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "grpc_requests_total",
			Help:        "Total gRPC requests",
			ConstLabels: constLabels,
		}, []string{"method", "code"}),
		GRPCRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "grpc_request_duration_seconds",
			Help:        "gRPC request duration in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method"}),

		ScenariosTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "scenarios_total",
			Help:        "Scenario generation requests by model and outcome",
			ConstLabels: constLabels,
		}, []string{"model", "outcome"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "generation_duration_seconds",
			Help:        "Path generation duration in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"model"}),
		PathsPerScenario: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "paths_per_scenario",
			Help:        "Number of paths per generated scenario",
			ConstLabels: constLabels,
			Buckets:     []float64{1, 10, 100, 1000, 5000, 10000},
		}),
		FellerAdvisoriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "feller_advisories_total",
			Help:        "CIR scenarios generated with the Feller condition violated",
			ConstLabels: constLabels,
		}),

		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rate_cache_hits_total",
			Help:        "Rate history cache hits",
			ConstLabels: constLabels,
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rate_cache_misses_total",
			Help:        "Rate history cache misses",
			ConstLabels: constLabels,
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GRPCRequestsTotal,
		m.GRPCRequestDuration,
		m.ScenariosTotal,
		m.GenerationDuration,
		m.PathsPerScenario,
		m.FellerAdvisoriesTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)
	return m
}

// Registry 返回指标 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 Prometheus 抓取接口
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGRPCRequest 记录 gRPC 请求
func (m *Metrics) RecordGRPCRequest(method, code string, duration time.Duration) {
	m.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
	m.GRPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordScenario 记录一次场景生成；outcome 为 ok、invalid、rejected 或 error
func (m *Metrics) RecordScenario(model, outcome string, paths int, duration time.Duration, fellerViolated bool) {
	m.ScenariosTotal.WithLabelValues(model, outcome).Inc()
	if outcome != "ok" {
		return
	}
	m.GenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	m.PathsPerScenario.Observe(float64(paths))
	if fellerViolated {
		m.FellerAdvisoriesTotal.Inc()
	}
}

// RecordCacheLookup 记录缓存命中或未命中
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}
