// Package metrics 暴露 Prometheus 指标：HTTP 请求、故事生成流水线、单页插画结果
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storybook"

// 单页插画结果
const (
	PageImageOK             = "ok"
	PageImageGenerateFailed = "generate_failed"
	PageImagePersistFailed  = "persist_failed"
)

var (
	// Registry 本服务自己的指标注册表
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms ~ 40s
		},
		[]string{"method", "path"},
	)

	pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Story pipeline and revision runs by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	pipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of story pipeline and revision runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s ~ 4min
		},
		[]string{"operation"},
	)

	pageImages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "page_images_total",
			Help:      "Per-page illustration results.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		pipelineRuns,
		pipelineDuration,
		pageImages,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler 返回 /metrics 的处理器
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware gin 中间件，按路由模板记录请求数与耗时
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordRun 记录一次生成或修改的结果，operation 取 generate/revise
func RecordRun(operation, outcome string, duration time.Duration) {
	pipelineRuns.WithLabelValues(operation, outcome).Inc()
	pipelineDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPageImage 记录单页插画结果
func RecordPageImage(outcome string) {
	pageImages.WithLabelValues(outcome).Inc()
}
