package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		RouterQueriesTotal, RouterClassificationsTotal, RouterDuration,
		IngestChunksTotal, IngestFilesTotal,
		HTTPRequestsTotal, LLMRateLimitWaitSeconds,
		WebSearchCacheTotal,
	)
}

// RouterQueriesTotal 路由处理的查询数（按处理路径 method）
var RouterQueriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rag_router_queries_total",
		Help: "路由处理的查询总数（按 method）",
	},
	[]string{"method"},
)

// RouterClassificationsTotal 分类结果计数
var RouterClassificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rag_router_classifications_total",
		Help: "查询分类总数",
	},
	[]string{"category", "source"}, // source: llm | fallback
)

// RouterDuration 单次查询处理耗时（秒）
var RouterDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "rag_router_duration_seconds",
		Help:    "查询处理耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method"},
)

// IngestChunksTotal 入库切片总数
var IngestChunksTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "rag_ingest_chunks_total",
		Help: "入库切片总数",
	},
)

// IngestFilesTotal 入库文件数（按结果）
var IngestFilesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rag_ingest_files_total",
		Help: "入库文件总数",
	},
	[]string{"status"}, // ok | failed
)

// HTTPRequestsTotal HTTP 请求数
var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rag_http_requests_total",
		Help: "HTTP 请求总数",
	},
	[]string{"path", "status"},
)

// LLMRateLimitWaitSeconds LLM 限流等待耗时
var LLMRateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "rag_llm_rate_limit_wait_seconds",
		Help:    "LLM 调用因限流等待的时间（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider"},
)

// WebSearchCacheTotal Web 搜索缓存命中情况
var WebSearchCacheTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rag_websearch_cache_total",
		Help: "Web 搜索缓存查询次数",
	},
	[]string{"result"}, // hit | miss
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
