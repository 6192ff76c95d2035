package edgecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits 按存储区分的边缘缓存命中计数。
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_cache_hits_total",
			Help: "Total number of edge cache hits",
		},
		[]string{"store"},
	)

	// cacheMisses 边缘缓存未命中计数，含回退生产者路径。
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_cache_misses_total",
			Help: "Total number of edge cache misses",
		},
	)

	// storeErrors 按操作区分的存储错误计数，写入失败不影响响应路径。
	storeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_cache_store_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"operation"},
	)

	// revalidations 304 条件响应处理计数。
	revalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_cache_304_responses_total",
			Help: "Total number of 304 Not Modified responses post-processed",
		},
	)
)
