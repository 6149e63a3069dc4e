package engagement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache telemetry. Global counters only; keys never become labels.
var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_engagement_cache_hits_total",
		Help: "Engagement reads answered from the cache tier",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_engagement_cache_misses_total",
		Help: "Engagement reads that fell through to the durable store",
	})
	degradedReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_engagement_degraded_reads_total",
		Help: "Engagement reads served while the cache tier was unreachable",
	})
	cacheDesyncs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_engagement_cache_desync_total",
		Help: "Committed writes whose cache update failed (self-corrected on next miss)",
	})
)
