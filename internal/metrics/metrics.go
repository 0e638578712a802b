// Package metrics registers Prometheus instrumentation for the audit pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched tracks pages successfully fetched, by method.
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seoaudit_pages_fetched_total",
		Help: "The total number of pages successfully fetched.",
	}, []string{"method"})
	// FetchErrors tracks fetch attempts that resulted in an error.
	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seoaudit_fetch_errors_total",
		Help: "The total number of failed page fetches.",
	})
	// RobotsSkips tracks URLs skipped because robots.txt disallowed them.
	RobotsSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seoaudit_robots_skips_total",
		Help: "The total number of URLs skipped by robots policy.",
	})
	// RenderPromotions tracks lightweight fetches re-issued through the renderer.
	RenderPromotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seoaudit_render_promotions_total",
		Help: "The total number of fetches promoted to the rendering path.",
	})
	// RateLimitDelay observes time spent waiting on per-domain tokens.
	RateLimitDelay = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seoaudit_rate_limit_delay_seconds",
		Help:    "Delay introduced by the per-domain rate limiter.",
		Buckets: prometheus.DefBuckets,
	}, []string{"domain"})
	// AuditDuration observes end-to-end audit wall-clock time.
	AuditDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "seoaudit_audit_duration_seconds",
		Help:    "End-to-end audit duration.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	// EngineFailures tracks category engines that failed, by category.
	EngineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seoaudit_engine_failures_total",
		Help: "The total number of category engine failures.",
	}, []string{"category"})
)

// ObserveRateLimitDelay records a rate-limiter wait for a domain.
func ObserveRateLimitDelay(domain string, d time.Duration) {
	RateLimitDelay.WithLabelValues(domain).Observe(d.Seconds())
}
