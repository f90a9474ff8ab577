// Package metrics holds Prometheus instruments that are used across the
// storefront.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for ContextAssemblyTotal.
const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "auth_required"
	OutcomeNoTenant     = "tenant_failed"
	OutcomeCanceled     = "canceled"
	OutcomeError        = "error"
)

var (
	ContextAssemblyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "request_context_assembly_total",
			Help: "Request contexts assembled, by outcome.",
		}, []string{"outcome"})

	ContextAssemblySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "request_context_assembly_seconds",
			Help:    "Time spent assembling one request context.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		})

	InvalidCredentialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_invalid_credentials_total",
			Help: "Credentials presented but rejected, by method.",
		}, []string{"method"})

	TenantDirectorySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenant_directory_sites",
			Help: "Active sites in the tenant directory snapshot.",
		})

	FlagStoreFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flag_store_failures_total",
			Help: "Flag store lookups that failed and fell back to default-false.",
		})

	FlagCacheLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flag_cache_load_total",
			Help: "Per-tenant flag rule sets loaded into the cache.",
		})

	FlagCacheEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flag_cache_evict_total",
			Help: "Per-tenant flag rule sets evicted from the cache.",
		})

	FlagCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flag_cache_entries",
			Help: "Per-tenant flag rule sets currently cached.",
		})

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		})
)

func init() {
	prometheus.MustRegister(
		ContextAssemblyTotal,
		ContextAssemblySeconds,
		InvalidCredentialsTotal,
		TenantDirectorySize,
		FlagStoreFailuresTotal,
		FlagCacheLoadTotal,
		FlagCacheEvictTotal,
		FlagCacheEntries,
		RateLimitedTotal,
	)
}
