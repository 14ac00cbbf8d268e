// Package metrics provides Prometheus metrics and health endpoints.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quant_ta"

var startTime = time.Now()

// Computation metrics
var (
	ComputationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "computations_total",
		Help:      "Indicator computations by indicator and outcome.",
	}, []string{"indicator", "outcome"})

	UndefinedValuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "undefined_values_total",
		Help:      "Positions past warm-up left undefined by a domain error.",
	}, []string{"indicator"})

	ComputationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "computation_latency_seconds",
		Help:      "Time spent computing one indicator over a series.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"indicator"})
)

// Data metrics
var (
	BarsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bars_loaded_total",
		Help:      "Bars parsed from data files.",
	})

	RowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_skipped_total",
		Help:      "Malformed data rows skipped while parsing.",
	})

	RunsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_persisted_total",
		Help:      "Indicator runs saved to the result store.",
	})
)

// API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Compute API requests by HTTP status code.",
	}, []string{"code"})

	APIRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_rate_limited_total",
		Help:      "Compute API requests rejected by the rate limiter.",
	})
)

// System metrics
var (
	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Errors by type.",
	}, []string{"type"})

	UptimeSeconds = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since process start.",
	}, func() float64 {
		return time.Since(startTime).Seconds()
	})

	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information.",
	}, []string{"version", "commit", "build_time"})
)

// SetBuildInfo publishes the build labels.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
