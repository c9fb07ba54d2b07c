// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors:
// - http_requests_total: requests by route, method and status
// - http_request_duration_seconds: request latency by route and method
// - conversions_total: conversions by tool and outcome
// - conversion_duration_seconds: capability run time by tool
// - conversion_output_bytes: payload size returned per tool
// - scratch_scopes_swept_total: stale scope directories removed by the sweeper
var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by route, method and status"},
		[]string{"path", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request latency in seconds", Buckets: prometheus.DefBuckets},
		[]string{"path", "method"},
	)
	Conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "conversions_total", Help: "Conversions by tool and outcome"},
		[]string{"tool", "outcome"},
	)
	ConversionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "conversion_duration_seconds", Help: "Capability run time in seconds", Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}},
		[]string{"tool"},
	)
	OutputBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "conversion_output_bytes", Help: "Response payload size in bytes", Buckets: prometheus.ExponentialBuckets(1024, 4, 10)},
		[]string{"tool"},
	)
	ScopesSwept = prometheus.NewCounter(prometheus.CounterOpts{Name: "scratch_scopes_swept_total", Help: "Stale scope directories removed"})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, Conversions, ConversionLatency, OutputBytes, ScopesSwept)
}

// ObserveConversion records one capability run
func ObserveConversion(tool string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	Conversions.WithLabelValues(tool, outcome).Inc()
	ConversionLatency.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// Middleware records basic HTTP metrics for every request
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status == http.StatusOK {
					status = http.StatusInternalServerError
				}
			}
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			HTTPLatency.WithLabelValues(path, c.Request().Method).Observe(time.Since(start).Seconds())
			HTTPRequests.WithLabelValues(path, c.Request().Method, strconv.Itoa(status)).Inc()
			return err
		}
	}
}

// Handler exposes the default Prometheus registry
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
