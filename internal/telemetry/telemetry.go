// Package telemetry exposes Prometheus metrics for the capture service.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	captureRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camcapture_runs_total",
			Help: "Total capture runs, labeled by outcome.",
		},
		[]string{"status"},
	)

	captureRunDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "camcapture_run_duration_seconds",
			Help:    "Histogram of capture run durations.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	camerasTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camcapture_cameras_total",
			Help: "Per-camera capture attempts, labeled by camera and outcome.",
		},
		[]string{"camera", "outcome"},
	)

	captureFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camcapture_failures_total",
			Help: "Per-camera capture failures, labeled by reason.",
		},
		[]string{"reason"},
	)

	snapshotBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camcapture_snapshot_bytes_total",
			Help: "Total snapshot bytes uploaded, labeled by camera.",
		},
		[]string{"camera"},
	)

	insecureMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camcapture_insecure_mode",
			Help: "1 when no webhook secret is configured and the trigger endpoint is unprotected.",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"method", "route"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records the outcome and duration of one capture run.
func ObserveRun(status string, duration time.Duration) {
	captureRunsTotal.WithLabelValues(status).Inc()
	captureRunDurationSeconds.Observe(duration.Seconds())
}

// ObserveCapture records one per-camera attempt. reason is empty on success.
func ObserveCapture(camera string, success bool, reason string) {
	outcome := "success"
	if !success {
		outcome = "failure"
		captureFailuresTotal.WithLabelValues(reason).Inc()
	}
	camerasTotal.WithLabelValues(camera, outcome).Inc()
}

// AddSnapshotBytes records uploaded payload size for a camera.
func AddSnapshotBytes(camera string, n int) {
	if n > 0 {
		snapshotBytesTotal.WithLabelValues(camera).Add(float64(n))
	}
}

// SetInsecureMode surfaces whether the endpoint runs without a webhook secret.
func SetInsecureMode(insecure bool) {
	if insecure {
		insecureMode.Set(1)
		return
	}
	insecureMode.Set(0)
}

// ObserveHTTPRequest records metrics for an HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		ObserveHTTPRequest(r.Method, routePattern, ww.statusCode, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}
