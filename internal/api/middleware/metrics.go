// metrics.go — Prometheus HTTP метрики для Share Module.
// Регистрирует метрики: sm_http_requests_total, sm_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики Share Module
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sm_http_requests_total",
			Help: "Общее количество HTTP-запросов к Share Module",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sm_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Share Module в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (токены и UUID заменяются плейсхолдерами)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет динамические сегменты пути на плейсхолдеры для
// предотвращения взрывного роста кардинальности метрик.
// /api/v1/download/abc123...           → /api/v1/download/{token}
// /api/v1/shares/a1b2c3d4-...          → /api/v1/shares/{id}
// /api/v1/shares/a1b2c3d4-.../revoke   → /api/v1/shares/{id}/revoke
// /api/v1/shares/a1b2c3d4-.../activity → /api/v1/shares/{id}/activity
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/shares":
		return path
	}

	const downloadPrefix = "/api/v1/download/"
	if len(path) > len(downloadPrefix) && path[:len(downloadPrefix)] == downloadPrefix {
		return "/api/v1/download/{token}"
	}

	const sharesPrefix = "/api/v1/shares/"
	if len(path) > len(sharesPrefix) && path[:len(sharesPrefix)] == sharesPrefix {
		rest := path[len(sharesPrefix):]
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			switch rest[idx:] {
			case "/revoke":
				return "/api/v1/shares/{id}/revoke"
			case "/activity":
				return "/api/v1/shares/{id}/activity"
			}
		}
		return "/api/v1/shares/{id}"
	}

	return path
}
