package middleware

import (
	"net/http"
	"sync/atomic"
)

// MetricsCollector feeds the /metrics endpoint. The counters are owned by
// the app so they outlive any one middleware chain; the collector only
// increments them.
type MetricsCollector struct {
	requestCount *atomic.Int64
	errorCount   *atomic.Int64
}

func NewMetricsCollector(requestCount, errorCount *atomic.Int64) *MetricsCollector {
	return &MetricsCollector{
		requestCount: requestCount,
		errorCount:   errorCount,
	}
}

// Middleware counts every request, and counts a response as an error when
// its status is 4xx or 5xx.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requestCount.Add(1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= http.StatusBadRequest {
			mc.errorCount.Add(1)
		}
	})
}
