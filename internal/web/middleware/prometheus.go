package middleware

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/assettrack/internal/metrics"
)

// Prometheus records request duration and count, skipping the scrape
// endpoint itself.
func Prometheus(metricsPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			if r.URL.Path == metricsPath {
				return
			}
			path := r.URL.Path
			if path == "" {
				path = "/"
			}
			metrics.RecordRequest(r.Method, path, rec.status, time.Since(start).Seconds())
		})
	}
}
