package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request with its status, size and latency.
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			requestID := uuid.New().String()
			ww.Header().Set("X-Request-Id", requestID)

			defer func() {
				entry := log.WithFields(logrus.Fields{
					"http.req.method":   r.Method,
					"http.req.path":     r.URL.Path,
					"http.req.id":       requestID,
					"http.req.remote":   r.RemoteAddr,
					"http.resp.status":  ww.Status(),
					"http.resp.bytes":   ww.BytesWritten(),
					"http.resp.took_ms": time.Since(start).Milliseconds(),
				})
				if ww.Status() >= http.StatusInternalServerError {
					entry.Warn("request complete")
				} else {
					entry.Info("request complete")
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
