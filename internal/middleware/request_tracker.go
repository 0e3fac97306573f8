package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/mikronet-dev/hotspot-backend/internal/store"
)

// RequestTracker stores request audit rows in the database. The payment
// callback is redirect-only towards the customer, so this log is the
// operator's record of what each reference attempt looked like.
type RequestTracker struct {
	store *store.Store
}

// NewRequestTracker creates a new request tracker middleware
func NewRequestTracker(db *sql.DB) (*RequestTracker, error) {
	s, err := store.New(db)
	if err != nil {
		return nil, err
	}
	return &RequestTracker{store: s}, nil
}

// Middleware returns an HTTP middleware that records request metrics
func (rt *RequestTracker) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			responseTimeMs := int(time.Since(start).Milliseconds())

			requestSizeBytes := int(r.ContentLength)
			if requestSizeBytes < 0 {
				requestSizeBytes = 0
			}
			responseSizeBytes := rw.size

			// Record asynchronously; the audit trail never blocks or fails
			// a customer request.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = rt.store.CreateRequestLog(
					ctx,
					r.Method,
					r.URL.Path,
					rw.statusCode,
					&responseTimeMs,
					&requestSizeBytes,
					&responseSizeBytes,
				)
			}()
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}
