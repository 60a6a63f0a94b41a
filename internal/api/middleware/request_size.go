package middleware

import (
	"net/http"
)

const (
	// DefaultMaxBodySize bounds JSON and form bodies.
	DefaultMaxBodySize int64 = 1 << 20
)

// RequestSize caps the request body. Reads past maxBytes fail with
// *http.MaxBytesError, which handlers report as 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Connection", "close")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
