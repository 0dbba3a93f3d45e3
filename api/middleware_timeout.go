package api

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// TimeoutMiddleware bounds the request context. Handlers pass the context to
// every database and vendor call, which then fail with context.DeadlineExceeded.
// Paths with one of the skip prefixes (long-lived websockets) are left alone.
func TimeoutMiddleware(timeout time.Duration, skip ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range skip {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
