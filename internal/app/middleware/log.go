package middleware

import (
	"context"
	"net/http"
	"time"

	"paybridge/internal/app/logger"
)

type ctxKeyRequestID struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// RequestIDFrom returns the request id set by RequestID, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

// Log injects a per-request logger into the context and writes an access
// line when the handler returns.
func Log(l logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rl := l.With().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", RequestIDFrom(r.Context())).
				Logger()
			r = r.WithContext(rl.WithContext(r.Context()))

			next.ServeHTTP(w, r)

			rl.Debug().Dur("duration", time.Since(start)).Msg("Request served")
		})
	}
}
