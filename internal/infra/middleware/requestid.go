package middleware

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"semanticheck/internal/infra/logger"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// NewRequestID returns a new ULID string.
func NewRequestID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// RequestIDFromContext returns the request ID stored by RequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID assigns each request an ID (reusing a well-formed incoming
// X-Request-ID) and stores a child of log tagged with it in the request context.
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := ulid.ParseStrict(id); err != nil {
				id = NewRequestID()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			ctx = logger.WithContext(ctx, log.With("request_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
