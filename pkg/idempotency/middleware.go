package idempotency

import (
	"context"
	"log/slog"
	"net/http"
)

const HeaderKey = "Idempotency-Key"

// Claimer claims and frees request keys.
type Claimer interface {
	Key(scope, key string) string
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Middleware rejects a request whose Idempotency-Key has been accepted
// within the store TTL. Requests without the header pass through. A key only
// stays claimed when the handler succeeds; failed requests free it so the
// client can retry with the same key.
func Middleware(log *slog.Logger, store Claimer, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			full := store.Key(scope, key)
			seen, err := store.Seen(r.Context(), full)
			if err != nil {
				log.Error("idempotency check failed", "key", key, "err", err)
				reject(w, http.StatusServiceUnavailable, "service unavailable")
				return
			}
			if seen {
				log.Info("duplicate request rejected", "key", key)
				reject(w, http.StatusConflict, "duplicate request")
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusBadRequest {
				if err := store.Release(context.WithoutCancel(r.Context()), full); err != nil {
					log.Error("idempotency release failed", "key", key, "err", err)
				}
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func reject(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
