package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-lavado/internal/common"
)

// ByClientIP keys requests by the terminal address.
func ByClientIP(r *http.Request) string {
	return common.ClientIP(r)
}

// Handler throttles the endpoints that issue invoice numbers. Each key gets
// the limiter's rate; Key defaults to ByClientIP.
type Handler struct {
	Limiter *limiter.Limiter
	Key     func(*http.Request) string
	// OnError observes store failures. The request is served regardless so a
	// Redis outage never blocks the counter.
	OnError func(error)
}

// Middleware answers 429 RATE_LIMITED once the key exhausts its budget and
// reports the budget in X-RateLimit-* headers.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil {
		return next
	}
	keyOf := h.Key
	if keyOf == nil {
		keyOf = ByClientIP
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lctx, err := h.Limiter.Get(r.Context(), keyOf(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
		if !lctx.Reached {
			next.ServeHTTP(w, r)
			return
		}

		wait := time.Until(time.Unix(lctx.Reset, 0))
		headers.Set("Retry-After", strconv.Itoa(max(int(wait.Round(time.Second)/time.Second), 1)))
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many invoices from this terminal, retry later", nil)
	})
}
