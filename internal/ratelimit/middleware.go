package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookingdesk/internal/api"
	"bookingdesk/internal/observability"
)

// Middleware throttles by client IP under scope, e.g. "booking-notification".
// Every response carries X-RateLimit-* headers; denials get 429 and Retry-After.
// The decision is stored on the request so handlers can echo the remaining quota.
func Middleware(g *Gate, scope string, window time.Duration, max int, logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			d, err := g.Allow(r.Context(), scope+":"+ClientIP(r), window, max)
			if err != nil {
				observability.LoggerFrom(r.Context(), logger).WithError(err).Error("rate limit store failed")
				api.WriteError(w, http.StatusServiceUnavailable, "RATE_LIMIT_UNAVAILABLE", "please try again later")
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.UnixMilli(), 10))

			if !d.Allowed {
				retry := int((d.RetryAfter(g.now()) + time.Second - 1) / time.Second)
				h.Set("Retry-After", strconv.Itoa(retry))
				api.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"error": api.APIError{
						Code:    "RATE_LIMITED",
						Message: "Too many requests. Please try again later.",
					},
					"retryAfter": retry,
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(withDecision(r.Context(), d)))
		})
	}
}

// ClientIP is the first X-Forwarded-For entry, then X-Real-IP, else "unknown".
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	return "unknown"
}
