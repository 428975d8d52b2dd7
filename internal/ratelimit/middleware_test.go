package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bookingdesk/internal/observability"
)

func TestMiddleware_HeadersAndDeny(t *testing.T) {
	g, c := newTestGate()
	var remaining []int
	h := Middleware(g, "booking-notification", 15*time.Minute, 2, observability.NewNopLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, ok := DecisionFrom(r.Context())
			require.True(t, ok)
			remaining = append(remaining, d.Remaining)
			w.WriteHeader(http.StatusOK)
		}))

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, call().Code)
	rec := call()
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, []int{1, 0}, remaining)

	c.Advance(5 * time.Minute)
	rec = call()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "600", rec.Header().Get("Retry-After"))

	var body struct {
		RetryAfter int `json:"retryAfter"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, 600, body.RetryAfter)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	require.Equal(t, "203.0.113.9", ClientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.2")
	require.Equal(t, "198.51.100.2", ClientIP(req))

	require.Equal(t, "unknown", ClientIP(httptest.NewRequest(http.MethodGet, "/", nil)))
}
