package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	id "wastetrack/pkg/domain"
	"wastetrack/pkg/platform/httputil"
	"wastetrack/pkg/requestcontext"
)

// RateLimiter bounds API requests per customer with a sliding window. The
// window tracks real timestamps, so bursts straddling a window boundary
// cannot double the effective limit.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[id.CustomerID][]time.Time
	limit   int
	window  time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[id.CustomerID][]time.Time),
		limit:   limit,
		window:  window,
	}
}

// Middleware must sit below RequireCustomer; it keys the window on the
// authenticated customer.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		customerID := requestcontext.CustomerID(r.Context())
		remaining, ok := l.allow(customerID, time.Now())

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limited",
				"error_description": "request rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) allow(customerID id.CustomerID, now time.Time) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.windows[customerID][:0]
	for _, ts := range l.windows[customerID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.limit {
		l.windows[customerID] = kept
		return 0, false
	}
	kept = append(kept, now)
	l.windows[customerID] = kept
	return l.limit - len(kept), true
}
