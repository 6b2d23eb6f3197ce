package mid

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net"
	"net/http"

	"github.com/MacroScout/macroscout/pkg/resilience"
)

// ClientID derives a stable per-client key from the request: the remote IP
// plus a short hash of the User-Agent, so distinct browsers behind one NAT
// are counted separately.
func ClientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	h := fnv.New32a()
	h.Write([]byte(r.UserAgent()))
	return fmt.Sprintf("%s-%08x", host, h.Sum32())
}

// RateLimit returns middleware enforcing the given sliding window limiter.
// Rejected requests get a 429 with a JSON body stating when to retry.
func RateLimit(limiter *resilience.KeyedLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientID(r)
			if limiter.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			opts := limiter.Opts()
			retryAfter := limiter.RetryAfter(key).Seconds()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(retryAfter))))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error":               "rate limit exceeded",
				"retry_after_seconds": retryAfter,
				"limit":               opts.MaxRequests,
				"window":              opts.Window.Seconds(),
			})
		})
	}
}
