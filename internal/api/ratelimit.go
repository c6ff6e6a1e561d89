package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"
)

// clientIDHeader lets well-behaved clients get their own rate bucket even
// behind a shared NAT; everyone else is keyed by resolved IP.
const clientIDHeader = "X-Client-Id"

func rateLimit(requests int, window time.Duration, resolver *ClientIPResolver) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if id := strings.TrimSpace(r.Header.Get(clientIDHeader)); id != "" {
				return "cid:" + id, nil
			}
			return "ip:" + resolver.Resolve(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", retryAfter(window))
			writeError(w, http.StatusTooManyRequests, "", "rate limit exceeded")
		}),
	)
}

func retryAfter(window time.Duration) string {
	seconds := int((window + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
