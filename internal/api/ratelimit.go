package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/c-pro/geche"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client's bucket is kept after its last request.
const limiterIdleTTL = 10 * time.Minute

// Limiter hands out a token bucket per client address.
type Limiter struct {
	limit   rate.Limit
	burst   int
	clients geche.Geche[string, *rate.Limiter]
	mu      sync.Mutex
}

// NewLimiter allows each client rps requests per second with bursts of
// burst. Idle buckets are dropped in the background until ctx is done.
func NewLimiter(ctx context.Context, rps float64, burst int) *Limiter {
	return &Limiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: geche.NewMapTTLCache[string, *rate.Limiter](ctx, limiterIdleTTL, time.Minute),
	}
}

// Allow takes a token from the client's bucket.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, err := l.clients.Get(client)
	if err != nil {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	// Setting again keeps the bucket alive while the client is active.
	l.clients.Set(client, lim)
	return lim.Allow()
}

// RateLimit rejects requests with 429 once the caller's bucket is empty.
// A nil limiter lets everything through.
func RateLimit(l *Limiter, next http.HandlerFunc) http.HandlerFunc {
	if l == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientAddr(r)) {
			w.Header().Set("Retry-After", "1")
			_ = writeResponse(w, r, http.StatusTooManyRequests, ErrorResponse{Success: false, Error: "Too many requests"})
			return
		}
		next(w, r)
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
