package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type rlClient struct {
	lim  *rate.Limiter
	seen time.Time
}

const (
	rlSweepEvery = time.Minute
	rlStaleAfter = 3 * time.Minute
)

// RateLimiter hands out a token-bucket limiter per client IP. Used on
// the OTP request endpoint so a single caller cannot spray login codes.
// Stale entries are swept inline from get, so a limiter holds no
// goroutine and can be dropped with its router.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*rlClient
	r         rate.Limit
	burst     int
	nextSweep time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*rlClient),
		r:         rate.Limit(rps),
		burst:     burst,
		nextSweep: time.Now().Add(rlSweepEvery),
	}
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.After(rl.nextSweep) {
		for addr, c := range rl.clients {
			if now.Sub(c.seen) > rlStaleAfter {
				delete(rl.clients, addr)
			}
		}
		rl.nextSweep = now.Add(rlSweepEvery)
	}

	if c, ok := rl.clients[ip]; ok {
		c.seen = now
		return c.lim
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.clients[ip] = &rlClient{lim: l, seen: now}
	return l
}

// Middleware enforces the per-IP limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !rl.get(ip).Allow() {
			writeError(w, http.StatusTooManyRequests, "too_many_requests", "slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}
