package auth

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

// limiter hands out one token bucket per client address. Idle buckets expire.
type limiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	rate     rate.Limit
	burst    int
}

func newLimiter(rps float64, burst int) *limiter {
	if burst <= 0 {
		burst = 1
	}
	return &limiter{
		limiters: cache.New(limiterIdle, limiterIdle),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (l *limiter) allow(key string) bool {
	if l.rate <= 0 {
		return true
	}

	l.mu.Lock()
	var lim *rate.Limiter
	if v, ok := l.limiters.Get(key); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(l.rate, l.burst)
	}
	l.limiters.SetDefault(key, lim)
	l.mu.Unlock()

	return lim.Allow()
}

// ClientIP is the remote address of r without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
