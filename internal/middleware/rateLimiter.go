package middleware

import (
	"sync"
	"time"

	"github.com/akolanti/docrag/internal/config"
	"golang.org/x/time/rate"
)

var limiterInstance = NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND, config.RateLimiterIdleTTL)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client ip.
// Buckets idle longer than idleTTL are dropped on the next sweep, so a scan from many addresses does not grow the map forever.
type IPRateLimiter struct {
	ips       map[string]*clientLimiter
	mu        sync.Mutex
	rateLimit rate.Limit
	burstRate int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewIPRateLimiter(r rate.Limit, b int, idleTTL time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		ips:       make(map[string]*clientLimiter),
		rateLimit: r,
		burstRate: b,
		idleTTL:   idleTTL,
		now:       time.Now,
	}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()
	now := i.now()
	if i.idleTTL > 0 && now.Sub(i.lastSweep) >= i.idleTTL {
		i.sweepLocked(now)
	}

	client, exists := i.ips[ip]
	if !exists {
		client = &clientLimiter{limiter: rate.NewLimiter(i.rateLimit, i.burstRate)}
		i.ips[ip] = client
	}
	client.lastSeen = now
	return client.limiter
}

// Allow spends one token from the client's bucket.
func (i *IPRateLimiter) Allow(ip string) bool {
	return i.GetLimiter(ip).Allow()
}

// Tracked reports how many clients currently hold a bucket.
func (i *IPRateLimiter) Tracked() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ips)
}

func (i *IPRateLimiter) sweepLocked(now time.Time) {
	for ip, client := range i.ips {
		if now.Sub(client.lastSeen) >= i.idleTTL {
			delete(i.ips, ip)
		}
	}
	i.lastSweep = now
}

//TODO: move the per-ip limiters to redis once the api runs on more than one instance
