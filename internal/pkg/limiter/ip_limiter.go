/*
Package limiter provides join rate limiting based on client IP addresses.

It uses the token bucket algorithm (rate.Limiter) per IP and runs a cleanup goroutine
that periodically removes idle limiters.
*/
package limiter

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tcpchat/internal/pkg/logx"
)

const cleanupInterval = 3 * time.Minute

// IPRateLimiter implements a rate limiter keyed by client IP address.
type IPRateLimiter struct {
	// mu protects concurrent access to the limits map.
	mu sync.RWMutex

	// limits maps a client IP address to its limiter.
	limits map[string]*rate.Limiter

	r rate.Limit
	b int

	stop     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter creates a limiter allowing r events per second with burst b for each IP,
// and starts a background goroutine that drops idle entries until Close is called.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		stop:   make(chan struct{}),
	}

	go i.cleanUpVisitors()

	return i
}

// GetLimiter returns the limiter for ip, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if !exists {
		i.mu.Lock()
		limiter, exists = i.limits[ip]
		if !exists {
			limiter = rate.NewLimiter(i.r, i.b)
			i.limits[ip] = limiter
		}
		i.mu.Unlock()
	}

	return limiter
}

// AllowAddr reports whether a new connection from addr (host:port or bare host) may proceed.
func (i *IPRateLimiter) AllowAddr(addr string) bool {
	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		ip = addr
	}
	if ip == "" {
		ip = "unknown_ip"
	}
	return i.GetLimiter(ip).Allow()
}

// Close stops the cleanup goroutine.
func (i *IPRateLimiter) Close() {
	i.stopOnce.Do(func() { close(i.stop) })
}

// cleanUpVisitors removes limiters whose bucket is full again, i.e. IPs that have been idle.
func (i *IPRateLimiter) cleanUpVisitors() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-i.stop:
			return
		case <-ticker.C:
		}

		i.mu.Lock()
		count := 0
		for ip, limiter := range i.limits {
			if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
				delete(i.limits, ip)
				count++
			}
		}
		remaining := len(i.limits)
		i.mu.Unlock()

		logx.Info("Join limiter cleanup finished", "removed", count, "remaining", remaining)
	}
}
