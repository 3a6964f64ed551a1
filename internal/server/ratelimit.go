package server

import (
	"sync"
	"time"
)

// RateLimiter implements a fixed window limiter per client IP.
type RateLimiter struct {
	mu              sync.Mutex
	buckets         map[string]*bucket
	rate            int
	window          time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter allows rate requests per window and client. A background
// goroutine drops stale buckets until Stop is called.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets:         make(map[string]*bucket),
		rate:            rate,
		window:          window,
		cleanupInterval: window * 2,
		now:             time.Now,
		stop:            make(chan struct{}),
	}
	if rl.cleanupInterval <= 0 {
		rl.cleanupInterval = time.Minute
	}
	go rl.cleanup()
	return rl
}

// Allow checks if a request from the given IP should be allowed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	b, exists := rl.buckets[ip]
	if !exists || now.Sub(b.lastReset) >= rl.window {
		rl.buckets[ip] = &bucket{tokens: rl.rate - 1, lastReset: now}
		return rl.rate > 0
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for ip, b := range rl.buckets {
		if now.Sub(b.lastReset) > rl.window*2 {
			delete(rl.buckets, ip)
		}
	}
}
