package http

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Per-client budgets over a one-minute window. An upload makes the backend
// parse the file, so uploads get a much smaller budget than the cheap
// mutations (delete confirmations, expand/collapse, search posts).
const (
	uploadBudget   = 10
	mutationBudget = 60

	windowLength    = time.Minute
	cleanupInterval = 5 * time.Minute
	clientStaleAge  = 10 * time.Minute
)

// rateLimiter throttles mutating requests per client IP, counting upload
// submissions separately from the rest.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientWindow
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

// clientWindow holds one client's counters for the current window.
type clientWindow struct {
	start     time.Time
	uploads   int
	mutations int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientWindow),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup periodically drops windows for clients that went quiet.
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.dropStaleClients()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) dropStaleClients() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-clientStaleAge)
	for ip, c := range rl.clients {
		if c.start.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop shuts down the cleanup goroutine.
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func isUploadPath(path string) bool {
	return strings.HasPrefix(path, "/upload/")
}

// allow reports whether a mutating request from clientIP to path fits its
// budget. Upload requests count against both the upload and the overall
// mutation budget.
func (rl *rateLimiter) allow(clientIP, path string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	c, ok := rl.clients[clientIP]
	if !ok || now.Sub(c.start) > windowLength {
		c = &clientWindow{start: now}
		rl.clients[clientIP] = c
	}

	c.mutations++
	over := c.mutations > mutationBudget
	if isUploadPath(path) {
		c.uploads++
		if c.uploads > uploadBudget {
			over = true
		}
	}

	if over {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}
