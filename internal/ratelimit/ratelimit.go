// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config holds rate limiting configuration
type Config struct {
	WindowSize    time.Duration // Time window for rate limiting
	MaxAttempts   int           // Maximum requests per window
	CleanupPeriod time.Duration // How often to drop idle entries
	BanDuration   time.Duration // Extra lockout after exceeding the limit; 0 blocks until the window ends
}

func (c *Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if c.CleanupPeriod <= 0 {
		return fmt.Errorf("cleanup_period must be positive")
	}
	if c.BanDuration < 0 {
		return fmt.Errorf("ban_duration cannot be negative")
	}
	return nil
}

// IngestConfig allows perMinute requests per client and minute on the
// ingestion endpoints.
func IngestConfig(perMinute int) *Config {
	return &Config{
		WindowSize:    time.Minute,
		MaxAttempts:   perMinute,
		CleanupPeriod: 5 * time.Minute,
	}
}

// attemptRecord tracks requests of one identifier in the current window
type attemptRecord struct {
	Count     int
	FirstSeen time.Time
	BannedAt  *time.Time
}

// RateLimitInfo contains information about rate limit status
type RateLimitInfo struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
	Banned     bool
}

// MemoryRateLimiter is a fixed-window limiter keyed by an identifier.
type MemoryRateLimiter struct {
	config   *Config
	attempts map[string]*attemptRecord
	mu       sync.Mutex
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryRateLimiter starts a limiter and its cleanup goroutine; call Stop to end it.
func NewMemoryRateLimiter(config *Config) (*MemoryRateLimiter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit config: %w", err)
	}
	limiter := &MemoryRateLimiter{
		config:   config,
		attempts: make(map[string]*attemptRecord),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	go limiter.cleanupLoop()

	return limiter, nil
}

// Allow counts a request and reports whether it may proceed.
func (rl *MemoryRateLimiter) Allow(identifier string) (bool, *RateLimitInfo) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	record, exists := rl.attempts[identifier]

	if record != nil && record.BannedAt != nil {
		until := record.BannedAt.Add(rl.config.BanDuration)
		if now.Before(until) {
			return false, rl.info(false, 0, until, until.Sub(now), true)
		}
		exists = false
	}

	if !exists || now.Sub(record.FirstSeen) >= rl.config.WindowSize {
		record = &attemptRecord{FirstSeen: now}
		rl.attempts[identifier] = record
	}

	record.Count++
	reset := record.FirstSeen.Add(rl.config.WindowSize)

	if record.Count > rl.config.MaxAttempts {
		if rl.config.BanDuration > 0 {
			banTime := now
			record.BannedAt = &banTime
			until := now.Add(rl.config.BanDuration)
			return false, rl.info(false, 0, until, rl.config.BanDuration, true)
		}
		return false, rl.info(false, 0, reset, reset.Sub(now), false)
	}

	return true, rl.info(true, rl.config.MaxAttempts-record.Count, reset, 0, false)
}

func (rl *MemoryRateLimiter) info(allowed bool, remaining int, reset time.Time, retry time.Duration, banned bool) *RateLimitInfo {
	return &RateLimitInfo{
		Allowed:    allowed,
		Limit:      rl.config.MaxAttempts,
		Remaining:  remaining,
		ResetTime:  reset,
		RetryAfter: retry,
		Banned:     banned,
	}
}

// cleanupLoop periodically removes old records
func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *MemoryRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for identifier, record := range rl.attempts {
		windowExpired := now.Sub(record.FirstSeen) >= rl.config.WindowSize
		banExpired := record.BannedAt == nil || !now.Before(record.BannedAt.Add(rl.config.BanDuration))
		if windowExpired && banExpired {
			delete(rl.attempts, identifier)
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *MemoryRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GetClientIP extracts the client IP from the request. Forwarding headers are
// client-controlled, so they are read only when trustProxyHeaders is set.
func GetClientIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		// Behind a proxy the first forwarded address is the client
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}

		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
			return realIP
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
