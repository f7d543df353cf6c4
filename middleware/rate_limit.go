package middleware

import (
	"net/http"
	"sync"
	"time"

	"case_registry_go/metrics"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig defines the configuration for rate limiting
type RateLimitConfig struct {
	// Name labels the limiter in metrics
	Name string
	// Requests is the maximum number of requests allowed within the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
	// KeyFunc is a function that returns a unique key for rate limiting (defaults to IP)
	KeyFunc func(c echo.Context) string
	// Message is the error message returned when rate limit is exceeded
	Message string
}

// rateLimitEntry tracks request count and window expiration
type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// RateLimiter is a fixed-window limiter keyed per client
type RateLimiter struct {
	config RateLimitConfig
	store  map[string]*rateLimitEntry
	mu     sync.Mutex
	done   chan struct{}
	once   sync.Once
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string {
			return c.RealIP()
		}
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}
	if config.Name == "" {
		config.Name = "default"
	}

	rl := &RateLimiter{
		config: config,
		store:  make(map[string]*rateLimitEntry),
		done:   make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// NewPublicIntakeRateLimiter limits anonymous case submissions to limit per minute per IP
func NewPublicIntakeRateLimiter(limit int) *RateLimiter {
	return newPerMinuteRateLimiter("public_intake", limit, 10, "Too many submissions. Please wait before trying again.")
}

// NewPublicFilesRateLimiter limits complainant uploads and certificate requests per minute per IP
func NewPublicFilesRateLimiter(limit int) *RateLimiter {
	return newPerMinuteRateLimiter("public_files", limit, 10, "Too many uploads. Please wait before trying again.")
}

// NewPublicLookupRateLimiter limits case lookups by code per minute per IP
func NewPublicLookupRateLimiter(limit int) *RateLimiter {
	return newPerMinuteRateLimiter("public_lookup", limit, 60, "")
}

func newPerMinuteRateLimiter(name string, limit, fallback int, message string) *RateLimiter {
	if limit <= 0 {
		limit = fallback
	}
	return NewRateLimiter(RateLimitConfig{
		Name:     name,
		Requests: limit,
		Window:   1 * time.Minute,
		Message:  message,
	})
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.allow(rl.config.KeyFunc(c), time.Now()) {
				metrics.RateLimitedRequests.WithLabelValues(rl.config.Name).Inc()
				return echo.NewHTTPError(http.StatusTooManyRequests, map[string]string{"error": rl.config.Message})
			}
			return next(c)
		}
	}
}

func (rl *RateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.store[key]
	if !exists || now.After(entry.expiresAt) {
		rl.store[key] = &rateLimitEntry{count: 1, expiresAt: now.Add(rl.config.Window)}
		return true
	}
	if entry.count >= rl.config.Requests {
		return false
	}
	entry.count++
	return true
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

// cleanup removes expired entries every minute
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.removeExpired(time.Now())
		}
	}
}

func (rl *RateLimiter) removeExpired(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, entry := range rl.store {
		if now.After(entry.expiresAt) {
			delete(rl.store, key)
		}
	}
}
