package httpx

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/egabank/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines client-side request pacing.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window.
	// Zero disables limiting.
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Enabled reports whether the config limits anything.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerWindow > 0 && c.Window > 0
}

// DefaultClientLimit keeps an interactive client from hammering the bank API
// when a view reloads in a tight loop.
var DefaultClientLimit = RateLimitConfig{
	RequestsPerWindow: 20,
	Window:            time.Second,
	Burst:             10,
}

// KeyExtractor picks the bucket an outgoing request is charged to.
type KeyExtractor func(*http.Request) string

// HostKeyExtractor charges requests per destination host.
func HostKeyExtractor(r *http.Request) string {
	return r.URL.Host
}

// rateLimiter manages one token bucket per key.
type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return actual.(*rate.Limiter)
}

// RateLimit returns a transport middleware that waits for a token before
// each request leaves. Waiting honours the request context, a cancelled
// context fails the request instead of queueing it.
func RateLimit(config RateLimitConfig, keyExtractor KeyExtractor) TransportMiddleware {
	if !config.Enabled() {
		return func(next http.RoundTripper) http.RoundTripper { return next }
	}

	burst := max(config.Burst, 1)
	rl := &rateLimiter{
		rate:  rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst: burst,
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			ctx := r.Context()
			limiter := rl.getLimiter(keyExtractor(r))

			if !limiter.Allow() {
				slogx.FromContext(ctx).Debug("rate limit: delaying request", "path", r.URL.Path)
				if err := limiter.Wait(ctx); err != nil {
					return nil, fmt.Errorf("rate limit: %w", err)
				}
			}
			return next.RoundTrip(r)
		})
	}
}
