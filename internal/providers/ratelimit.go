package providers

import (
	"context"
	"sync"
	"time"
)

// DefaultRequestsPerMinute applies when a provider has no rate_limit configured.
const DefaultRequestsPerMinute = 150

// RateLimiter is a token bucket refilled continuously at requestsPerMinute.
// A 429 from the provider drains the bucket and pauses callers until the
// provider's Retry-After has passed.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	tokens            float64
	lastUpdate        time.Time
	blockedUntil      time.Time

	// Statistics
	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit"`
	Utilization     float64       `json:"utilization"`
	TimeUntilToken  time.Duration `json:"time_until_token"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter creates a limiter starting with a full bucket.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		tokens:            float64(requestsPerMinute),
		lastUpdate:        time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()

		wait := time.Until(r.blockedUntil)
		if wait <= 0 {
			if r.tokens >= 1.0 {
				r.tokens--
				r.totalConsumed++
				r.mu.Unlock()
				return nil
			}
			wait = r.timeUntilToken()
		}
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.mu.Lock()
			r.totalWaited += wait
			r.mu.Unlock()
		}
	}
}

// TryConsume takes a token without blocking.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	if time.Now().Before(r.blockedUntil) || r.tokens < 1.0 {
		return false
	}
	r.tokens--
	r.totalConsumed++
	return true
}

// Record429 notes a rate-limit response. With a positive retryAfter the
// bucket is drained and Wait blocks until retryAfter has elapsed.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.last429Time = now
	if retryAfter > 0 {
		r.tokens = 0
		if until := now.Add(retryAfter); until.After(r.blockedUntil) {
			r.blockedUntil = until
		}
	}
}

// RequestsPerMinute returns the configured rate.
func (r *RateLimiter) RequestsPerMinute() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requestsPerMinute
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	utilization := 1.0 - (r.tokens / float64(r.requestsPerMinute))
	if utilization < 0 {
		utilization = 0
	}

	timeUntilToken := time.Until(r.blockedUntil)
	if timeUntilToken <= 0 {
		timeUntilToken = r.timeUntilToken()
	}

	return RateLimiterStatus{
		TokensAvailable: int(r.tokens),
		TokensLimit:     r.requestsPerMinute,
		Utilization:     utilization,
		TimeUntilToken:  timeUntilToken,
		TotalConsumed:   r.totalConsumed,
		TotalWaited:     r.totalWaited,
		Last429Time:     r.last429Time,
	}
}

// timeUntilToken must be called with the lock held.
func (r *RateLimiter) timeUntilToken() time.Duration {
	if r.tokens >= 1.0 {
		return 0
	}
	perSecond := float64(r.requestsPerMinute) / 60.0
	return time.Duration((1.0 - r.tokens) / perSecond * float64(time.Second))
}

// refill adds tokens for the elapsed time. Must be called with the lock held.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	r.tokens += elapsed * float64(r.requestsPerMinute) / 60.0
	if r.tokens > float64(r.requestsPerMinute) {
		r.tokens = float64(r.requestsPerMinute)
	}
}
