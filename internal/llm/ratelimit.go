package llm

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures rate limiting for providers shared across runs.
type RateLimitConfig struct {
	// RequestsPerMinute limits the number of API calls per minute (0 = unlimited)
	RequestsPerMinute int
	// TokensPerMinute limits total tokens per minute (0 = unlimited)
	TokensPerMinute int
	// BurstSize allows temporary burst above the rate limit
	BurstSize int
}

// DefaultRateLimitConfig returns sensible defaults for most providers.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerMinute: 25,    // conservative for free-tier cloud APIs (Groq etc.)
		TokensPerMinute:   25000, // Groq free tier: 6K-30K TPM depending on model
		BurstSize:         3,
	}
}

// RateLimitProvider wraps a provider with request and token budgets.
// Token usage is only known after a call, so it is charged retroactively and
// delays the next request instead of the current one.
type RateLimitProvider struct {
	inner    Provider
	config   *RateLimitConfig
	requests *rate.Limiter
	tokens   *rate.Limiter

	mu               sync.Mutex
	requestsInWindow int
	tokensInWindow   int
	windowStart      time.Time
}

// NewRateLimitProvider creates a rate-limited provider wrapper.
func NewRateLimitProvider(inner Provider, config *RateLimitConfig) *RateLimitProvider {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	r := &RateLimitProvider{
		inner:       inner,
		config:      config,
		windowStart: time.Now(),
	}
	if config.RequestsPerMinute > 0 {
		burst := config.BurstSize
		if burst <= 0 {
			burst = max(config.RequestsPerMinute/6, 1) // ~10 second burst
		}
		r.requests = rate.NewLimiter(perMinute(config.RequestsPerMinute), burst)
	}
	if config.TokensPerMinute > 0 {
		r.tokens = rate.NewLimiter(perMinute(config.TokensPerMinute), config.TokensPerMinute)
	}
	return r
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}

// Name returns the underlying provider name.
func (r *RateLimitProvider) Name() string {
	return r.inner.Name()
}

// Complete waits for capacity and delegates to the inner provider.
func (r *RateLimitProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	if r.requests != nil {
		if err := r.requests.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if r.tokens != nil {
		if err := r.tokens.Wait(ctx); err != nil {
			return nil, err
		}
	}
	r.recordRequest()

	resp, err := r.inner.Complete(ctx, prompt, opts)
	if err == nil && resp != nil {
		r.trackTokenUsage(resp.InputTokens + resp.OutputTokens)
	}
	return resp, err
}

func (r *RateLimitProvider) recordRequest() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetWindowLocked()
	r.requestsInWindow++
}

// trackTokenUsage charges the token budget; the token consumed by Wait
// counts toward the total.
func (r *RateLimitProvider) trackTokenUsage(tokens int) {
	r.mu.Lock()
	r.resetWindowLocked()
	r.tokensInWindow += tokens
	r.mu.Unlock()

	if r.tokens == nil || tokens <= 1 {
		return
	}
	charge := min(tokens-1, r.tokens.Burst())
	r.tokens.ReserveN(time.Now(), charge)
}

func (r *RateLimitProvider) resetWindowLocked() {
	if now := time.Now(); now.Sub(r.windowStart) >= time.Minute {
		r.windowStart = now
		r.requestsInWindow = 0
		r.tokensInWindow = 0
	}
}

// Stats returns current rate limiting statistics.
func (r *RateLimitProvider) Stats() RateLimitStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := RateLimitStats{
		RequestsInWindow: r.requestsInWindow,
		TokensInWindow:   r.tokensInWindow,
		WindowStart:      r.windowStart,
		RequestsLimited:  r.requests != nil,
	}
	if r.requests != nil {
		stats.RemainingRequests = max(int(r.requests.Tokens()), 0)
	}
	if r.tokens != nil {
		stats.RemainingTokens = max(int(r.tokens.Tokens()), 0)
	}
	return stats
}

// RateLimitStats contains rate limiting statistics. RemainingRequests is
// only meaningful when RequestsLimited is set.
type RateLimitStats struct {
	RequestsLimited   bool
	RequestsInWindow  int
	TokensInWindow    int
	RemainingRequests int
	RemainingTokens   int
	WindowStart       time.Time
}

// WithRateLimit wraps a provider with rate limiting.
func WithRateLimit(p Provider, config *RateLimitConfig) Provider {
	if p == nil {
		return nil
	}
	return NewRateLimitProvider(p, config)
}
