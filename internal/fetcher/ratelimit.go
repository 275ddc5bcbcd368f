package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/headlines-scraper/internal/article"
)

// RateConfig sets the per-host token bucket. RPS <= 0 disables limiting.
type RateConfig struct {
	RPS   float64
	Burst int
}

// RateLimited wraps a Fetcher with a token bucket per host.
type RateLimited struct {
	next     article.Fetcher
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// WithRateLimit decorates next so repeated passes stay polite to the source host.
func WithRateLimit(next article.Fetcher, cfg RateConfig) *RateLimited {
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		next:     next,
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Fetch waits for a token for the URL's host, then delegates.
func (r *RateLimited) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := r.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, &article.NetworkError{URL: rawURL, Err: fmt.Errorf("rate limit wait: %w", err)}
	}
	return r.next.Fetch(ctx, rawURL)
}

func (r *RateLimited) limiterFor(rawURL string) *rate.Limiter {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[host]
	if !ok {
		l = rate.NewLimiter(r.limit, r.burst)
		r.limiters[host] = l
	}
	return l
}
