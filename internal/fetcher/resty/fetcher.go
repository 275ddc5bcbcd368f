// Package restyfetcher implements article.Fetcher with a resty HTTP client.
package restyfetcher

import (
	"context"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/JakeFAU/headlines-scraper/internal/article"
)

// Config controls the client.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher performs plain GETs through resty.
type Fetcher struct {
	client *resty.Client
}

// New builds a Fetcher with its own resty client.
func New(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().SetTimeout(timeout)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &Fetcher{client: client}
}

// Fetch returns the response body, or *article.NetworkError for transport
// failures and non-2xx statuses.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &article.NetworkError{URL: url, Err: err}
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, &article.NetworkError{URL: url, StatusCode: code, Err: errors.New(resp.Status())}
	}
	return resp.Body(), nil
}
