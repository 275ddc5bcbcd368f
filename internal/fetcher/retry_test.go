package fetcher

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/headlines-scraper/internal/article"
)

type scriptedFetcher struct {
	errs  []error
	calls int
}

func (s *scriptedFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return []byte("ok"), nil
}

func newTestRetrying(next article.Fetcher, retries int) (*Retrying, *[]time.Duration) {
	r := WithRetry(next, RetryConfig{MaxRetries: retries, BaseDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond}, nil)
	var waits []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return r, &waits
}

func transient() error {
	return &article.NetworkError{URL: "u", StatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}
}

func TestRetryingDefaultIsSingleAttempt(t *testing.T) {
	t.Parallel()

	next := &scriptedFetcher{errs: []error{transient()}}
	r, waits := newTestRetrying(next, 0)

	_, err := r.Fetch(context.Background(), "u")
	var netErr *article.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, 1, next.calls)
	require.Empty(t, *waits)
}

func TestRetryingRecovers(t *testing.T) {
	t.Parallel()

	next := &scriptedFetcher{errs: []error{transient(), transient()}}
	r, waits := newTestRetrying(next, 3)

	body, err := r.Fetch(context.Background(), "u")
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
	require.Equal(t, 3, next.calls)
	require.Len(t, *waits, 2)
	for _, w := range *waits {
		require.LessOrEqual(t, w, 40*time.Millisecond)
		require.Greater(t, w, time.Duration(0))
	}
}

func TestRetryingGivesUpAfterBudget(t *testing.T) {
	t.Parallel()

	next := &scriptedFetcher{errs: []error{transient(), transient(), transient()}}
	r, _ := newTestRetrying(next, 2)

	_, err := r.Fetch(context.Background(), "u")
	require.Error(t, err)
	require.Equal(t, 3, next.calls)
}

func TestRetryingSkipsClientErrors(t *testing.T) {
	t.Parallel()

	notFound := &article.NetworkError{URL: "u", StatusCode: http.StatusNotFound, Err: errors.New("Not Found")}
	next := &scriptedFetcher{errs: []error{notFound}}
	r, _ := newTestRetrying(next, 5)

	_, err := r.Fetch(context.Background(), "u")
	require.ErrorIs(t, err, notFound)
	require.Equal(t, 1, next.calls)
}

func TestRetryingStopsOnCancel(t *testing.T) {
	t.Parallel()

	next := &scriptedFetcher{errs: []error{&article.NetworkError{URL: "u", Err: context.Canceled}}}
	r, _ := newTestRetrying(next, 5)

	_, err := r.Fetch(context.Background(), "u")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, next.calls)
}

func TestSleepCtxHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
	require.NoError(t, sleepCtx(context.Background(), time.Millisecond))
}
