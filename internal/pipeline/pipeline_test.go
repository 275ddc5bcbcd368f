package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/headlines-scraper/internal/article"
	"github.com/JakeFAU/headlines-scraper/internal/extract"
	"github.com/JakeFAU/headlines-scraper/internal/normalize"
	pubmemory "github.com/JakeFAU/headlines-scraper/internal/publisher/memory"
	"github.com/JakeFAU/headlines-scraper/internal/storage/memory"
)

const (
	sourceURL = "https://news.example.com/daily/news"
	baseURL   = "https://news.example.com"
)

type fakeFetcher struct {
	body  []byte
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, &article.NetworkError{URL: url, Err: f.err}
	}
	return f.body, nil
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakeHasher struct{ hash string }

func (h fakeHasher) Hash([]byte) (string, error) { return h.hash, nil }

type failingBlobStore struct{}

func (failingBlobStore) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("bucket unavailable")
}

// flakyRepo fails Create for titles containing a marker.
type flakyRepo struct {
	article.Repository
	marker string
}

func (r flakyRepo) Create(ctx context.Context, d article.Draft) (article.Article, error) {
	if strings.Contains(d.Title, r.marker) {
		return article.Article{}, &article.StoreError{Op: "create", Err: errors.New("connection reset")}
	}
	return r.Repository.Create(ctx, d)
}

// peakRepo records the highest number of Create calls in flight at once.
type peakRepo struct {
	article.Repository

	mu       sync.Mutex
	inFlight int
	peak     int
}

func (r *peakRepo) Create(ctx context.Context, d article.Draft) (article.Article, error) {
	r.mu.Lock()
	r.inFlight++
	r.peak = max(r.peak, r.inFlight)
	r.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()
	return r.Repository.Create(ctx, d)
}

type brokenExtractor struct{}

func (brokenExtractor) Extract([]byte) (iter.Seq[article.Candidate], error) {
	return nil, errors.New("unparseable")
}

func listing(entries ...string) []byte {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, e := range entries {
		b.WriteString(e)
	}
	b.WriteString("</body></html>")
	return []byte(b.String())
}

func entry(title, href, intro string) string {
	return fmt.Sprintf(`<div class="blog-text"><a class="article-headline-link-blog" href="%s">%s</a>`+
		`<p class="intro-blog">%s</p></div>`, href, title, intro)
}

func newPipeline(
	fetcher article.Fetcher,
	repo article.Repository,
	blobs article.BlobStore,
	pub article.Publisher,
	cfg Config,
) *Pipeline {
	cfg.SourceURL = sourceURL
	return New(
		fetcher,
		extract.New(extract.Config{}),
		normalize.New(baseURL),
		repo,
		blobs,
		pub,
		fakeHasher{hash: "abc123"},
		fakeClock{now: time.Unix(100, 0).UTC()},
		&seqIDs{},
		cfg,
		zap.NewNop(),
	)
}

func TestRunPersistsSingleEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewArticleStore(&seqIDs{})
	fetcher := &fakeFetcher{body: listing(entry("Headline", "/x123", "Intro text"))}

	res, err := newPipeline(fetcher, store, nil, nil, Config{}).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, StateDone, res.State)
	require.Equal(t, 1, res.Candidates)
	require.Equal(t, 1, res.Created)
	require.Zero(t, res.Skipped)
	require.Zero(t, res.Failed)

	all, err := store.FindAll(ctx, article.FilterAll)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Headline", all[0].Title)
	require.Equal(t, "Intro text", all[0].Description)
	require.Equal(t, baseURL+"/x123", all[0].Link)
	require.False(t, all[0].Saved)
}

func TestRunFetchFailurePersistsNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewArticleStore(&seqIDs{})
	pub := pubmemory.New(0)
	fetcher := &fakeFetcher{err: errors.New("dial tcp: connection refused")}

	res, err := newPipeline(fetcher, store, nil, pub, Config{Topic: "passes"}).Run(ctx)
	require.Error(t, err)
	var nerr *article.NetworkError
	require.ErrorAs(t, err, &nerr)
	require.Equal(t, StateFailed, res.State)
	require.NotEmpty(t, res.Error)
	require.Zero(t, res.Created)

	all, err := store.FindAll(ctx, article.FilterAll)
	require.NoError(t, err)
	require.Empty(t, all)

	msgs := pub.Messages("passes")
	require.Len(t, msgs, 1)
	var published Result
	require.NoError(t, msgs[0].Decode(&published))
	require.Equal(t, StateFailed, published.State)
}

func TestRunZeroCandidates(t *testing.T) {
	t.Parallel()

	store := memory.NewArticleStore(&seqIDs{})
	fetcher := &fakeFetcher{body: listing("<p>nothing today</p>")}

	res, err := newPipeline(fetcher, store, nil, nil, Config{}).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateDone, res.State)
	require.Zero(t, res.Candidates)
	require.Zero(t, res.Created+res.Skipped+res.Failed)
}

func TestRunIsolatesCandidateFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewArticleStore(&seqIDs{})
	repo := flakyRepo{Repository: store, marker: "BROKEN"}
	fetcher := &fakeFetcher{body: listing(
		entry("First", "/a", "one"),
		entry("   ", "/blank", "no title"),
		entry("BROKEN story", "/b", "store fails"),
		entry("Second", "/c", "two"),
		`<div class="blog-text"><p class="intro-blog">no link at all</p></div>`,
	)}

	res, err := newPipeline(fetcher, repo, nil, nil, Config{Workers: 3}).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, StateDone, res.State)
	require.Equal(t, 5, res.Candidates)
	require.Equal(t, 2, res.Created)
	require.Equal(t, 2, res.Skipped)
	require.Equal(t, 1, res.Failed)

	all, err := store.FindAll(ctx, article.FilterAll)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRunSkipsDuplicatesOnRescrape(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewArticleStore(&seqIDs{})
	fetcher := &fakeFetcher{body: listing(
		entry("One", "/1", ""),
		entry("Two", "/2", ""),
		entry("Three", "/3", ""),
	)}
	p := newPipeline(fetcher, store, nil, nil, Config{Workers: 2})

	first, err := p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, first.Created)

	second, err := p.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, second.Created)
	require.Equal(t, 3, second.Skipped)
	require.NotEqual(t, first.PassID, second.PassID)

	all, err := store.FindAll(ctx, article.FilterAll)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, 2, fetcher.calls)
}

func TestRunArchivesSnapshotAndPublishes(t *testing.T) {
	t.Parallel()

	blobs := memory.NewBlobStore()
	pub := pubmemory.New(0)
	fetcher := &fakeFetcher{body: listing(entry("Headline", "/x", ""))}
	p := newPipeline(fetcher, memory.NewArticleStore(&seqIDs{}), blobs, pub, Config{
		SnapshotPrefix: "/snapshots/",
		Topic:          "passes",
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "memory://snapshots/abc123.html", res.SnapshotURI)

	stored, ok := blobs.Object("snapshots/abc123.html")
	require.True(t, ok)
	require.Equal(t, fetcher.body, stored)

	msgs := pub.Messages("passes")
	require.Len(t, msgs, 1)
	require.Equal(t, "passes", msgs[0].Topic)
	var published Result
	require.NoError(t, msgs[0].Decode(&published))
	require.Equal(t, res.PassID, published.PassID)
	require.Equal(t, 1, published.Created)
}

func TestRunSnapshotFailureDoesNotFailPass(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{body: listing(entry("Headline", "/x", ""))}
	p := newPipeline(fetcher, memory.NewArticleStore(&seqIDs{}), failingBlobStore{}, nil, Config{})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateDone, res.State)
	require.Empty(t, res.SnapshotURI)
	require.Equal(t, 1, res.Created)
}

func TestRunExtractFailure(t *testing.T) {
	t.Parallel()

	p := New(
		&fakeFetcher{body: []byte("<html></html>")},
		brokenExtractor{},
		normalize.New(baseURL),
		memory.NewArticleStore(&seqIDs{}),
		nil, nil, nil,
		fakeClock{now: time.Unix(0, 0)},
		&seqIDs{},
		Config{SourceURL: sourceURL},
		nil,
	)

	res, err := p.Run(context.Background())
	require.ErrorContains(t, err, "unparseable")
	require.Equal(t, StateFailed, res.State)
}

func TestRunBoundsConcurrentCreates(t *testing.T) {
	t.Parallel()

	entries := make([]string, 0, 10)
	for i := range 10 {
		entries = append(entries, entry(fmt.Sprintf("Story %d", i), fmt.Sprintf("/s%d", i), ""))
	}
	repo := &peakRepo{Repository: memory.NewArticleStore(&seqIDs{})}
	p := newPipeline(&fakeFetcher{body: listing(entries...)}, repo, nil, nil, Config{Workers: 2})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, res.Created)
	require.GreaterOrEqual(t, repo.peak, 1)
	require.LessOrEqual(t, repo.peak, 2)
}
