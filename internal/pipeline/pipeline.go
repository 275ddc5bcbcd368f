// Package pipeline runs one fetch-parse-persist pass over the listing page.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/headlines-scraper/internal/article"
	"github.com/JakeFAU/headlines-scraper/internal/metrics"
)

// State is the lifecycle stage of a pass.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateExtracting State = "extracting"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Candidate outcomes.
const (
	OutcomeCreated = "created"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Extractor turns markup into candidates.
type Extractor interface {
	Extract(markup []byte) (iter.Seq[article.Candidate], error)
}

// Normalizer validates a candidate and resolves its link.
type Normalizer interface {
	Normalize(c article.Candidate) (article.Draft, error)
}

// Config controls Pipeline behavior.
type Config struct {
	SourceURL      string
	Workers        int
	ContentType    string
	SnapshotPrefix string
	Topic          string
}

// Result summarizes a single pass.
type Result struct {
	PassID      string    `json:"pass_id"`
	State       State     `json:"state"`
	SourceURL   string    `json:"source_url"`
	Candidates  int       `json:"candidates"`
	Created     int       `json:"created"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	SnapshotURI string    `json:"snapshot_uri,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Pipeline wires the fetcher, extractor, normalizer and repository together.
type Pipeline struct {
	fetcher    article.Fetcher
	extractor  Extractor
	normalizer Normalizer
	repo       article.Repository
	blobStore  article.BlobStore
	publisher  article.Publisher
	hasher     article.Hasher
	clock      article.Clock
	ids        article.IDGenerator
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Pipeline. blobStore, publisher and hasher may be nil.
func New(
	fetcher article.Fetcher,
	extractor Extractor,
	normalizer Normalizer,
	repo article.Repository,
	blobStore article.BlobStore,
	publisher article.Publisher,
	hasher article.Hasher,
	clock article.Clock,
	ids article.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	metrics.Init()
	return &Pipeline{
		fetcher:    fetcher,
		extractor:  extractor,
		normalizer: normalizer,
		repo:       repo,
		blobStore:  blobStore,
		publisher:  publisher,
		hasher:     hasher,
		clock:      clock,
		ids:        ids,
		cfg:        cfg,
		logger:     logger.Named("pipeline"),
	}
}

// Run executes one pass. The returned Result is always populated; the error is
// non-nil only when the pass ends in StateFailed.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{
		State:     StateIdle,
		SourceURL: p.cfg.SourceURL,
		StartedAt: p.clock.Now(),
	}
	passID, err := p.ids.NewID()
	if err != nil {
		return p.fail(ctx, res, fmt.Errorf("generate pass id: %w", err)), err
	}
	res.PassID = passID
	log := p.logger.With(zap.String("pass_id", passID), zap.String("url", p.cfg.SourceURL))

	res.State = StateFetching
	log.Debug("fetching source")
	start := time.Now()
	body, err := p.fetcher.Fetch(ctx, p.cfg.SourceURL)
	metrics.ObserveFetch(time.Since(start))
	if err != nil {
		log.Error("fetch failed", zap.Error(err))
		return p.fail(ctx, res, err), err
	}

	res.SnapshotURI = p.snapshot(ctx, log, body)

	res.State = StateExtracting
	candidates, err := p.extractor.Extract(body)
	if err != nil {
		err = fmt.Errorf("extract candidates: %w", err)
		log.Error("extract failed", zap.Error(err))
		return p.fail(ctx, res, err), err
	}

	res.State = StatePersisting
	var created, skipped, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for c := range candidates {
		res.Candidates++
		g.Go(func() error {
			switch outcome := p.persist(ctx, log, c); outcome {
			case OutcomeCreated:
				created.Add(1)
			case OutcomeSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res.Created = int(created.Load())
	res.Skipped = int(skipped.Load())
	res.Failed = int(failed.Load())
	res.State = StateDone
	res.FinishedAt = p.clock.Now()
	metrics.ObservePass(string(StateDone))
	log.Info("pass finished",
		zap.Int("candidates", res.Candidates),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	p.publish(ctx, log, res)
	return res, nil
}

func (p *Pipeline) persist(ctx context.Context, log *zap.Logger, c article.Candidate) string {
	outcome := p.classify(ctx, log, c)
	metrics.ObserveCandidate(outcome)
	return outcome
}

func (p *Pipeline) classify(ctx context.Context, log *zap.Logger, c article.Candidate) string {
	draft, err := p.normalizer.Normalize(c)
	if err != nil {
		var verr *article.ValidationError
		if errors.As(err, &verr) {
			log.Debug("candidate rejected", zap.String("link", c.LinkSuffix), zap.Error(err))
			return OutcomeSkipped
		}
		log.Warn("normalize failed", zap.String("link", c.LinkSuffix), zap.Error(err))
		return OutcomeFailed
	}

	if _, err := p.repo.Create(ctx, draft); err != nil {
		if errors.Is(err, article.ErrDuplicateLink) {
			log.Debug("duplicate link", zap.String("link", draft.Link))
			return OutcomeSkipped
		}
		log.Warn("create article failed", zap.String("link", draft.Link), zap.Error(err))
		return OutcomeFailed
	}
	return OutcomeCreated
}

func (p *Pipeline) snapshot(ctx context.Context, log *zap.Logger, body []byte) string {
	if p.blobStore == nil || p.hasher == nil {
		return ""
	}
	hash, err := p.hasher.Hash(body)
	if err != nil {
		log.Warn("hash snapshot failed", zap.Error(err))
		return ""
	}
	uri, err := p.blobStore.PutObject(ctx, p.snapshotPath(hash), p.cfg.ContentType, bytes.NewReader(body))
	if err != nil {
		log.Warn("store snapshot failed", zap.Error(err))
		return ""
	}
	log.Debug("snapshot stored", zap.String("uri", uri))
	return uri
}

func (p *Pipeline) snapshotPath(hash string) string {
	prefix := strings.Trim(p.cfg.SnapshotPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s.html", hash)
	}
	return fmt.Sprintf("%s/%s.html", prefix, hash)
}

func (p *Pipeline) publish(ctx context.Context, log *zap.Logger, res Result) {
	if p.cfg.Topic == "" || p.publisher == nil {
		return
	}
	id, err := p.publisher.Publish(ctx, p.cfg.Topic, res)
	if err != nil {
		log.Warn("publish pass result failed", zap.String("topic", p.cfg.Topic), zap.Error(err))
		return
	}
	log.Debug("pass result published", zap.String("topic", p.cfg.Topic), zap.String("message_id", id))
}

func (p *Pipeline) fail(ctx context.Context, res Result, err error) Result {
	res.State = StateFailed
	res.Error = err.Error()
	res.FinishedAt = p.clock.Now()
	metrics.ObservePass(string(StateFailed))
	p.publish(ctx, p.logger, res)
	return res
}
