// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	pubsubapi "cloud.google.com/go/pubsub"
	gcsapi "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/headlines-scraper/internal/api"
	"github.com/JakeFAU/headlines-scraper/internal/article"
	"github.com/JakeFAU/headlines-scraper/internal/clock/system"
	"github.com/JakeFAU/headlines-scraper/internal/config"
	"github.com/JakeFAU/headlines-scraper/internal/extract"
	"github.com/JakeFAU/headlines-scraper/internal/fetcher"
	collyfetcher "github.com/JakeFAU/headlines-scraper/internal/fetcher/colly"
	restyfetcher "github.com/JakeFAU/headlines-scraper/internal/fetcher/resty"
	"github.com/JakeFAU/headlines-scraper/internal/hash/sha256"
	"github.com/JakeFAU/headlines-scraper/internal/id/uuid"
	"github.com/JakeFAU/headlines-scraper/internal/normalize"
	"github.com/JakeFAU/headlines-scraper/internal/pipeline"
	pubmemory "github.com/JakeFAU/headlines-scraper/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/headlines-scraper/internal/publisher/pubsub"
	"github.com/JakeFAU/headlines-scraper/internal/storage/gcs"
	"github.com/JakeFAU/headlines-scraper/internal/storage/local"
	"github.com/JakeFAU/headlines-scraper/internal/storage/memory"
	"github.com/JakeFAU/headlines-scraper/internal/storage/postgres"
)

// Store is a repository that can report its own reachability.
type Store interface {
	article.Repository
	Ping(ctx context.Context) error
}

// App holds the shared, long-lived services: the article store, the pass
// pipeline and the optional snapshot and notification backends.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     Store
	pipeline  *pipeline.Pipeline
	publisher article.Publisher
	closers   []func() error
}

// New builds every service named by cfg. It fails fast if a configured backend
// cannot be initialized and releases whatever was already opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	ids := uuid.New()

	a.store, err = a.buildStore(ctx, ids)
	if err != nil {
		return nil, err
	}
	blobs, err := a.buildBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	a.publisher, err = a.buildPublisher(ctx)
	if err != nil {
		return nil, err
	}

	a.pipeline = pipeline.New(
		a.buildFetcher(),
		extract.New(extract.Config{
			ContainerSelector: cfg.Extract.ContainerSelector,
			HeadlineSelector:  cfg.Extract.HeadlineSelector,
			IntroSelector:     cfg.Extract.IntroSelector,
		}),
		normalize.New(cfg.Source.BaseURL),
		a.store,
		blobs,
		a.publisher,
		sha256.New(),
		system.New(),
		ids,
		pipeline.Config{
			SourceURL:      cfg.Source.URL,
			Workers:        cfg.Pipeline.Workers,
			ContentType:    cfg.Storage.ContentType,
			SnapshotPrefix: cfg.Storage.Prefix,
			Topic:          cfg.PubSub.TopicName,
		},
		logger,
	)

	logger.Info("application services initialized",
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("fetch_backend", cfg.HTTP.Backend),
		zap.String("snapshot_backend", cfg.Storage.Backend),
		zap.String("publish_backend", cfg.PubSub.Backend),
	)
	return a, nil
}

// Store returns the article store.
func (a *App) Store() Store {
	return a.store
}

// Pipeline returns the pass orchestrator.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Publisher returns the pass summary publisher, or nil when publishing is off.
func (a *App) Publisher() article.Publisher {
	return a.publisher
}

// Handler builds the HTTP API on top of the app's services.
func (a *App) Handler() http.Handler {
	return api.NewServer(a.store, a.pipeline, a.store, a.cfg, a.logger).Handler()
}

// Close releases every backend in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *App) buildStore(ctx context.Context, ids article.IDGenerator) (Store, error) {
	switch a.cfg.DB.Driver {
	case "memory":
		a.logger.Info("using in-memory article store; records are lost on restart")
		return memory.NewArticleStore(ids), nil
	case "postgres":
		store, err := postgres.NewArticleStore(ctx, postgres.Config{
			DSN:             a.cfg.DB.DSN,
			Table:           a.cfg.DB.Table,
			MaxConns:        a.cfg.DB.MaxConns,
			MinConns:        a.cfg.DB.MinConns,
			MaxConnLifetime: 30 * time.Minute,
		}, ids)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		a.closers = append(a.closers, func() error { store.Close(); return nil })
		if a.cfg.DB.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				return nil, fmt.Errorf("ensure schema: %w", err)
			}
		}
		a.logger.Info("connected to postgres", zap.String("table", a.cfg.DB.Table))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown db driver: %s", a.cfg.DB.Driver)
	}
}

func (a *App) buildFetcher() article.Fetcher {
	var f article.Fetcher
	switch a.cfg.HTTP.Backend {
	case "resty":
		f = restyfetcher.New(restyfetcher.Config{
			UserAgent: a.cfg.HTTP.UserAgent,
			Timeout:   a.cfg.FetchTimeout(),
		})
	default:
		f = collyfetcher.New(collyfetcher.Config{
			UserAgent:     a.cfg.HTTP.UserAgent,
			RespectRobots: a.cfg.HTTP.RespectRobots,
			Timeout:       a.cfg.FetchTimeout(),
		})
	}
	if a.cfg.HTTP.RatePerSecond > 0 {
		f = fetcher.WithRateLimit(f, fetcher.RateConfig{
			RPS:   a.cfg.HTTP.RatePerSecond,
			Burst: a.cfg.HTTP.RateBurst,
		})
	}
	if a.cfg.HTTP.MaxRetries == 0 {
		return f
	}
	return fetcher.WithRetry(f, fetcher.RetryConfig{
		MaxRetries: a.cfg.HTTP.MaxRetries,
		BaseDelay:  time.Duration(a.cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		MaxDelay:   time.Duration(a.cfg.HTTP.BackoffMaxMs) * time.Millisecond,
	}, a.logger)
}

func (a *App) buildBlobStore(ctx context.Context) (article.BlobStore, error) {
	switch a.cfg.Storage.Backend {
	case "none", "":
		return nil, nil
	case "memory":
		return memory.NewBlobStore(), nil
	case "local":
		store, err := local.New(local.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local snapshot store: %w", err)
		}
		return store, nil
	case "gcs":
		client, err := gcsapi.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		store, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs snapshot store: %w", err)
		}
		a.logger.Info("archiving snapshots to gcs", zap.String("bucket", a.cfg.Storage.GCSBucket))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", a.cfg.Storage.Backend)
	}
}

func (a *App) buildPublisher(ctx context.Context) (article.Publisher, error) {
	switch a.cfg.PubSub.Backend {
	case "none", "":
		return nil, nil
	case "memory":
		a.logger.Info("logging pass results in memory", zap.String("topic", a.cfg.PubSub.TopicName))
		return pubmemory.New(pubmemory.DefaultCapacity), nil
	case "pubsub":
		client, err := pubsubapi.NewClient(ctx, a.cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create pubsub client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.logger.Info("publishing pass results", zap.String("topic", a.cfg.PubSub.TopicName))
		return pubsubpublisher.New(client), nil
	default:
		return nil, fmt.Errorf("unknown pubsub backend: %s", a.cfg.PubSub.Backend)
	}
}
