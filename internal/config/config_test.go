package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Source.URL != "https://www.austinchronicle.com/daily/news" {
		t.Fatalf("unexpected source url %q", cfg.Source.URL)
	}
	if cfg.DB.Driver != "memory" || cfg.Storage.Backend != "none" {
		t.Fatalf("expected memory db and no snapshot storage, got %q/%q", cfg.DB.Driver, cfg.Storage.Backend)
	}
	if cfg.PubSub.Backend != "none" {
		t.Fatalf("expected publishing off by default, got %q", cfg.PubSub.Backend)
	}
	if cfg.HTTP.MaxRetries != 0 {
		t.Fatalf("expected single fetch attempt by default, got %d retries", cfg.HTTP.MaxRetries)
	}
	if cfg.Extract.HeadlineSelector != "a.article-headline-link-blog, a" {
		t.Fatalf("unexpected headline selector %q", cfg.Extract.HeadlineSelector)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 90
source:
  url: https://news.example.com/daily
  base_url: https://news.example.com
extract:
  container_selector: article.story
http:
  backend: resty
  user_agent: real-agent
  timeout_seconds: 45
  max_retries: 4
  backoff_initial_ms: 100
  backoff_max_ms: 500
pipeline:
  workers: 8
db:
  driver: postgres
  dsn: postgres://localhost/headlines
  table: headlines
storage:
  backend: gcs
  gcs_bucket: bucket
  prefix: logs
pubsub:
  backend: pubsub
  project_id: demo
  topic_name: passes
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.HTTP.Backend != "resty" || cfg.HTTP.MaxRetries != 4 {
		t.Fatalf("expected http overrides to apply: %+v", cfg.HTTP)
	}
	if cfg.Extract.ContainerSelector != "article.story" || cfg.Extract.IntroSelector != ".intro-blog" {
		t.Fatalf("expected selector override merged with defaults: %+v", cfg.Extract)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.Table != "headlines" {
		t.Fatalf("expected db overrides to apply: %+v", cfg.DB)
	}
	if cfg.Pipeline.Workers != 8 || cfg.Logging.Development {
		t.Fatalf("expected pipeline and logging overrides to apply")
	}
	if cfg.PubSub.Backend != "pubsub" || cfg.PubSub.TopicName != "passes" {
		t.Fatalf("expected pubsub overrides to apply: %+v", cfg.PubSub)
	}
	if got := cfg.FetchTimeout(); got != 45*time.Second {
		t.Fatalf("expected fetch timeout 45s, got %v", got)
	}
	if got := cfg.RequestTimeout(); got != 90*time.Second {
		t.Fatalf("expected request timeout 90s, got %v", got)
	}
}

func TestLoadEnvAliases(t *testing.T) {
	t.Setenv("PORT", "4242")
	t.Setenv("DATABASE_URL", "postgres://db/headlines")
	t.Setenv("HEADLINES_DB_DRIVER", "postgres")
	t.Setenv("HEADLINES_PIPELINE_WORKERS", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 4242 {
		t.Fatalf("expected PORT alias to apply, got %d", cfg.Server.Port)
	}
	if cfg.DB.DSN != "postgres://db/headlines" || cfg.DB.Driver != "postgres" {
		t.Fatalf("expected DATABASE_URL alias to apply: %+v", cfg.DB)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Fatalf("expected prefixed env to apply, got %d", cfg.Pipeline.Workers)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("expected read config error, got %v", err)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:   ServerConfig{Port: 8080},
		Source:   SourceConfig{URL: "https://example.com/news", BaseURL: "https://example.com/news"},
		HTTP:     HTTPConfig{Backend: "colly", TimeoutSeconds: 10},
		Pipeline: PipelineConfig{Workers: 1},
		DB:       DBConfig{Driver: "memory"},
		Storage:  StorageConfig{Backend: "none"},
		PubSub:   PubSubConfig{Backend: "none"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "relative source", mutate: func(c *Config) { c.Source.URL = "/daily/news" }, want: "source.url"},
		{name: "ftp base", mutate: func(c *Config) { c.Source.BaseURL = "ftp://example.com" }, want: "source.base_url"},
		{name: "invalid timeout", mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, want: "http.timeout_seconds"},
		{name: "negative retries", mutate: func(c *Config) { c.HTTP.MaxRetries = -1 }, want: "http.max_retries"},
		{name: "unknown backend", mutate: func(c *Config) { c.HTTP.Backend = "curl" }, want: "http.backend"},
		{name: "no workers", mutate: func(c *Config) { c.Pipeline.Workers = 0 }, want: "pipeline.workers"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.DB.Driver = "postgres" }, want: "db.dsn"},
		{name: "unknown driver", mutate: func(c *Config) { c.DB.Driver = "mongo" }, want: "db.driver"},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Storage.Backend = "gcs" }, want: "storage.gcs_bucket"},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Backend = "s3" }, want: "storage.backend"},
		{name: "unknown publisher", mutate: func(c *Config) { c.PubSub.Backend = "kafka" }, want: "pubsub.backend"},
		{name: "memory without topic", mutate: func(c *Config) { c.PubSub.Backend = "memory" }, want: "pubsub.topic_name"},
		{
			name: "pubsub without project",
			mutate: func(c *Config) {
				c.PubSub.Backend = "pubsub"
				c.PubSub.TopicName = "passes"
			},
			want: "pubsub.project_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
