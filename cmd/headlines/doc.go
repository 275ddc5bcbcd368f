// Package main hosts the headlines scraper entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes /scrape, the article routes, health checks and /metrics.
//   - Pass pipeline: internal/pipeline fetches the listing page (colly or resty, with optional retry), extracts
//     entries with goquery selectors, normalizes them and creates one article per entry through a bounded errgroup.
//     Entries whose link is already stored are skipped.
//   - Persistence: articles live in Postgres (pgx) or in memory. Page snapshots optionally go to local disk or GCS,
//     and pass summaries are optionally published to Pub/Sub.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler.
//
// Quick checklist:
//   - Configure env vars: PORT or HEADLINES_SERVER_PORT, DATABASE_URL or HEADLINES_DB_DSN with
//     HEADLINES_DB_DRIVER=postgres, HEADLINES_SOURCE_URL, HEADLINES_HTTP_MAX_RETRIES, storage (HEADLINES_STORAGE_*)
//     and pubsub (HEADLINES_PUBSUB_*).
//   - Run the API locally: go run ./cmd/headlines serve --config config.yaml
//   - One-off pass: go run ./cmd/headlines scrape
package main
