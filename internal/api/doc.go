// Package api hosts the HTTP server, middleware, and REST handlers of the
// scraper. Notable routes:
//   - GET /scrape runs one fetch-parse-persist pass and reports its counts.
//   - GET /articles, GET /saved/true list stored articles.
//   - GET, PUT, DELETE /articles/{id} read, save and remove one article.
//   - GET /api/clear removes every article.
//   - GET /healthz, /readyz for liveness and readiness checks, and GET /metrics for Prometheus.
package api
