// Package api hosts the HTTP server, middleware, and REST handlers. Notable routes:
//   - POST /v1/extract for one-shot logo and brand colour extraction.
//   - POST /v1/jobs plus /v1/jobs/{job_id}/... for batch cache warm-up.
//   - /v1/wizard/... for review sessions (submit, review, override, confirm).
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
