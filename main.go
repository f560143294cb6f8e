// Command brandprobe extracts logos and brand colours from websites.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, single extraction, batch jobs and the onboarding wizard.
//   - Extraction: internal/extractor.Service checks the known-brand table and the cache, fetches the page with the
//     Colly fetcher (promoting to headless Chromedp when the detector says the DOM is script-rendered), then runs the
//     logo, colour and industry strategies with probe and logo-service fallbacks.
//   - Jobs: batches flow through a bounded in-memory queue to a fixed worker pool; results land in the job store.
//   - Persistence & fanout: results are cached in memory, Postgres or Redis; page snapshots go to the configured
//     BlobStore; extraction and wizard confirmation events are published to Pub/Sub when a topic is configured.
//   - Configuration & plumbing: Viper populates config from a YAML file and BRANDPROBE_* env vars; zap provides
//     structured logging; Prometheus metrics are exported on /metrics.
//
// Run locally: go run . serve --config config.yaml, or go run . extract https://example.com.
package main

import (
	"github.com/JakeFAU/brandprobe/cmd"
)

func main() {
	cmd.Execute()
}
