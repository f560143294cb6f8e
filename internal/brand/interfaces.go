package brand

import (
	"context"
	"io"
	"time"
)

// Cache persists extraction results keyed by the literal submitted URL.
type Cache interface {
	// Get returns the record for url. A miss is (Record{}, false, nil).
	Get(ctx context.Context, url string) (Record, bool, error)
	// Put inserts a record. Duplicate inserts for the same URL are not deduplicated.
	Put(ctx context.Context, record Record) error
	// Patch rewrites the non-nil fields of the record stored under url.
	Patch(ctx context.Context, url string, patch RecordPatch) error
}

// Extractor produces a Result for a user-entered URL.
type Extractor interface {
	Extract(ctx context.Context, rawURL string, opts ExtractOptions) (Result, error)
}

// Fetcher fetches a page and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// HeadlessDetector decides whether a headless fetch is warranted.
type HeadlessDetector interface {
	ShouldPromote(probe FetchResponse) bool
}

// Prober performs lightweight existence checks. A false return disqualifies the candidate; it is not an error.
type Prober interface {
	Exists(ctx context.Context, url string) bool
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// JobStore persists batch job metadata and per-URL results.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string, counters JobCounters) error
	RecordResult(ctx context.Context, result URLResult) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	ListResults(ctx context.Context, jobID string) ([]URLResult, error)
}

// Queue provides enqueue/dequeue semantics for batch jobs.
type Queue interface {
	Enqueue(ctx context.Context, job QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job and session IDs.
type IDGenerator interface {
	NewID() (string, error)
}
