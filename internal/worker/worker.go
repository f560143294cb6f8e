// Package worker runs batch cache warm-up jobs pulled from the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/brandprobe/internal/brand"
	"github.com/JakeFAU/brandprobe/internal/metrics"
)

// Config controls Worker behavior.
type Config struct {
	// URLTimeout bounds a single extraction attempt. Zero means no extra bound.
	URLTimeout time.Duration
	// MaxAttempts caps attempts per URL; degraded results are retried. Values below 1 mean 1.
	MaxAttempts int
	// RetryBackoff is the pause between attempts.
	RetryBackoff time.Duration
}

// Worker consumes queue items and runs the extraction pipeline for each URL.
type Worker struct {
	queue     brand.Queue
	jobStore  brand.JobStore
	extractor brand.Extractor
	clock     brand.Clock
	cfg       Config
	logger    *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New constructs a Worker.
func New(
	queue brand.Queue,
	jobStore brand.JobStore,
	extractor brand.Extractor,
	clock brand.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Worker{
		queue:     queue,
		jobStore:  jobStore,
		extractor: extractor,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			if !sleep(ctx, 100*time.Millisecond) {
				return
			}
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

// Cancel aborts the in-flight job with jobID. It reports whether this worker was running it.
func (w *Worker) Cancel(jobID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	cancel, ok := w.cancels[jobID]
	if ok {
		cancel()
	}
	return ok
}

func (w *Worker) processJob(ctx context.Context, item brand.QueueItem) {
	logger := w.logger.With(zap.String("job_id", item.JobID))
	// Status writes must land even while the worker shuts down.
	storeCtx := context.WithoutCancel(ctx)

	job, err := w.jobStore.GetJob(ctx, item.JobID)
	if err != nil {
		logger.Error("load job failed", zap.Error(err))
		return
	}
	if job.Status.IsTerminal() {
		logger.Info("skipping job", zap.String("status", string(job.Status)))
		return
	}
	if w.extractor == nil {
		logger.Error("no extractor configured")
		w.finish(storeCtx, logger, item.JobID, brand.JobStatusFailed, "no extractor configured", brand.JobCounters{})
		return
	}

	counters := brand.JobCounters{}
	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, brand.JobStatusRunning, "", counters); err != nil {
		logger.Error("update job status failed", zap.Error(err))
		return
	}

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	jobCtx, cancel := context.WithCancel(ctx)
	w.register(item.JobID, cancel)
	defer w.unregister(item.JobID)
	defer cancel()

	for _, url := range item.Params.URLs {
		if jobCtx.Err() != nil || w.canceledInStore(ctx, item.JobID) {
			cancel()
			break
		}
		w.handleURL(jobCtx, storeCtx, item, url, &counters, logger)
		if err := w.jobStore.UpdateJobStatus(storeCtx, item.JobID, brand.JobStatusRunning, "", counters); err != nil {
			logger.Debug("progress update rejected", zap.Error(err))
		}
	}

	status, errText := deriveFinalStatus(ctx, jobCtx, counters)
	if status != brand.JobStatusCanceled && w.canceledInStore(storeCtx, item.JobID) {
		status, errText = brand.JobStatusCanceled, "canceled"
	}
	w.finish(storeCtx, logger, item.JobID, status, errText, counters)
}

func (w *Worker) handleURL(
	ctx context.Context,
	storeCtx context.Context,
	item brand.QueueItem,
	url string,
	counters *brand.JobCounters,
	logger *zap.Logger,
) {
	logger = logger.With(zap.String("url", url))
	res, err := w.extractWithRetry(ctx, url, item.Params.Refresh, logger)

	record := brand.URLResult{
		JobID:      item.JobID,
		URL:        url,
		FinishedAt: w.now(),
	}
	switch {
	case err != nil:
		counters.URLsFailed++
		record.ErrorText = err.Error()
		logger.Warn("extraction failed", zap.Error(err))
	case res.Outcome == brand.OutcomeDegraded:
		counters.URLsDegraded++
		record.Result = &res
		record.Outcome = res.Outcome
	default:
		counters.URLsSucceeded++
		record.Result = &res
		record.Outcome = res.Outcome
		logger.Debug("url processed", zap.String("outcome", string(res.Outcome)))
	}

	if err := w.jobStore.RecordResult(storeCtx, record); err != nil {
		logger.Error("record result failed", zap.Error(err))
	}
}

func (w *Worker) extractWithRetry(
	ctx context.Context,
	url string,
	refresh bool,
	logger *zap.Logger,
) (brand.Result, error) {
	var (
		res brand.Result
		err error
	)
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		res, err = w.extractOnce(ctx, url, refresh)
		if err == nil && res.Outcome != brand.OutcomeDegraded {
			return res, nil
		}
		if ctx.Err() != nil || attempt == w.cfg.MaxAttempts {
			break
		}
		logger.Debug("retrying extraction", zap.Int("attempt", attempt), zap.Error(err))
		if !sleep(ctx, w.cfg.RetryBackoff*time.Duration(attempt)) {
			break
		}
	}
	return res, err
}

func (w *Worker) extractOnce(ctx context.Context, url string, refresh bool) (brand.Result, error) {
	attemptCtx := ctx
	if w.cfg.URLTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, w.cfg.URLTimeout)
		defer cancel()
	}
	res, err := w.extractor.Extract(attemptCtx, url, brand.ExtractOptions{SkipCache: refresh})
	if err != nil {
		return brand.Result{}, fmt.Errorf("extract %s: %w", url, err)
	}
	return res, nil
}

func (w *Worker) finish(
	ctx context.Context,
	logger *zap.Logger,
	jobID string,
	status brand.JobStatus,
	errText string,
	counters brand.JobCounters,
) {
	if err := w.jobStore.UpdateJobStatus(ctx, jobID, status, errText, counters); err != nil {
		if !errors.Is(err, brand.ErrJobFinished) {
			logger.Error("final job status update failed", zap.Error(err))
			return
		}
		if job, getErr := w.jobStore.GetJob(ctx, jobID); getErr == nil {
			status = job.Status
		}
		logger.Info("job already finished elsewhere", zap.String("status", string(status)))
	}
	metrics.ObserveJob(string(status))
	logger.Info("job finished",
		zap.String("status", string(status)),
		zap.Int("succeeded", counters.URLsSucceeded),
		zap.Int("degraded", counters.URLsDegraded),
		zap.Int("failed", counters.URLsFailed),
	)
}

func (w *Worker) canceledInStore(ctx context.Context, jobID string) bool {
	job, err := w.jobStore.GetJob(ctx, jobID)
	if err != nil {
		return errors.Is(err, brand.ErrNotFound)
	}
	return job.Status == brand.JobStatusCanceled
}

func (w *Worker) register(jobID string, cancel context.CancelFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancels[jobID] = cancel
}

func (w *Worker) unregister(jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.cancels, jobID)
}

func (w *Worker) now() time.Time {
	if w.clock != nil {
		return w.clock.Now()
	}
	return time.Now().UTC()
}

func deriveFinalStatus(parent, job context.Context, counters brand.JobCounters) (brand.JobStatus, string) {
	switch {
	case parent.Err() != nil:
		return brand.JobStatusCanceled, "worker shutting down"
	case job.Err() != nil:
		return brand.JobStatusCanceled, "canceled"
	case counters.URLsSucceeded+counters.URLsDegraded == 0:
		return brand.JobStatusFailed, "no urls were extracted"
	default:
		return brand.JobStatusSucceeded, ""
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
