package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/brandprobe/internal/brand"
	"github.com/JakeFAU/brandprobe/internal/logging"
)

type extractRequest struct {
	URL string `json:"url"`
}

type jobRequest struct {
	URLs    []string `json:"urls"`
	Refresh bool     `json:"refresh"`
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	if _, err := brand.Normalize(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	res, err := s.deps.Extractor.Extract(r.Context(), req.URL, brand.ExtractOptions{SkipCache: refresh})
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Warn("extraction aborted", zap.String("url", req.URL), zap.Error(err))
		writeError(w, statusForContextErr(err), "extraction did not complete")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params, err := s.toJobParameters(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobID, err := s.enqueueJob(r.Context(), params)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error("enqueue job failed", zap.Error(err))
		writeError(w, statusForContextErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) getJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) getJobResult(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	results, err := s.deps.JobStore.ListResults(r.Context(), job.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch job results")
		return
	}
	writeJSON(w, http.StatusOK, brand.JobResult{Job: job, Results: results})
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	if job.Status.IsTerminal() {
		writeError(w, http.StatusConflict, fmt.Sprintf("job already %s", job.Status))
		return
	}
	if err := s.deps.JobStore.UpdateJobStatus(
		r.Context(),
		job.ID,
		brand.JobStatusCanceled,
		"canceled via API",
		job.Counters,
	); err != nil {
		if errors.Is(err, brand.ErrJobFinished) {
			writeError(w, http.StatusConflict, "job already finished")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to cancel job")
		return
	}
	s.deps.Dispatcher.Cancel(job.ID)
	writeJSON(w, http.StatusOK, map[string]string{"job_id": job.ID, "status": string(brand.JobStatusCanceled)})
}

func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (brand.Job, bool) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.deps.JobStore.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, brand.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to load job")
		}
		return brand.Job{}, false
	}
	return job, true
}

func (s *Server) toJobParameters(req jobRequest) (brand.JobParameters, error) {
	if len(req.URLs) == 0 {
		return brand.JobParameters{}, errors.New("urls required")
	}
	if len(req.URLs) > s.opts.MaxJobURLs {
		return brand.JobParameters{}, fmt.Errorf("at most %d urls per job", s.opts.MaxJobURLs)
	}
	seen := make(map[string]struct{}, len(req.URLs))
	urls := make([]string, 0, len(req.URLs))
	for _, raw := range req.URLs {
		raw = strings.TrimSpace(raw)
		if _, err := brand.Normalize(raw); err != nil {
			return brand.JobParameters{}, err
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		urls = append(urls, raw)
	}
	return brand.JobParameters{URLs: urls, Refresh: req.Refresh}, nil
}

func (s *Server) enqueueJob(ctx context.Context, params brand.JobParameters) (string, error) {
	jobID, err := s.deps.IDs.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	now := s.now()
	job := brand.Job{
		ID:         jobID,
		Status:     brand.JobStatusQueued,
		Submitted:  now,
		Parameters: params,
	}
	if err := s.deps.JobStore.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	item := brand.QueueItem{
		JobID:     jobID,
		Params:    params,
		Attempt:   1,
		Submitted: now.Unix(),
	}
	if err := s.deps.Dispatcher.Enqueue(queueCtx, item); err != nil {
		if updErr := s.deps.JobStore.UpdateJobStatus(
			context.WithoutCancel(ctx), jobID, brand.JobStatusFailed, "enqueue failed", brand.JobCounters{},
		); updErr != nil {
			s.logger.Error("mark unqueued job failed", zap.String("job_id", jobID), zap.Error(updErr))
		}
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return jobID, nil
}

func (s *Server) now() time.Time {
	if s.deps.Clock != nil {
		return s.deps.Clock.Now()
	}
	return time.Now().UTC()
}

func statusForContextErr(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
