package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/brandprobe/internal/brand"
)

// JobStore keeps batch jobs and their per-URL results in memory.
type JobStore struct {
	mu      sync.RWMutex
	jobs    map[string]brand.Job
	results map[string][]brand.URLResult
	clock   brand.Clock
}

// NewJobStore constructs a JobStore. A nil clock uses UTC wall time.
func NewJobStore(clock brand.Clock) *JobStore {
	return &JobStore{
		jobs:    make(map[string]brand.Job),
		results: make(map[string][]brand.URLResult),
		clock:   clock,
	}
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job brand.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus updates the status and counters for a job. Terminal jobs are not reopened.
func (s *JobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	status brand.JobStatus,
	errText string,
	counters brand.JobCounters,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, brand.ErrNotFound)
	}
	// A terminal status is final; only a repeat of the same status may refresh counters.
	if job.Status.IsTerminal() && status != job.Status {
		return fmt.Errorf("job %s is %s: %w", jobID, job.Status, brand.ErrJobFinished)
	}
	job.Status = status
	job.ErrorText = errText
	job.Counters = counters
	now := s.now()
	if status == brand.JobStatusRunning && job.Started == nil {
		job.Started = &now
	}
	if status.IsTerminal() && job.Finished == nil {
		job.Finished = &now
	}
	s.jobs[jobID] = job
	return nil
}

// RecordResult appends a per-URL result for a job.
func (s *JobStore) RecordResult(_ context.Context, result brand.URLResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[result.JobID]; !ok {
		return fmt.Errorf("job %s: %w", result.JobID, brand.ErrNotFound)
	}
	s.results[result.JobID] = append(s.results[result.JobID], result)
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (brand.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return brand.Job{}, fmt.Errorf("job %s: %w", jobID, brand.ErrNotFound)
	}
	return job, nil
}

// ListResults returns a copy of the recorded results for a job in completion order.
func (s *JobStore) ListResults(_ context.Context, jobID string) ([]brand.URLResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.jobs[jobID]; !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, brand.ErrNotFound)
	}
	results := s.results[jobID]
	out := make([]brand.URLResult, len(results))
	copy(out, results)
	return out, nil
}

func (s *JobStore) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now().UTC()
}
