package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/dgallion1/docfocus/internal/collection"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusAnalyzing JobStatus = "analyzing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	// StatusPartial is a completed job where some documents yielded nothing.
	StatusPartial JobStatus = "partial"
)

// Job tracks one uploaded analysis.
type Job struct {
	mu sync.Mutex

	ID      string
	Persona string
	Task    string

	Status   JobStatus
	Phase    string
	Progress Progress

	CreatedAt time.Time
	UpdatedAt time.Time

	// Internal: not serialized.
	workDir   string
	documents []string
	result    *collection.Result
	errors    []string
}

// Progress tracks processing progress.
type Progress struct {
	DocumentsTotal     int      `json:"documents_total"`
	DocumentsProcessed int      `json:"documents_processed"`
	SectionsFound      int      `json:"sections_found"`
	Errors             []string `json:"errors"`
}

// NewJob creates a queued job over documents stored in workDir. The job
// owns workDir and removes it once processed.
func NewJob(persona, task, workDir string, documents []string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Persona:   persona,
		Task:      task,
		Status:    StatusQueued,
		Phase:     "queued",
		Progress:  Progress{DocumentsTotal: len(documents)},
		CreatedAt: now,
		UpdatedAt: now,
		workDir:   workDir,
		documents: documents,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	c *cache.Cache
}

func NewJobStore(ttl time.Duration) *JobStore {
	cleanup := 5 * time.Minute
	if ttl < cleanup {
		cleanup = ttl
	}
	return &JobStore{c: cache.New(ttl, cleanup)}
}

// Put stores job and restarts its TTL.
func (s *JobStore) Put(job *Job) {
	s.c.SetDefault(job.ID, job)
}

func (s *JobStore) Get(id string) *Job {
	v, ok := s.c.Get(id)
	if !ok {
		return nil
	}
	return v.(*Job)
}

// Len returns the number of unexpired jobs.
func (s *JobStore) Len() int {
	return s.c.ItemCount()
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// DocumentDone records one segmented document.
func (j *Job) DocumentDone(sections int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.DocumentsProcessed++
	j.Progress.SectionsFound += sections
	j.UpdatedAt = time.Now()
}

func (j *Job) setResult(res *collection.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
}

// Result returns the output record, or nil until the job finishes.
func (j *Job) Result() *collection.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Done reports whether the job reached a terminal status.
func (j *Job) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.Status {
	case StatusCompleted, StatusPartial, StatusFailed:
		return true
	}
	return false
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Persona   string    `json:"persona"`
	Task      string    `json:"job_to_be_done"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Persona:   j.Persona,
		Task:      j.Task,
		Progress:  p,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
